package classifier

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludanortmun/bargal/internal/images"
	"github.com/ludanortmun/bargal/internal/processing"
)

func processed(p images.Plane) *processing.Processed {
	return &processing.Processed{Processor: processing.GRLogGRDiff, Plane: p}
}

func filled(w, h int, v float64) images.Plane {
	p := images.NewPlane(w, h)
	for i := range p.Pix {
		p.Pix[i] = v
	}
	return p
}

func disk(size int, radius float64) images.Plane {
	p := images.NewPlane(size, size)
	c := float64(size-1) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if math.Hypot(float64(x)-c, float64(y)-c) <= radius {
				p.Set(x, y, 1)
			}
		}
	}
	return p
}

// singleFeatureModel scores hist_std directly through a logistic unit.
func singleFeatureModel(weight float64) *Model {
	return &Model{
		Name:      "test",
		InputSize: 16,
		Threshold: 0.5,
		Features:  []string{FeatureHistStd},
		Scaler:    Scaler{Mean: []float64{0}, Scale: []float64{1}},
		Layers: []Layer{{
			Weights:    [][]float64{{weight}},
			Bias:       []float64{0},
			Activation: "logistic",
		}},
	}
}

func TestRegistryUnknownModel(t *testing.T) {
	_, err := DefaultRegistry().New("cnn", Options{})
	require.Error(t, err)

	var unknown *UnknownModelError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "cnn", unknown.Name)
	assert.Equal(t, []string{"mlp"}, unknown.Known)
}

func TestRegistryCaseInsensitive(t *testing.T) {
	c, err := DefaultRegistry().New("MLP", Options{})
	require.NoError(t, err)
	assert.Equal(t, "mlp", c.Name())
}

func TestRegistryDuplicate(t *testing.T) {
	r := DefaultRegistry()
	assert.Error(t, r.Register("mlp", NewMLP))
	assert.Error(t, r.Register("  ", NewMLP))
}

func TestBaselineModelLoads(t *testing.T) {
	m, err := ParseModel(baselineModel)
	require.NoError(t, err)
	assert.Equal(t, 128, m.InputSize)
	assert.Len(t, m.Features, 4)
	assert.Equal(t, 0.5, m.Threshold)
}

func TestPredictThreshold(t *testing.T) {
	img := processed(filled(32, 32, 0))

	pos := NewMLPFromModel(singleFeatureModel(1))
	label, err := pos.Predict(img)
	require.NoError(t, err)
	assert.Equal(t, 1, label)

	neg := NewMLPFromModel(singleFeatureModel(-1))
	label, err = neg.Predict(img)
	require.NoError(t, err)
	assert.Equal(t, 0, label)
}

func TestPredictDeterministic(t *testing.T) {
	c, err := NewMLP(Options{})
	require.NoError(t, err)

	img := processed(disk(96, 20))
	first, err := c.Predict(img)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		got, err := c.Predict(img)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
	assert.Contains(t, []int{0, 1}, first)
}

func TestPredictRejectsEmptyImage(t *testing.T) {
	c, err := NewMLP(Options{})
	require.NoError(t, err)

	_, err = c.Predict(processed(images.Plane{}))
	assert.Error(t, err)
	_, err = c.Predict(nil)
	assert.Error(t, err)
}

func TestExtractFeatures(t *testing.T) {
	t.Run("flat dark plane", func(t *testing.T) {
		f := ExtractFeatures(filled(64, 64, 0), 32)
		assert.Equal(t, 0.0, f[FeatureEdgeCount])
		assert.Equal(t, 0.0, f[FeatureCircularity])
		assert.InDelta(t, math.Sqrt(f[FeatureContrast]), f[FeatureHistStd], 1e-9)
		assert.Greater(t, f[FeatureContrast], 0.0)
	})

	t.Run("saturated plane is one square region", func(t *testing.T) {
		f := ExtractFeatures(filled(64, 64, 1), 32)
		assert.InDelta(t, math.Pi/4, f[FeatureCircularity], 1e-9)
		assert.Equal(t, 0.0, f[FeatureEdgeCount])
	})

	t.Run("disk has edges and is rounder than a square", func(t *testing.T) {
		f := ExtractFeatures(disk(64, 20), 64)
		assert.Greater(t, f[FeatureEdgeCount], 0.0)
		assert.Greater(t, f[FeatureCircularity], 0.5)
		assert.Less(t, f[FeatureCircularity], 1.0)
	})

	t.Run("out of range values are clipped", func(t *testing.T) {
		a := ExtractFeatures(filled(16, 16, 3), 16)
		b := ExtractFeatures(filled(16, 16, 1), 16)
		assert.Equal(t, b, a)
	})
}

func TestParseModelValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown feature", `
input_size: 16
features: [color]
scaler: {mean: [0], scale: [1]}
layers: [{activation: logistic, weights: [[1]], bias: [0]}]
`},
		{"scaler mismatch", `
input_size: 16
features: [contrast]
scaler: {mean: [0, 1], scale: [1]}
layers: [{activation: logistic, weights: [[1]], bias: [0]}]
`},
		{"bad layer width", `
input_size: 16
features: [contrast, hist_std]
scaler: {mean: [0, 0], scale: [1, 1]}
layers: [{activation: logistic, weights: [[1]], bias: [0]}]
`},
		{"multiple outputs", `
input_size: 16
features: [contrast]
scaler: {mean: [0], scale: [1]}
layers: [{activation: logistic, weights: [[1], [2]], bias: [0, 0]}]
`},
		{"unknown activation", `
input_size: 16
features: [contrast]
scaler: {mean: [0], scale: [1]}
layers: [{activation: softsign, weights: [[1]], bias: [0]}]
`},
		{"output is not a probability", `
input_size: 16
features: [contrast]
scaler: {mean: [0], scale: [1]}
layers: [{activation: relu, weights: [[1]], bias: [0]}, {activation: identity, weights: [[1]], bias: [0]}]
`},
		{"tiny input", `
input_size: 2
features: [contrast]
scaler: {mean: [0], scale: [1]}
layers: [{activation: logistic, weights: [[1]], bias: [0]}]
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModel([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestModelFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "always.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: always-barred
input_size: 8
features: [circularity]
scaler: {mean: [0], scale: [0]}
layers: [{activation: logistic, weights: [[0]], bias: [5]}]
`), 0644))

	c, err := DefaultRegistry().New("mlp", Options{ModelPath: path})
	require.NoError(t, err)
	label, err := c.Predict(processed(filled(8, 8, 0.2)))
	require.NoError(t, err)
	assert.Equal(t, 1, label)

	_, err = DefaultRegistry().New("mlp", Options{ModelPath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
