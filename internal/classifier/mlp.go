package classifier

import (
	_ "embed"
	"fmt"
	"log/slog"
	"math"

	"github.com/ludanortmun/bargal/internal/processing"
)

//go:embed models/mlp_baseline.yaml
var baselineModel []byte

// MLP scores scalar image features with a multilayer perceptron.
type MLP struct {
	model *Model
}

// NewMLP loads opts.ModelPath, or the bundled baseline model when empty.
func NewMLP(opts Options) (Classifier, error) {
	var (
		model *Model
		err   error
	)
	if opts.ModelPath != "" {
		model, err = LoadModel(opts.ModelPath)
	} else {
		model, err = ParseModel(baselineModel)
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("Loaded MLP model", "name", model.Name, "features", model.Features, "input_size", model.InputSize)
	return NewMLPFromModel(model), nil
}

// NewMLPFromModel wraps an already validated model
func NewMLPFromModel(m *Model) *MLP {
	return &MLP{model: m}
}

// Name implements Classifier
func (c *MLP) Name() string {
	return "mlp"
}

// Features returns the model's feature vector for img, in model order.
func (c *MLP) Features(img *processing.Processed) ([]float64, error) {
	if img == nil || img.Width == 0 || img.Height == 0 || len(img.Pix) != img.Width*img.Height {
		return nil, fmt.Errorf("empty or malformed processed image")
	}

	measured := ExtractFeatures(img.Plane, c.model.InputSize)
	vec := make([]float64, len(c.model.Features))
	for i, name := range c.model.Features {
		vec[i] = measured[name]
	}
	return vec, nil
}

// Predict implements Classifier
func (c *MLP) Predict(img *processing.Processed) (int, error) {
	vec, err := c.Features(img)
	if err != nil {
		return 0, err
	}

	p := c.model.Probability(vec)
	if math.IsNaN(p) {
		return 0, fmt.Errorf("model produced NaN for features %v", vec)
	}
	if p > c.model.Threshold {
		return 1, nil
	}
	return 0, nil
}
