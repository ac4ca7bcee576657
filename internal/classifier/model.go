package classifier

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Model is a trained multilayer perceptron together with the feature
// contract it was trained on.
type Model struct {
	Name string `yaml:"name"`
	// InputSize is the square side the processed image is resized to before measuring features
	InputSize int `yaml:"input_size"`
	// Threshold on the output probability; 0 means 0.5
	Threshold float64  `yaml:"threshold"`
	Features  []string `yaml:"features"`
	Scaler    Scaler   `yaml:"scaler"`
	Layers    []Layer  `yaml:"layers"`
}

// Scaler standardizes features: (x - mean) / scale
type Scaler struct {
	Mean  []float64 `yaml:"mean"`
	Scale []float64 `yaml:"scale"`
}

// Layer is a dense layer. Weights are indexed [output][input].
type Layer struct {
	Weights    [][]float64 `yaml:"weights"`
	Bias       []float64   `yaml:"bias"`
	Activation string      `yaml:"activation"`
}

var activations = map[string]func(float64) float64{
	"identity": func(x float64) float64 { return x },
	"relu":     func(x float64) float64 { return math.Max(0, x) },
	"tanh":     math.Tanh,
	"logistic": func(x float64) float64 { return 1 / (1 + math.Exp(-x)) },
}

// LoadModel reads a model artifact from disk
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return ParseModel(data)
}

// ParseModel decodes and validates a YAML model artifact
func ParseModel(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	if m.Threshold == 0 {
		m.Threshold = 0.5
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every dimension lines up
func (m *Model) Validate() error {
	if m.InputSize < 3 {
		return fmt.Errorf("model input_size must be at least 3, got %d", m.InputSize)
	}
	if len(m.Features) == 0 {
		return fmt.Errorf("model declares no features")
	}
	for _, f := range m.Features {
		if !knownFeatures[f] {
			return fmt.Errorf("model uses unknown feature %q", f)
		}
	}
	if len(m.Scaler.Mean) != len(m.Features) || len(m.Scaler.Scale) != len(m.Features) {
		return fmt.Errorf("scaler has %d means and %d scales for %d features",
			len(m.Scaler.Mean), len(m.Scaler.Scale), len(m.Features))
	}
	if len(m.Layers) == 0 {
		return fmt.Errorf("model has no layers")
	}

	in := len(m.Features)
	for i, l := range m.Layers {
		if _, ok := activations[l.Activation]; !ok {
			return fmt.Errorf("layer %d: unknown activation %q", i, l.Activation)
		}
		if len(l.Weights) == 0 || len(l.Weights) != len(l.Bias) {
			return fmt.Errorf("layer %d: %d weight rows for %d biases", i, len(l.Weights), len(l.Bias))
		}
		for j, row := range l.Weights {
			if len(row) != in {
				return fmt.Errorf("layer %d row %d: expected %d inputs, got %d", i, j, in, len(row))
			}
		}
		in = len(l.Weights)
	}
	if in != 1 {
		return fmt.Errorf("model output must have 1 unit, got %d", in)
	}
	if last := m.Layers[len(m.Layers)-1].Activation; last != "logistic" {
		return fmt.Errorf("model output activation must be logistic, got %q", last)
	}
	return nil
}

// Probability runs the network on an unscaled feature vector
func (m *Model) Probability(features []float64) float64 {
	x := make([]float64, len(features))
	for i, v := range features {
		scale := m.Scaler.Scale[i]
		if scale == 0 {
			scale = 1
		}
		x[i] = (v - m.Scaler.Mean[i]) / scale
	}

	for _, l := range m.Layers {
		act := activations[l.Activation]
		out := make([]float64, len(l.Weights))
		for j, row := range l.Weights {
			sum := l.Bias[j]
			for k, w := range row {
				sum += w * x[k]
			}
			out[j] = act(sum)
		}
		x = out
	}
	return x[0]
}
