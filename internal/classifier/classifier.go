package classifier

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ludanortmun/bargal/internal/processing"
)

// DefaultModel is the backend used when none is requested.
const DefaultModel = "mlp"

// Classifier predicts whether a processed galaxy image shows a bar.
// Implementations are read-only after construction and safe for concurrent use.
type Classifier interface {
	Name() string
	// Predict returns 1 for barred, 0 for unbarred.
	Predict(img *processing.Processed) (int, error)
}

// Options configures backend construction
type Options struct {
	// ModelPath overrides the backend's bundled model artifact
	ModelPath string
}

// Factory builds a backend
type Factory func(Options) (Classifier, error)

// UnknownModelError is returned for backend names that are not registered.
type UnknownModelError struct {
	Name  string
	Known []string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model %q (available: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Registry maps backend names to factories
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the built-in backends
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register("mlp", NewMLP)
	return r
}

// Register adds a backend; names are case-insensitive
func (r *Registry) Register(name string, factory Factory) error {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return fmt.Errorf("model name is required")
	}
	if _, exists := r.factories[key]; exists {
		return fmt.Errorf("model %s already registered", key)
	}
	r.factories[key] = factory
	return nil
}

// New constructs the named backend, loading its model once.
func (r *Registry) New(name string, opts Options) (Classifier, error) {
	factory, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, &UnknownModelError{Name: name, Known: r.Names()}
	}
	c, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", name, err)
	}
	return c, nil
}

// Names returns the registered backend names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
