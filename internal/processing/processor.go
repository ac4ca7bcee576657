package processing

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ludanortmun/bargal/internal/images"
)

// Names of the built-in processors.
const (
	GRLogGRDiff      = "GRLOG_GR_DIFF"
	SqrLogGRDiff     = "SQRLOG_GR_DIFF"
	SqrtGRDiff       = "SQRT_GR_DIFF"
	DefaultProcessor = GRLogGRDiff
)

// Func derives one diagnostic plane from a multi-band image. Implementations
// must be pure: the same input always yields the same output.
type Func func(*images.MultiBandImage) (images.Plane, error)

// Processed is the output of a processor, tagged with the processor's name.
type Processed struct {
	Processor string
	images.Plane
}

// ProcessingError reports band data a processor cannot transform.
type ProcessingError struct {
	Processor string
	Galaxy    string
	Err       error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("process %q with %s: %v", e.Galaxy, e.Processor, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// UnknownProcessorError is returned for names that are not registered.
type UnknownProcessorError struct {
	Name  string
	Known []string
}

func (e *UnknownProcessorError) Error() string {
	return fmt.Sprintf("unknown processor %q (available: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Processor is a registered, named transform.
type Processor struct {
	name string
	fn   Func
}

// Name returns the registered name.
func (p *Processor) Name() string {
	return p.name
}

// Process runs the transform. Any failure is a *ProcessingError.
func (p *Processor) Process(img *images.MultiBandImage) (*Processed, error) {
	if img == nil {
		return nil, &ProcessingError{Processor: p.name, Err: fmt.Errorf("no image")}
	}
	plane, err := p.fn(img)
	if err != nil {
		return nil, &ProcessingError{Processor: p.name, Galaxy: img.Galaxy, Err: err}
	}
	return &Processed{Processor: p.name, Plane: plane}, nil
}

// Registry maps processor names to transforms. It is an explicit value so
// callers and tests can build their own.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// DefaultRegistry returns a new registry holding the built-in processors
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(GRLogGRDiff, GRDiff(
		Chain(PercentileNormalize(1, 99), BilateralFilter(2, 2, 0.1)),
		LogStretch(),
		Chain(CenterZoom(2), MinMaxNormalize()),
	))
	_ = r.Register(SqrLogGRDiff, GRDiff(
		Chain(PercentileNormalize(1, 99), BilateralFilter(2, 2, 0.1)),
		SqrtLogStretch(),
		Chain(CenterZoom(2), MinMaxNormalize()),
	))
	_ = r.Register(SqrtGRDiff, GRDiff(
		Chain(PercentileNormalize(1, 99), BilateralFilter(2, 2, 0.1)),
		PercentileNormalize(1, 99),
		Chain(SqrtStretch(), MinMaxNormalize(), CenterZoom(2)),
	))
	return r
}

// Register adds a processor. Names are case-insensitive and must be unique.
func (r *Registry) Register(name string, fn Func) error {
	key := strings.ToUpper(strings.TrimSpace(name))
	if key == "" {
		return fmt.Errorf("processor name is required")
	}
	if fn == nil {
		return fmt.Errorf("processor %s has no function", key)
	}
	if _, exists := r.funcs[key]; exists {
		return fmt.Errorf("processor %s already registered", key)
	}
	r.funcs[key] = fn
	return nil
}

// Get looks up a processor. There is no fallback to the default.
func (r *Registry) Get(name string) (*Processor, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	fn, ok := r.funcs[key]
	if !ok {
		return nil, &UnknownProcessorError{Name: name, Known: r.Names()}
	}
	return &Processor{name: key, fn: fn}, nil
}

// Names returns the registered names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// GRDiff builds a processor computing gT(g) - rT(r), then resultT.
func GRDiff(gT, rT, resultT Transform) Func {
	return func(img *images.MultiBandImage) (images.Plane, error) {
		g, ok := img.Band("g")
		if !ok {
			return images.Plane{}, fmt.Errorf("missing g band")
		}
		r, ok := img.Band("r")
		if !ok {
			return images.Plane{}, fmt.Errorf("missing r band")
		}
		if !g.SameShape(r) {
			return images.Plane{}, fmt.Errorf("band shapes differ: g %dx%d, r %dx%d", g.Width, g.Height, r.Width, r.Height)
		}
		if len(g.Pix) != g.Width*g.Height || len(r.Pix) != r.Width*r.Height || len(g.Pix) == 0 {
			return images.Plane{}, fmt.Errorf("incomplete band data")
		}

		gp, rp := gT(g), rT(r)
		diff := images.NewPlane(g.Width, g.Height)
		for i := range diff.Pix {
			diff.Pix[i] = gp.Pix[i] - rp.Pix[i]
		}
		return resultT(diff), nil
	}
}
