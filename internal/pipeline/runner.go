package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ludanortmun/bargal/internal/catalog"
	"github.com/ludanortmun/bargal/internal/classifier"
	"github.com/ludanortmun/bargal/internal/images"
	"github.com/ludanortmun/bargal/internal/processing"
)

// DefaultConcurrency bounds in-flight records when Runner.Concurrency is unset.
const DefaultConcurrency = 4

// Acquirer obtains the bands for one record. *images.Acquirer implements it.
type Acquirer interface {
	Acquire(ctx context.Context, rec catalog.Record, format images.Format, perBand bool) (*images.MultiBandImage, string, error)
}

// Processor turns bands into one diagnostic plane. *processing.Processor implements it.
type Processor interface {
	Name() string
	Process(img *images.MultiBandImage) (*processing.Processed, error)
}

// Result is the outcome of one record.
type Result struct {
	Record catalog.Record
	State  State
	// Label is nil unless the record was classified
	Label     *int
	ImagePath string
	// FailedAt is the stage that was running when Err occurred
	FailedAt State
	Err      error
}

// Runner drives records through acquisition, processing and classification.
// A nil Processor stops each record after acquisition; a nil Classifier
// stops it after processing.
type Runner struct {
	Acquirer    Acquirer
	Processor   Processor
	Classifier  classifier.Classifier
	Format      images.Format
	PerBand     bool
	Concurrency int

	// OnProcessed, when set, receives every processed image. An error fails
	// the record at the processing stage.
	OnProcessed func(rec catalog.Record, img *processing.Processed) error
}

// Run is a completed pipeline run.
type Run struct {
	ID       string
	Window   catalog.Window
	Started  time.Time
	Finished time.Time
	// Results are in catalog order within the window
	Results []Result
}

// Summary holds run totals.
type Summary struct {
	Total    int
	Done     int
	Failed   int
	Barred   int
	Unbarred int
	Duration time.Duration
}

// Summary counts the run's results.
func (r *Run) Summary() Summary {
	s := Summary{Total: len(r.Results), Duration: r.Finished.Sub(r.Started)}
	for _, res := range r.Results {
		if !res.State.Terminal() {
			continue
		}
		if res.State == Done {
			s.Done++
		} else {
			s.Failed++
		}
		if res.Label != nil {
			if *res.Label == 1 {
				s.Barred++
			} else {
				s.Unbarred++
			}
		}
	}
	return s
}

// Run processes every record of cat inside w. Per-record failures are kept on
// the results; only catalog errors and cancellation are returned.
func (r *Runner) Run(ctx context.Context, cat *catalog.Catalog, w catalog.Window) (*Run, error) {
	if r.Acquirer == nil {
		return nil, fmt.Errorf("pipeline has no acquirer")
	}
	if r.Classifier != nil && r.Processor == nil {
		return nil, fmt.Errorf("classification requires a processor")
	}

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	rows, err := cat.Len()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	start, end := w.Bounds(rows)
	total := end - start

	run := &Run{ID: uuid.NewString(), Window: w, Started: time.Now()}
	slog.Info("Starting run", "run_id", run.ID, "catalog", cat.Path, "rows", rows, "selected", total, "concurrency", concurrency)

	var g errgroup.Group
	g.SetLimit(concurrency)

	// Slots are appended here only; each goroutine writes through its own pointer.
	var slots []*Result
	var readErr error
	for rec, err := range cat.Records(w) {
		if err != nil {
			readErr = err
			break
		}
		if ctx.Err() != nil {
			break
		}

		slot := &Result{Record: rec, State: Queued}
		slots = append(slots, slot)
		position := len(slots)
		g.Go(func() error {
			r.process(ctx, slot, fmt.Sprintf("%d/%d", position, total))
			return nil
		})
	}
	_ = g.Wait()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", readErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled: %w", err)
	}

	run.Finished = time.Now()
	run.Results = make([]Result, len(slots))
	for i, slot := range slots {
		run.Results[i] = *slot
	}

	s := run.Summary()
	slog.Info("Run complete", "run_id", run.ID, "total", s.Total, "done", s.Done, "failed", s.Failed, "duration", s.Duration)
	return run, nil
}

func (r *Runner) process(ctx context.Context, res *Result, progress string) {
	rec := res.Record

	res.State = Acquiring
	img, path, err := r.Acquirer.Acquire(ctx, rec, r.Format, r.PerBand)
	if err != nil {
		r.fail(res, err)
		return
	}
	res.ImagePath = path

	if r.Processor == nil {
		res.State = Done
		slog.Info("Acquired galaxy", "galaxy", rec.Name, "progress", progress, "path", path)
		return
	}

	res.State = Processing
	processed, err := r.Processor.Process(img)
	if err != nil {
		r.fail(res, err)
		return
	}
	if r.OnProcessed != nil {
		if err := r.OnProcessed(rec, processed); err != nil {
			r.fail(res, err)
			return
		}
	}

	if r.Classifier == nil {
		res.State = Done
		slog.Info("Processed galaxy", "galaxy", rec.Name, "progress", progress, "processor", processed.Processor)
		return
	}

	res.State = Classifying
	label, err := r.Classifier.Predict(processed)
	if err != nil {
		r.fail(res, fmt.Errorf("classify %q with %s: %w", rec.Name, r.Classifier.Name(), err))
		return
	}
	res.Label = &label
	res.State = Done
	slog.Info("Classified galaxy", "galaxy", rec.Name, "progress", progress, "barred", label == 1)
}

func (r *Runner) fail(res *Result, err error) {
	res.FailedAt = res.State
	res.State = Failed
	res.Err = err
	slog.Warn("Record failed", "galaxy", res.Record.Name, "stage", res.FailedAt, "error", err)
}
