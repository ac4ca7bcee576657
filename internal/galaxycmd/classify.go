package galaxycmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ludanortmun/bargal/internal/catalog"
	"github.com/ludanortmun/bargal/internal/classifier"
	"github.com/ludanortmun/bargal/internal/images"
	"github.com/ludanortmun/bargal/internal/pipeline"
	"github.com/ludanortmun/bargal/internal/processing"
	"github.com/ludanortmun/bargal/internal/report"
)

type classifyOptions struct {
	dataset     string
	imgDir      string
	outputPath  string
	skip        int
	top         int
	model       string
	modelFile   string
	processor   string
	format      string
	perBand     bool
	concurrency int
	printReport bool
}

func executeClassify(ctx context.Context, opts classifyOptions, source images.Source, out io.Writer) error {
	slog.Info("Starting classification", "dataset", opts.dataset, "processor", opts.processor, "model", opts.model)

	// Configuration errors must surface before anything is downloaded.
	format, err := images.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	window, err := newWindow(opts.skip, opts.top)
	if err != nil {
		return err
	}
	proc, err := processing.DefaultRegistry().Get(opts.processor)
	if err != nil {
		return err
	}
	clf, err := classifier.DefaultRegistry().New(opts.model, classifier.Options{ModelPath: opts.modelFile})
	if err != nil {
		return err
	}

	cat, err := catalog.Open(opts.dataset)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	var store *images.Store
	if opts.imgDir != "" {
		if store, err = images.NewStore(opts.imgDir); err != nil {
			return fmt.Errorf("failed to open image directory: %w", err)
		}
	}

	runner := &pipeline.Runner{
		Acquirer:    images.NewAcquirer(source, store),
		Processor:   proc,
		Classifier:  clf,
		Format:      format,
		PerBand:     opts.perBand,
		Concurrency: opts.concurrency,
	}
	run, err := runner.Run(ctx, cat, window)
	if err != nil {
		return err
	}

	rep := report.Build(cat.Columns, run.Results, store != nil)
	reportPath := opts.outputPath
	if reportPath == "" {
		reportPath = report.DefaultPath(".", run.Finished)
	}
	slog.Info("Saving report", "path", reportPath)
	if err := rep.WriteCSV(reportPath); err != nil {
		return err
	}

	summary := report.NewSummary(run, reportPath, report.RunConfig{
		Dataset:   opts.dataset,
		Processor: proc.Name(),
		Model:     clf.Name(),
		Format:    string(format),
		PerBand:   opts.perBand,
		ImageDir:  opts.imgDir,
		Skip:      window.Skip,
		Top:       window.Top,
	})
	summary.Agreement = report.CompareTruth(cat.Columns, run.Results)
	if err := report.WriteSummary(report.SummaryPath(reportPath), summary); err != nil {
		return err
	}

	report.PrintSummary(out, summary)
	if opts.printReport {
		fmt.Fprintln(out)
		if err := rep.WriteMarkdown(out); err != nil {
			return fmt.Errorf("failed to print report: %w", err)
		}
	}
	return nil
}

func newWindow(skip, top int) (catalog.Window, error) {
	if skip < 0 {
		return catalog.Window{}, fmt.Errorf("skip must not be negative, got %d", skip)
	}
	if top < 0 {
		return catalog.Window{}, fmt.Errorf("top must not be negative, got %d", top)
	}
	return catalog.Window{Skip: skip, Top: top}, nil
}
