package galaxycmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ludanortmun/bargal/internal/catalog"
	"github.com/ludanortmun/bargal/internal/images"
	"github.com/ludanortmun/bargal/internal/pipeline"
	"github.com/ludanortmun/bargal/internal/report"
)

type downloadOptions struct {
	dataset     string
	outputDir   string
	skip        int
	top         int
	format      string
	perBand     bool
	concurrency int
}

func executeDownload(ctx context.Context, opts downloadOptions, source images.Source, out io.Writer) error {
	slog.Info("Starting image download", "dataset", opts.dataset, "output", opts.outputDir)

	format, err := images.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	window, err := newWindow(opts.skip, opts.top)
	if err != nil {
		return err
	}

	cat, err := catalog.Open(opts.dataset)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	store, err := images.NewStore(opts.outputDir)
	if err != nil {
		return fmt.Errorf("failed to open image directory: %w", err)
	}

	runner := &pipeline.Runner{
		Acquirer:    images.NewAcquirer(source, store),
		Format:      format,
		PerBand:     opts.perBand,
		Concurrency: opts.concurrency,
	}
	run, err := runner.Run(ctx, cat, window)
	if err != nil {
		return err
	}

	report.PrintSummary(out, report.NewSummary(run, "", report.RunConfig{
		Dataset:  opts.dataset,
		Format:   string(format),
		PerBand:  opts.perBand,
		ImageDir: opts.outputDir,
		Skip:     window.Skip,
		Top:      window.Top,
	}))
	return nil
}

type cutoutOptions struct {
	ra        float64
	dec       float64
	name      string
	outputDir string
	byBands   bool
	format    string
}

// executeCutout fetches one cutout and overwrites whatever file has its name.
func executeCutout(ctx context.Context, opts cutoutOptions, source images.Source, out io.Writer) error {
	format, err := images.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	store, err := images.NewStore(opts.outputDir)
	if err != nil {
		return fmt.Errorf("failed to open output directory: %w", err)
	}

	bands := []string{""}
	if opts.byBands {
		if format == images.FormatFITS {
			slog.Debug("Per-band mode does not apply to FITS cubes, ignoring")
		} else {
			bands = images.SurveyBands
		}
	}

	for _, band := range bands {
		req := images.CutoutRequest{RA: opts.ra, Dec: opts.dec, Format: format, Bands: band}
		data, err := source.Fetch(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to download cutout: %w", err)
		}
		path, err := store.Save(images.FileName(opts.name, opts.ra, opts.dec, format, band), data)
		if err != nil {
			return err
		}
		slog.Info("Saved cutout", "path", path, "bytes", len(data))
		fmt.Fprintln(out, path)
	}
	return nil
}
