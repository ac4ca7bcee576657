package galaxycmd

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/ludanortmun/bargal/internal/catalog"
	"github.com/ludanortmun/bargal/internal/images"
	"github.com/ludanortmun/bargal/internal/pipeline"
	"github.com/ludanortmun/bargal/internal/processing"
	"github.com/ludanortmun/bargal/internal/report"
)

type preprocessOptions struct {
	dataset     string
	imgDir      string
	outputDir   string
	skip        int
	top         int
	processor   string
	format      string
	perBand     bool
	concurrency int
}

func executePreprocess(ctx context.Context, opts preprocessOptions, source images.Source, out io.Writer) error {
	slog.Info("Starting preprocessing", "dataset", opts.dataset, "images", opts.imgDir, "processor", opts.processor)

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

	cat, err := catalog.Open(opts.dataset)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	cache, err := images.NewStore(opts.imgDir)
	if err != nil {
		return fmt.Errorf("failed to open image directory: %w", err)
	}
	output, err := images.NewStore(opts.outputDir)
	if err != nil {
		return fmt.Errorf("failed to open output directory: %w", err)
	}

	runner := &pipeline.Runner{
		Acquirer:    images.NewAcquirer(source, cache),
		Processor:   proc,
		Format:      format,
		PerBand:     opts.perBand,
		Concurrency: opts.concurrency,
		OnProcessed: func(rec catalog.Record, img *processing.Processed) error {
			path, err := output.Save(processedFileName(rec), encodePNG(img.Plane))
			if err != nil {
				return err
			}
			slog.Debug("Saved processed image", "galaxy", rec.Name, "path", path)
			return nil
		},
	}
	run, err := runner.Run(ctx, cat, window)
	if err != nil {
		return err
	}

	report.PrintSummary(out, report.NewSummary(run, "", report.RunConfig{
		Dataset:   opts.dataset,
		Processor: proc.Name(),
		Format:    string(format),
		PerBand:   opts.perBand,
		ImageDir:  opts.imgDir,
		Skip:      window.Skip,
		Top:       window.Top,
	}))
	return nil
}

// processedFileName is {name}_processed.png, with the cutout naming fallback for unnamed rows.
func processedFileName(rec catalog.Record) string {
	stem := strings.TrimSuffix(images.FileName(rec.Name, rec.RA, rec.Dec, images.FormatJPEG, ""), images.FormatJPEG.Ext())
	return stem + "_processed.png"
}

// encodePNG writes the plane as 16-bit grayscale, clipping to [0,1].
func encodePNG(p images.Plane) []byte {
	img := image.NewGray16(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			v := p.At(x, y)
			if math.IsNaN(v) || v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			i := img.PixOffset(x, y)
			g := uint16(math.Round(v * 0xffff))
			img.Pix[i] = uint8(g >> 8)
			img.Pix[i+1] = uint8(g)
		}
	}

	var buf bytes.Buffer
	// Encoding an in-memory Gray16 cannot fail.
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
