package galaxycmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ludanortmun/bargal/internal/classifier"
	"github.com/ludanortmun/bargal/internal/images"
	"github.com/ludanortmun/bargal/internal/pipeline"
	"github.com/ludanortmun/bargal/internal/processing"
)

// NewClassifyCmd creates the classify command
func NewClassifyCmd() *cobra.Command {
	var opts classifyOptions
	var verbose bool

	cmd := &cobra.Command{
		Use:   "classify DATASET",
		Short: "Classify catalogued galaxies as barred or unbarred",
		Long: `Classify every galaxy of a catalog (CSV, TSV, FITS table or parquet) as
barred or unbarred.

Each galaxy's g/r/z cutout is taken from the image directory when present and
downloaded from the Legacy Survey otherwise. The bands are reduced to one
diagnostic image by the selected processor and scored by the selected model.
The report keeps every catalog column and adds is_barred_pred.`,
		Example: `  # Classify a whole catalog, caching cutouts in ./img
  bargal classify galaxies.csv --img-dir img

  # Classify rows 100-149 from JPEG composites and print the table
  bargal classify galaxies.csv -s 100 -t 50 --format jpeg --print-report`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose)
			opts.dataset = args[0]
			source := images.NewFetcher(images.FetcherConfigFromEnv())
			return executeClassify(cmd.Context(), opts, source, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.imgDir, "img-dir", "", "Directory for cached cutouts (read on hits, written on misses)")
	cmd.Flags().StringVarP(&opts.outputPath, "output-path", "o", "", "Report path (default report_<timestamp>.csv)")
	addWindowFlags(cmd, &opts.skip, &opts.top)
	cmd.Flags().StringVar(&opts.model, "model", classifier.DefaultModel, fmt.Sprintf("Model (%s)", joinNames(classifier.DefaultRegistry().Names())))
	cmd.Flags().StringVar(&opts.modelFile, "model-file", "", "Model artifact overriding the bundled weights")
	cmd.Flags().StringVar(&opts.processor, "processor", processing.DefaultProcessor, fmt.Sprintf("Band processor (%s)", joinNames(processing.DefaultRegistry().Names())))
	addImageFlags(cmd, &opts.format, &opts.perBand, &opts.concurrency)
	cmd.Flags().BoolVar(&opts.printReport, "print-report", false, "Print the report as a markdown table")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	return cmd
}

// NewDownloadCmd creates the download command
func NewDownloadCmd() *cobra.Command {
	var opts downloadOptions
	var verbose bool

	cmd := &cobra.Command{
		Use:   "download DATASET",
		Short: "Fill the local image directory for a catalog",
		Long: `Download the cutouts of every catalogued galaxy into an image directory.

Files already present are left untouched, so an interrupted download can be
resumed by running the same command again.`,
		Example: `  # Download FITS cubes for the first 500 galaxies
  bargal download galaxies.csv -o img -t 500

  # Download each band as its own JPEG
  bargal download galaxies.csv -o img --format jpeg --per-band`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose)
			opts.dataset = args[0]
			source := images.NewFetcher(images.FetcherConfigFromEnv())
			return executeDownload(cmd.Context(), opts, source, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "img", "Image directory")
	addWindowFlags(cmd, &opts.skip, &opts.top)
	addImageFlags(cmd, &opts.format, &opts.perBand, &opts.concurrency)
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	return cmd
}

// NewCutoutCmd creates the cutout command
func NewCutoutCmd() *cobra.Command {
	var opts cutoutOptions
	var verbose bool

	cmd := &cobra.Command{
		Use:   "cutout RA DEC",
		Short: "Download a single cutout at the given coordinates",
		Long: `Download one Legacy Survey cutout centred on RA/DEC (degrees) into the
output directory. Existing files are overwritten.`,
		Example: `  bargal cutout 49.9207 -19.4113 --name "NGC 1300"
  bargal cutout 49.9207 -19.4113 --format jpeg --by-bands`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose)
			var err error
			if opts.ra, err = strconv.ParseFloat(args[0], 64); err != nil {
				return fmt.Errorf("invalid RA %q: %w", args[0], err)
			}
			if opts.dec, err = strconv.ParseFloat(args[1], 64); err != nil {
				return fmt.Errorf("invalid DEC %q: %w", args[1], err)
			}
			source := images.NewFetcher(images.FetcherConfigFromEnv())
			return executeCutout(cmd.Context(), opts, source, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "File name stem (default cutout_ra<RA>_dec<DEC>)")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", ".", "Output directory")
	cmd.Flags().BoolVar(&opts.byBands, "by-bands", false, "Save each band as its own JPEG")
	cmd.Flags().StringVar(&opts.format, "format", string(images.FormatFITS), "Cutout format (jpeg or fits)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	return cmd
}

// NewPreprocessCmd creates the preprocess command
func NewPreprocessCmd() *cobra.Command {
	var opts preprocessOptions
	var verbose bool

	cmd := &cobra.Command{
		Use:   "preprocess DATASET IMG_DIR",
		Short: "Write the processed image of every catalogued galaxy",
		Long: `Run the band processor over the cutouts in IMG_DIR and save each result
as {name}_processed.png. Missing cutouts are downloaded into IMG_DIR first.`,
		Example: `  bargal preprocess galaxies.csv img -o processed --processor SQRLOG_GR_DIFF`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose)
			opts.dataset = args[0]
			opts.imgDir = args[1]
			source := images.NewFetcher(images.FetcherConfigFromEnv())
			return executePreprocess(cmd.Context(), opts, source, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "processed", "Directory for processed PNGs")
	addWindowFlags(cmd, &opts.skip, &opts.top)
	cmd.Flags().StringVar(&opts.processor, "processor", processing.DefaultProcessor, fmt.Sprintf("Band processor (%s)", joinNames(processing.DefaultRegistry().Names())))
	addImageFlags(cmd, &opts.format, &opts.perBand, &opts.concurrency)
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	return cmd
}

func addWindowFlags(cmd *cobra.Command, skip, top *int) {
	cmd.Flags().IntVarP(skip, "skip", "s", 0, "Number of catalog rows to skip")
	cmd.Flags().IntVarP(top, "top", "t", 0, "Maximum number of rows to process (0 for all)")
}

func addImageFlags(cmd *cobra.Command, format *string, perBand *bool, concurrency *int) {
	cmd.Flags().StringVar(format, "format", string(images.FormatFITS), "Cutout format (jpeg or fits)")
	cmd.Flags().BoolVar(perBand, "per-band", false, "Store each band as its own JPEG (ignored for fits)")
	cmd.Flags().IntVar(concurrency, "concurrency", pipeline.DefaultConcurrency, "Number of galaxies handled in parallel")
}
