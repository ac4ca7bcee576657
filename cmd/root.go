package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ludanortmun/bargal/internal/galaxycmd"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bargal",
		Short: "Barred galaxy classification from Legacy Survey cutouts",
		Long: `Bargal downloads g/r/z cutouts of catalogued galaxies from the DESI Legacy
Imaging Surveys, reduces them to a single diagnostic image and classifies each
galaxy as barred or unbarred.

Survey access can be tuned with BARGAL_SURVEY_URL, BARGAL_SURVEY_LAYER,
BARGAL_CUTOUT_SIZE, BARGAL_PIXSCALE, BARGAL_REQUESTS_PER_SECOND and
BARGAL_HTTP_TIMEOUT, read from the environment or a .env file.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(galaxycmd.NewClassifyCmd())
	cmd.AddCommand(galaxycmd.NewDownloadCmd())
	cmd.AddCommand(galaxycmd.NewCutoutCmd())
	cmd.AddCommand(galaxycmd.NewPreprocessCmd())

	return cmd
}
