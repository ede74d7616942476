package cli

import (
	"time"

	"github.com/spf13/cobra"

	"feewatch/internal/app"
)

var (
	exportPNGPath   string
	exportCSVPath   string
	exportMaxBlocks int
	exportTimeout   time.Duration
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current projected blocks as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxBlocks: exportMaxBlocks,
			Timeout:   exportTimeout,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxBlocks, "max-blocks", 0, "Maximum projected blocks to export (defaults to config)")
	exportCmd.Flags().DurationVar(&exportTimeout, "timeout", 30*time.Second, "How long to wait for the first projection")
}
