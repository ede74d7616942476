package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	runThreshold float64
	runWindow    int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stream projected blocks and alert when fees drop below the threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := getApp()
		threshold := a.Config.Alerting.ThresholdFeeRate
		window := a.Config.Alerting.WindowSize

		if cmd.Flags().Changed("threshold") {
			if runThreshold < 0 {
				return fmt.Errorf("--threshold must not be negative")
			}
			threshold = runThreshold
		}
		if cmd.Flags().Changed("window") {
			if runWindow <= 0 {
				return fmt.Errorf("--window must be greater than zero")
			}
			window = runWindow
		}

		return a.Monitor(cmd.Context(), threshold, window)
	},
}

func init() {
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 0, "Alert when a block's minimum fee rate (sat/vB) is below this value (defaults to config)")
	runCmd.Flags().IntVar(&runWindow, "window", 0, "Number of upcoming projected blocks to watch (defaults to config)")
}
