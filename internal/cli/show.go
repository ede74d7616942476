package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"feewatch/internal/app"
)

var (
	showLimit   int
	showTimeout time.Duration
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current projected blocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:   showLimit,
			Timeout: showTimeout,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 8, "Number of projected blocks to display")
	showCmd.Flags().DurationVar(&showTimeout, "timeout", 30*time.Second, "How long to wait for the first projection")
}
