package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var simulateMinFee float64

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次低费率区块并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateMinFee < 0 {
			return errors.New("--min-fee 不能为负数")
		}
		return getApp().SimulateAlert(cmd.Context(), simulateMinFee)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateMinFee, "min-fee", 1, "合成区块的最低费率 (sat/vB)")
}
