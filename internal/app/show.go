package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"feewatch/internal/alerting"
	"feewatch/internal/mempool"
)

// Show prints the current projection as a table, marking blocks that would alert.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	blocks, err := a.captureBlocks(ctx, opts.Timeout)
	if err != nil {
		return err
	}
	if opts.Limit > 0 && len(blocks) > opts.Limit {
		blocks = blocks[:opts.Limit]
	}

	decision := mempool.Evaluate(blocks, a.Config.Alerting.ThresholdFeeRate, a.Config.Alerting.WindowSize)
	return writeBlocksTable(a.Out, blocks, decision, a.Config.Feed.CoinSymbol)
}

func writeBlocksTable(out io.Writer, blocks []mempool.BlockFeeSummary, decision mempool.Decision, coin string) error {
	qualifying := make(map[int]bool, len(decision.Qualifying))
	for _, block := range decision.Qualifying {
		qualifying[block.Position] = true
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Block\tMedian\tMin\tMax\tTotal (%s)\tTxs\tAlert\n", coin)

	for _, block := range blocks {
		mark := ""
		if qualifying[block.Position] {
			mark = "*"
		}
		fmt.Fprintf(
			writer,
			"+%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			block.Position,
			formatFee(block.MedianFee),
			formatFee(block.FeeRange.Min),
			formatFee(block.FeeRange.Max),
			formatFee(block.TotalFee),
			alerting.FormatCount(block.TxCount),
			mark,
		)
	}

	return writer.Flush()
}
