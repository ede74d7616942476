package alerting

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"feewatch/internal/mempool"
)

// TimestampLayout is the local-time layout used in alert lines.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatBlockLine renders one qualifying block as a human-readable alert line.
func FormatBlockLine(now time.Time, block mempool.BlockFeeSummary, coin string) string {
	return fmt.Sprintf("[%s] projected block: +%d, median fee: ~%s sat/vB, fee range: %s - %s sat/vB, total fees: %s %s, tx count: %s",
		now.Local().Format(TimestampLayout),
		block.Position,
		fixed(block.MedianFee),
		fixed(block.FeeRange.Min),
		fixed(block.FeeRange.Max),
		fixed(block.TotalFee),
		coin,
		FormatCount(block.TxCount),
	)
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Mempool Fee Alert]\n")
	builder.WriteString(fmt.Sprintf("Time: %s\n", note.Time.Local().Format(TimestampLayout)))
	builder.WriteString(fmt.Sprintf("Threshold: %s sat/vB (next %d blocks)\n", fixed(note.ThresholdFeeRate), note.WindowSize))
	if lowest, ok := mempool.LowestFee(note.Blocks); ok {
		builder.WriteString(fmt.Sprintf("Qualifying: %d block(s), lowest min fee %s sat/vB\n", len(note.Blocks), fixed(lowest)))
	}
	for _, block := range note.Blocks {
		builder.WriteString(fmt.Sprintf("+%d: min %s sat/vB, median ~%s, %s txs, %s %s\n",
			block.Position,
			fixed(block.FeeRange.Min),
			fixed(block.MedianFee),
			FormatCount(block.TxCount),
			fixed(block.TotalFee),
			note.CoinSymbol,
		))
	}
	builder.WriteString(fmt.Sprintf("ID: %s", note.ID))
	return builder.String()
}

// FormatCount renders a transaction count with thousands separators over the full uint64 range.
func FormatCount(n uint64) string {
	return humanize.BigComma(new(big.Int).SetUint64(n))
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
