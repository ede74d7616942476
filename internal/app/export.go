package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"feewatch/internal/mempool"
)

// Export captures the current projection and writes it as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxBlocks = a.Config.ResolveMaxBlocks(opts.MaxBlocks)

	blocks, err := a.captureBlocks(ctx, opts.Timeout)
	if err != nil {
		return err
	}
	if len(blocks) > opts.MaxBlocks {
		blocks = blocks[:opts.MaxBlocks]
	}
	a.Logger.Info().Int("exported", len(blocks)).Msg("exporting projected blocks")

	capturedAt := time.Now().UTC()
	if opts.CSVPath != "" {
		if err := writeBlocksCSV(opts.CSVPath, capturedAt, blocks); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeBlocksPNG(opts.PNGPath, blocks, a.Config.Alerting.ThresholdFeeRate); err != nil {
			return err
		}
	}

	return nil
}

func writeBlocksCSV(path string, capturedAt time.Time, blocks []mempool.BlockFeeSummary) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{"captured_at", "position", "median_fee", "min_fee", "max_fee", "total_fee", "tx_count"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, block := range blocks {
		record := []string{
			capturedAt.Format(time.RFC3339),
			strconv.Itoa(block.Position),
			decimal.NewFromFloat(block.MedianFee).String(),
			decimal.NewFromFloat(block.FeeRange.Min).String(),
			decimal.NewFromFloat(block.FeeRange.Max).String(),
			decimal.NewFromFloat(block.TotalFee).String(),
			strconv.FormatUint(block.TxCount, 10),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeBlocksPNG(path string, blocks []mempool.BlockFeeSummary, threshold float64) error {
	if len(blocks) < 2 {
		return fmt.Errorf("need at least 2 projected blocks to chart, got %d", len(blocks))
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]float64, len(blocks))
	minFee := make([]float64, len(blocks))
	median := make([]float64, len(blocks))
	maxFee := make([]float64, len(blocks))
	limit := make([]float64, len(blocks))

	for i, block := range blocks {
		x[i] = float64(block.Position)
		minFee[i] = block.FeeRange.Min
		median[i] = block.MedianFee
		maxFee[i] = block.FeeRange.Max
		limit[i] = threshold
	}

	feeFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}
	positionFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "+%.0f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name:           "Projected block",
			ValueFormatter: positionFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Fee rate (sat/vB)",
			ValueFormatter: feeFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "Min", XValues: x, YValues: minFee},
			chart.ContinuousSeries{Name: "Median", XValues: x, YValues: median},
			chart.ContinuousSeries{Name: "Max", XValues: x, YValues: maxFee},
			chart.ContinuousSeries{
				Name:    "Threshold",
				XValues: x,
				YValues: limit,
				Style:   chart.Style{StrokeDashArray: []float64{5, 5}},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatFee(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
