package mempool

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	// BlocksKey is the payload field carrying projected blocks.
	BlocksKey = "mempool-blocks"

	medianFeeKey = "medianFee"
	feeRangeKey  = "feeRange"
	totalFeesKey = "totalFees"
	txCountKey   = "nTx"
)

var decSatsPerCoin = decimal.NewFromInt(SatsPerCoin)

// DecodeMessage parses a raw text frame and extracts its projected blocks.
// Only invalid JSON yields an error; any unexpected shape decodes to an empty slice.
func DecodeMessage(data []byte) ([]BlockFeeSummary, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse feed message: %w", err)
	}
	// 一帧只能包含一个 JSON 值
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("parse feed message: trailing data after JSON value")
	}
	return DecodeBlocks(payload), nil
}

// DecodeBlocks extracts projected blocks from a generic JSON value.
//
// A block must carry all of medianFee, feeRange, totalFees and nTx or it is skipped.
// Values inside those fields are read leniently and fall back to zero.
func DecodeBlocks(payload any) []BlockFeeSummary {
	root, ok := payload.(map[string]any)
	if !ok {
		return []BlockFeeSummary{}
	}
	raw, ok := root[BlocksKey].([]any)
	if !ok {
		return []BlockFeeSummary{}
	}

	blocks := make([]BlockFeeSummary, 0, len(raw))
	for i, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}

		median, hasMedian := entry[medianFeeKey]
		feeRange, hasRange := entry[feeRangeKey]
		totalFees, hasTotal := entry[totalFeesKey]
		txCount, hasTx := entry[txCountKey]
		if !hasMedian || !hasRange || !hasTotal || !hasTx {
			continue
		}

		blocks = append(blocks, BlockFeeSummary{
			Position:  i,
			MedianFee: asFloat(median),
			FeeRange:  asFeeRange(feeRange),
			TotalFee:  asCoins(totalFees),
			TxCount:   asUint(txCount),
		})
	}
	return blocks
}

func asFeeRange(v any) FeeRange {
	values, ok := v.([]any)
	if !ok || len(values) == 0 {
		return FeeRange{}
	}
	return FeeRange{
		Min: asFloat(values[0]),
		Max: asFloat(values[len(values)-1]),
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return 0
	}
}

func asUint(v any) uint64 {
	switch n := v.(type) {
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return 0
		}
		return u
	case float64:
		if n < 0 || n != math.Trunc(n) || n > math.MaxUint64 {
			return 0
		}
		return uint64(n)
	case int:
		if n < 0 {
			return 0
		}
		return uint64(n)
	case int64:
		if n < 0 {
			return 0
		}
		return uint64(n)
	case uint64:
		return n
	default:
		return 0
	}
}

// asCoins converts a smallest-unit amount into whole coins without float drift.
func asCoins(v any) float64 {
	var amount decimal.Decimal
	switch n := v.(type) {
	case json.Number:
		parsed, err := decimal.NewFromString(n.String())
		if err != nil {
			return 0
		}
		amount = parsed
	default:
		f := asFloat(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		amount = decimal.NewFromFloat(f)
	}
	return amount.Div(decSatsPerCoin).InexactFloat64()
}
