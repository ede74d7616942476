// Package mempool decodes projected-block fee updates from the mempool feed
// and evaluates them against the configured alert threshold.
package mempool

// SatsPerCoin scales the feed's smallest fee unit to whole coins.
const SatsPerCoin = 100_000_000

// FeeRange holds the lowest and highest fee rate (units per vbyte) of a projected block.
type FeeRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// BlockFeeSummary describes one projected block of a single feed update.
// Position is the index within that update only; it carries no identity across updates.
type BlockFeeSummary struct {
	Position  int      `json:"position"`
	MedianFee float64  `json:"median_fee"`
	FeeRange  FeeRange `json:"fee_range"`
	TotalFee  float64  `json:"total_fee"`
	TxCount   uint64   `json:"tx_count"`
}
