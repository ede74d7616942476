package mempool

// Decision is the outcome of evaluating one feed update.
type Decision struct {
	Alert      bool
	Qualifying []BlockFeeSummary
}

// Evaluate inspects the first window blocks by position and reports those whose
// minimum fee rate is strictly below threshold. It has no side effects.
func Evaluate(blocks []BlockFeeSummary, threshold float64, window int) Decision {
	decision := Decision{Qualifying: []BlockFeeSummary{}}
	if window <= 0 {
		return decision
	}

	considered := 0
	for _, block := range blocks {
		if considered >= window || block.Position >= window {
			break
		}
		considered++

		if block.FeeRange.Min < threshold {
			decision.Qualifying = append(decision.Qualifying, block)
		}
	}

	decision.Alert = len(decision.Qualifying) > 0
	return decision
}

// LowestFee returns the smallest minimum fee rate across blocks, or false if blocks is empty.
func LowestFee(blocks []BlockFeeSummary) (float64, bool) {
	if len(blocks) == 0 {
		return 0, false
	}
	lowest := blocks[0].FeeRange.Min
	for _, block := range blocks[1:] {
		if block.FeeRange.Min < lowest {
			lowest = block.FeeRange.Min
		}
	}
	return lowest, true
}
