package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"feewatch/internal/alerting"
	"feewatch/internal/mempool"
	"feewatch/internal/metrics"
)

// Options configure the alert predicate.
type Options struct {
	ThresholdFeeRate float64
	WindowSize       int
	CoinSymbol       string
}

// Service turns feed messages into alerts: decode, evaluate, report, notify.
type Service struct {
	opts     Options
	notifier alerting.Notifier
	logger   zerolog.Logger
	now      func() time.Time

	mu    sync.Mutex
	stats Stats
}

// Stats summarises what the service has seen so far.
type Stats struct {
	Updates      uint64
	Alerts       uint64
	LastUpdate   time.Time
	Blocks       int
	LowestMinFee float64
}

// New constructs the alerting service. notifier may be nil, in which case alerts are only logged.
func New(opts Options, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		opts:     opts,
		notifier: notifier,
		logger:   logger.With().Str("component", "service").Logger(),
		now:      time.Now,
	}
}

// HandleMessage processes one text frame. It never fails: undecodable frames are
// dropped and sink failures are logged.
func (s *Service) HandleMessage(ctx context.Context, data []byte) {
	blocks, err := mempool.DecodeMessage(data)
	if err != nil {
		metrics.FeedDecodeFailuresTotal.Inc()
		s.logger.Debug().Err(err).Int("bytes", len(data)).Msg("dropping undecodable frame")
		return
	}
	s.Process(ctx, blocks)
}

// Process evaluates decoded blocks and fires the notifier when any monitored block qualifies.
// It reports whether an alert was raised.
func (s *Service) Process(ctx context.Context, blocks []mempool.BlockFeeSummary) bool {
	if len(blocks) == 0 {
		return false
	}
	recordBlocks(blocks)

	decision := mempool.Evaluate(blocks, s.opts.ThresholdFeeRate, s.opts.WindowSize)
	s.track(blocks, decision.Alert)
	if !decision.Alert {
		if lowest, ok := mempool.LowestFee(blocks); ok {
			s.logger.Debug().Int("blocks", len(blocks)).Float64("lowest_min_fee", lowest).Msg("update evaluated")
		}
		return false
	}

	metrics.AlertsTotal.Inc()
	now := s.now()
	for _, block := range decision.Qualifying {
		s.logger.Warn().Int("position", block.Position).
			Float64("min_fee", block.FeeRange.Min).
			Msg(alerting.FormatBlockLine(now, block, s.opts.CoinSymbol))
	}

	if s.notifier == nil {
		return true
	}

	note := alerting.NewNotification(now, s.opts.ThresholdFeeRate, s.opts.WindowSize, s.opts.CoinSymbol, decision.Qualifying)
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("alert_id", note.ID.String()).Msg("failed to dispatch alert")
	}
	return true
}

// Stats returns a copy of the running counters. Safe for concurrent use.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Service) track(blocks []mempool.BlockFeeSummary, alerted bool) {
	lowest, _ := mempool.LowestFee(blocks)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Updates++
	if alerted {
		s.stats.Alerts++
	}
	s.stats.LastUpdate = s.now()
	s.stats.Blocks = len(blocks)
	s.stats.LowestMinFee = lowest
}

func recordBlocks(blocks []mempool.BlockFeeSummary) {
	metrics.FeedLastUpdate.SetToCurrentTime()
	metrics.ProjectedBlocks.Set(float64(len(blocks)))
	metrics.BlockMinFeeRate.Reset()
	for _, block := range blocks {
		metrics.BlockMinFeeRate.WithLabelValues(strconv.Itoa(block.Position)).Set(block.FeeRange.Min)
	}
}
