package app

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"feewatch/internal/scheduler"
	"feewatch/internal/service"
)

// statsSource is satisfied by *service.Service.
type statsSource interface {
	Stats() service.Stats
}

// startStatusReporter logs a feed summary every interval and warns once updates go stale.
func (a *App) startStatusReporter(ctx context.Context, source statsSource) {
	interval := a.Config.Feed.StatusInterval
	if interval <= 0 {
		return
	}

	started := time.Now()
	sched := scheduler.New(scheduler.Options{Interval: interval}, a.Logger)
	go sched.Run(ctx, func(ctx context.Context, at time.Time) error {
		reportStatus(a.Logger, source.Stats(), started, at, a.Config.Feed.StaleAfter)
		return nil
	})
}

func reportStatus(logger zerolog.Logger, stats service.Stats, started, now time.Time, staleAfter time.Duration) bool {
	since := stats.LastUpdate
	if since.IsZero() {
		since = started
	}
	stale := staleAfter > 0 && now.Sub(since) > staleAfter

	event := logger.Info()
	if stale {
		event = logger.Warn()
	}
	event = event.Uint64("updates", stats.Updates).Uint64("alerts", stats.Alerts)
	if !stats.LastUpdate.IsZero() {
		event = event.Int("blocks", stats.Blocks).
			Float64("lowest_min_fee", stats.LowestMinFee).
			Str("last_update", humanize.RelTime(stats.LastUpdate, now, "ago", "from now"))
	}

	if stale {
		event.Msg("no projected blocks received recently")
	} else {
		event.Msg("feed status")
	}
	return stale
}
