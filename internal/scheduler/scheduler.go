package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked once per interval with the tick time.
type TickFunc func(ctx context.Context, at time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval time.Duration
	// AlignToStart fires on wall-clock multiples of Interval instead of relative to Run.
	AlignToStart bool
}

// Scheduler runs a periodic job alongside the feed, e.g. the status reporter.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance. Interval must be positive.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks until ctx is cancelled, invoking tick on every interval. Tick errors
// are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) {
	next := s.nextTick(time.Now())
	for {
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case at := <-timer.C:
			if err := tick(ctx, at); err != nil {
				s.logger.Warn().Err(err).Time("at", at).Msg("scheduled tick failed")
			}
		}

		next = next.Add(s.opts.Interval)
		if now := time.Now(); next.Before(now) {
			// 处理耗时超过一个周期时跳过错过的 tick
			next = s.nextTick(now)
		}
	}
}

func (s *Scheduler) nextTick(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	next := now.Truncate(s.opts.Interval)
	if !next.After(now) {
		next = next.Add(s.opts.Interval)
	}
	return next
}
