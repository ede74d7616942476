package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"feewatch/internal/feed"
	"feewatch/internal/mempool"
)

const defaultSnapshotTimeout = 30 * time.Second

// ErrNoProjection is returned when the feed ends before delivering projected blocks.
var ErrNoProjection = errors.New("feed closed before any projected blocks arrived")

// captureBlocks subscribes to the feed and returns the first non-empty projection.
func (a *App) captureBlocks(ctx context.Context, timeout time.Duration) ([]mempool.BlockFeeSummary, error) {
	if timeout <= 0 {
		timeout = defaultSnapshotTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var captured []mempool.BlockFeeSummary
	handler := feed.HandlerFunc(func(ctx context.Context, data []byte) {
		if captured != nil {
			return
		}
		blocks, err := mempool.DecodeMessage(data)
		if err != nil || len(blocks) == 0 {
			return
		}
		captured = blocks
		cancel()
	})

	if err := feed.NewClient(a.feedOptions(), a.Logger).Run(ctx, handler); err != nil {
		return nil, err
	}
	if captured == nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("no projected blocks within %s", timeout)
		}
		return nil, ErrNoProjection
	}
	return captured, nil
}
