package alerting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"feewatch/internal/mempool"
)

// Notification 封装一次手续费告警的上下文。
type Notification struct {
	ID               uuid.UUID
	Time             time.Time
	ThresholdFeeRate float64
	WindowSize       int
	CoinSymbol       string
	Blocks           []mempool.BlockFeeSummary
}

// NewNotification stamps a notification for the qualifying blocks of one update.
func NewNotification(now time.Time, threshold float64, window int, coin string, blocks []mempool.BlockFeeSummary) Notification {
	return Notification{
		ID:               uuid.New(),
		Time:             now,
		ThresholdFeeRate: threshold,
		WindowSize:       window,
		CoinSymbol:       coin,
		Blocks:           blocks,
	}
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, note Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, note Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, note Notification) error {
	return f(ctx, note)
}

// Event is the wire representation published to brokers.
type Event struct {
	ID               string                    `json:"id"`
	Time             time.Time                 `json:"time"`
	ThresholdFeeRate float64                   `json:"threshold_fee_rate"`
	WindowSize       int                       `json:"window_size"`
	CoinSymbol       string                    `json:"coin_symbol"`
	Blocks           []mempool.BlockFeeSummary `json:"blocks"`
}

// Event converts the notification into its published form.
func (n Notification) Event() Event {
	return Event{
		ID:               n.ID.String(),
		Time:             n.Time.UTC(),
		ThresholdFeeRate: n.ThresholdFeeRate,
		WindowSize:       n.WindowSize,
		CoinSymbol:       n.CoinSymbol,
		Blocks:           n.Blocks,
	}
}

var _ Notifier = NotifierFunc(nil)
