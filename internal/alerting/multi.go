package alerting

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"feewatch/internal/metrics"
)

type namedNotifier struct {
	name     string
	notifier Notifier
}

// Multi fans a notification out to every registered channel in order.
// A failing channel does not stop delivery to the rest.
type Multi struct {
	targets []namedNotifier
	logger  zerolog.Logger
}

// NewMulti creates an empty fan-out notifier.
func NewMulti(logger zerolog.Logger) *Multi {
	return &Multi{logger: logger.With().Str("component", "alert_fanout").Logger()}
}

// Add registers a channel.
func (m *Multi) Add(name string, notifier Notifier) {
	if notifier == nil {
		return
	}
	m.targets = append(m.targets, namedNotifier{name: name, notifier: notifier})
}

// Len reports the number of registered channels.
func (m *Multi) Len() int {
	return len(m.targets)
}

// Channels lists registered channel names in delivery order.
func (m *Multi) Channels() []string {
	names := make([]string, 0, len(m.targets))
	for _, t := range m.targets {
		names = append(names, t.name)
	}
	return names
}

// Notify delivers to every channel and joins the failures.
func (m *Multi) Notify(ctx context.Context, note Notification) error {
	var errs []error
	for _, t := range m.targets {
		if err := t.notifier.Notify(ctx, note); err != nil {
			metrics.NotifyFailuresTotal.WithLabelValues(t.name).Inc()
			m.logger.Warn().Err(err).Str("channel", t.name).Str("alert_id", note.ID.String()).Msg("alert delivery failed")
			errs = append(errs, fmt.Errorf("%s: %w", t.name, err))
		}
	}
	return errors.Join(errs...)
}

var _ Notifier = (*Multi)(nil)
