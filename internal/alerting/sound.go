package alerting

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Player plays a sound file to completion.
type Player interface {
	Play(ctx context.Context, path string) error
}

// SoundNotifier plays the local alert asset. Playback blocks until the sound ends.
type SoundNotifier struct {
	player Player
	path   string
	logger zerolog.Logger
}

// NewSoundNotifier wires a player to the configured asset path.
func NewSoundNotifier(player Player, path string, logger zerolog.Logger) *SoundNotifier {
	return &SoundNotifier{
		player: player,
		path:   path,
		logger: logger.With().Str("component", "alert_sound").Logger(),
	}
}

// Notify ignores the notification content and plays the alert sound.
func (s *SoundNotifier) Notify(ctx context.Context, note Notification) error {
	if err := s.player.Play(ctx, s.path); err != nil {
		return fmt.Errorf("play alert sound %s: %w", s.path, err)
	}
	s.logger.Debug().Str("alert_id", note.ID.String()).Msg("alert sound played")
	return nil
}

var _ Notifier = (*SoundNotifier)(nil)
