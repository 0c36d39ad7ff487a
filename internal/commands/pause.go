package commands

import (
	"context"

	"github.com/latoulicious/Baguetta/pkg/playback"
)

// Pause holds the current track.
func (m *Music) Pause(ctx context.Context, guildID string) string {
	s, err := m.session(guildID)
	if err == nil {
		err = s.Pause(ctx)
	}
	if err != nil {
		return errorMessage(err)
	}
	return "⏸️ Paused."
}

// TogglePause pauses or resumes depending on the current state.
func (m *Music) TogglePause(ctx context.Context, guildID string) string {
	s, err := m.session(guildID)
	if err != nil {
		return errorMessage(err)
	}
	state, err := s.TogglePause(ctx)
	if err != nil {
		return errorMessage(err)
	}
	if state == playback.StatePaused {
		return "⏸️ Paused."
	}
	return "▶️ Resumed."
}
