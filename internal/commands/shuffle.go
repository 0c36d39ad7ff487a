package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/latoulicious/Baguetta/pkg/playback"
)

// Shuffle randomizes the upcoming tracks.
func (m *Music) Shuffle(ctx context.Context, guildID string) string {
	s, err := m.session(guildID)
	if err != nil {
		return errorMessage(err)
	}
	n, err := s.Shuffle(ctx)
	if errors.Is(err, playback.ErrNotEnoughTracks) {
		return "📭 Need at least 2 upcoming songs to shuffle the queue."
	}
	if err != nil {
		return errorMessage(err)
	}
	return fmt.Sprintf("🔀 Shuffled %d songs.", n)
}
