package commands

import (
	"context"
	"fmt"
)

// Clear removes the upcoming tracks and keeps the current one playing.
func (m *Music) Clear(ctx context.Context, guildID string) string {
	s, err := m.session(guildID)
	if err != nil {
		return errorMessage(err)
	}
	n, err := s.Clear(ctx)
	if err != nil {
		return errorMessage(err)
	}
	if n == 0 {
		return "📭 The queue is already empty."
	}
	return fmt.Sprintf("🗑️ Cleared %d songs from the queue.", n)
}
