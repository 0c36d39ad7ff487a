package commands

import "context"

// Skip ends the current track.
func (m *Music) Skip(ctx context.Context, guildID string) string {
	s, err := m.session(guildID)
	if err == nil {
		err = s.Skip(ctx)
	}
	if err != nil {
		return errorMessage(err)
	}
	return "⏭️ Skipped the baguette beat!"
}
