package commands

import "context"

// Resume continues a paused track.
func (m *Music) Resume(ctx context.Context, guildID string) string {
	s, err := m.session(guildID)
	if err == nil {
		err = s.Resume(ctx)
	}
	if err != nil {
		return errorMessage(err)
	}
	return "▶️ Resumed."
}
