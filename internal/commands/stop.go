package commands

import "context"

// Stop ends playback, clears the queue and leaves the voice channel.
func (m *Music) Stop(ctx context.Context, guildID string) string {
	s, err := m.session(guildID)
	if err == nil {
		err = s.Stop(ctx)
	}
	if err != nil {
		return errorMessage(err)
	}
	return "⏹️ Stopped the music and cleared the queue."
}
