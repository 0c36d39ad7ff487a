package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/latoulicious/Baguetta/pkg/playback"
)

// NowPlaying describes the track currently rendered.
func (m *Music) NowPlaying(ctx context.Context, guildID string) string {
	s, err := m.session(guildID)
	if err != nil {
		return "🔇 Nothing is currently playing."
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return "🔇 Nothing is currently playing."
	}

	current, ok := snap.NowPlaying()
	if !ok {
		return "🔇 Nothing is currently playing."
	}

	status := "🎶 Now playing"
	if snap.State == playback.StatePaused {
		status = "⏸️ Paused"
	}
	response := fmt.Sprintf("%s: **%s**\n%s", status, displayTitle(current), current.Locator)
	if current.RequestedBy != "" {
		response += fmt.Sprintf("\nRequested by %s, %s ago", current.RequestedBy, time.Since(current.AddedAt).Round(time.Second))
	}
	if n := len(snap.UpNext()); n > 0 {
		response += fmt.Sprintf("\n%d more in queue", n)
	}
	return response
}
