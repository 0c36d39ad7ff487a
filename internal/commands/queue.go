package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/latoulicious/Baguetta/pkg/playback"
)

// maxListed bounds how many queued tracks are shown in one reply.
const maxListed = 15

// Queue lists the current and upcoming tracks.
func (m *Music) Queue(ctx context.Context, guildID string) string {
	s, err := m.session(guildID)
	if err != nil {
		return "📭 Queue is empty."
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return "📭 Queue is empty."
	}
	return formatQueue(snap)
}

func formatQueue(snap playback.Snapshot) string {
	if len(snap.Tracks) == 0 {
		return "📭 Queue is empty."
	}

	var response strings.Builder
	response.WriteString("🎵 **Music Queue**\n\n")

	if current, ok := snap.NowPlaying(); ok {
		response.WriteString(fmt.Sprintf("🎶 **Now Playing:** %s%s\n\n", displayTitle(current), requester(current)))
	} else if snap.State == playback.StateFetching {
		response.WriteString(fmt.Sprintf("⏳ **Loading:** %s\n\n", displayTitle(snap.Tracks[0])))
	}

	if upNext := snap.UpNext(); len(upNext) > 0 {
		response.WriteString("📋 **Up Next:**\n")
		for i, t := range upNext {
			if i == maxListed {
				response.WriteString(fmt.Sprintf("… and %d more\n", len(upNext)-maxListed))
				break
			}
			response.WriteString(fmt.Sprintf("%d. **%s**%s\n", i+1, displayTitle(t), requester(t)))
		}
	}
	return response.String()
}

func displayTitle(t playback.Track) string {
	if !t.Resolved() {
		return t.Locator
	}
	return t.Title
}

func requester(t playback.Track) string {
	if t.RequestedBy == "" {
		return ""
	}
	return fmt.Sprintf(" (Requested by: %s)", t.RequestedBy)
}
