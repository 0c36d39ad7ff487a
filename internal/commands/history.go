package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/latoulicious/Baguetta/pkg/database"
	"github.com/latoulicious/Baguetta/pkg/playback"
)

const historyLimit = 10

var outcomeIcons = map[database.Outcome]string{
	database.OutcomeFinished: "✅",
	database.OutcomeSkipped:  "⏭️",
	database.OutcomeFailed:   "❌",
}

// History lists the most recent plays of the guild.
func (m *Music) History(ctx context.Context, guildID string) string {
	if m.history == nil {
		return "❌ Play history is disabled."
	}

	plays, err := m.history.RecentPlays(ctx, guildID, historyLimit)
	if err != nil {
		m.logger.Error().Err(err).Str("guild_id", guildID).Msg("Failed to read play history")
		return errorMessage(err)
	}
	if len(plays) == 0 {
		return "📭 Nothing has been played yet."
	}

	var response strings.Builder
	response.WriteString("📜 **Recently Played**\n\n")
	for i, p := range plays {
		title := p.Title
		if title == "" || title == playback.PendingTitle {
			title = p.Locator
		}
		response.WriteString(fmt.Sprintf("%d. %s **%s** <t:%d:R>\n", i+1, outcomeIcons[p.Outcome], title, p.EndedAt.Unix()))
	}
	return response.String()
}
