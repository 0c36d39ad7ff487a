package control

import (
	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Baguetta/pkg/playback"
)

var buttons = map[playback.Control]discordgo.Button{
	playback.ControlPlayPause: {Label: "⏯️ Play/Pause", Style: discordgo.PrimaryButton},
	playback.ControlPlay:      {Label: "▶️ Play", Style: discordgo.SuccessButton},
	playback.ControlPause:     {Label: "⏸️ Pause", Style: discordgo.PrimaryButton},
	playback.ControlSkip:      {Label: "⏭️ Skip", Style: discordgo.SecondaryButton},
}

// Components renders controls as a single row of buttons. Unknown controls are
// skipped.
func Components(controls []playback.Control) []discordgo.MessageComponent {
	row := discordgo.ActionsRow{}
	for _, c := range controls {
		b, ok := buttons[c]
		if !ok {
			continue
		}
		b.CustomID = string(c)
		row.Components = append(row.Components, b)
	}
	if len(row.Components) == 0 {
		return []discordgo.MessageComponent{}
	}
	return []discordgo.MessageComponent{row}
}

// IsControl reports whether customID belongs to a playback button.
func IsControl(customID string) bool {
	_, ok := buttons[playback.Control(customID)]
	return ok
}
