package commands

import (
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// HelpEmbed lists the available commands.
func HelpEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "David Baguetta",
		Description: "Here are all the available commands for the bot:",
		Color:       0x00ff00,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Music Commands",
				Value: strings.Join([]string{
					"• `/play <url>` - Play a YouTube video by URL",
					"• `/playlist <url>` - Queue every video of a YouTube playlist",
					"• `/queue` - List the current queue",
					"• `/shuffle` - Shuffle the upcoming songs",
					"• `/clear` - Remove the upcoming songs",
					"• `/nowplaying` - Show the currently playing track",
					"• `/pause` - Pause the current playback",
					"• `/resume` - Resume paused playback",
					"• `/skip` - Skip the currently playing track",
					"• `/stop` - Stop playback and disconnect from voice channel",
					"• `/history` - Show recently played tracks",
					"• `/about` - Show bot information",
				}, "\n"),
				Inline: false,
			},
			{
				Name: "💡 Tips",
				Value: strings.Join([]string{
					"• Join a voice channel **before** using music commands",
					"• Only **YouTube links** are currently supported",
					"• The buttons under the now playing message pause and skip",
				}, "\n"),
				Inline: false,
			},
		},
	}
}
