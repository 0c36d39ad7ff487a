package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// SlashCommands are the application commands of the bot.
func SlashCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Play a song from YouTube",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "YouTube URL",
					Required:    true,
				},
			},
		},
		{
			Name:        "playlist",
			Description: "Play a YouTube playlist",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "YouTube playlist URL",
					Required:    true,
				},
			},
		},
		{
			Name:        "skip",
			Description: "Skip the current song",
		},
		{
			Name:        "stop",
			Description: "Stop music and clear the queue",
		},
		{
			Name:        "pause",
			Description: "Pause the current playback",
		},
		{
			Name:        "resume",
			Description: "Resume paused playback",
		},
		{
			Name:        "queue",
			Description: "Show the current queue",
		},
		{
			Name:        "shuffle",
			Description: "Shuffle the upcoming songs",
		},
		{
			Name:        "clear",
			Description: "Remove the upcoming songs from the queue",
		},
		{
			Name:        "nowplaying",
			Description: "Show what's currently playing",
		},
		{
			Name:        "history",
			Description: "Show recently played songs",
		},
		{
			Name:        "about",
			Description: "Show bot information",
		},
		{
			Name:        "help",
			Description: "Show help information",
		},
	}
}

// RegisterSlashCommands overwrites the global application commands with
// SlashCommands.
func RegisterSlashCommands(s *discordgo.Session, appID string) error {
	if appID == "" {
		appID = s.State.User.ID
	}

	log.Info().Int("count", len(SlashCommands())).Msg("Registering global slash commands...")

	registered, err := s.ApplicationCommandBulkOverwrite(appID, "", SlashCommands())
	if err != nil {
		return fmt.Errorf("failed to register slash commands: %w", err)
	}
	for _, cmd := range registered {
		log.Debug().Str("command", cmd.Name).Msg("Registered command")
	}

	log.Info().Msg("All slash commands registered successfully!")
	return nil
}

// DeleteAllSlashCommands deletes all global slash commands
func DeleteAllSlashCommands(s *discordgo.Session, appID string) error {
	if appID == "" {
		appID = s.State.User.ID
	}

	commands, err := s.ApplicationCommands(appID, "")
	if err != nil {
		return fmt.Errorf("failed to fetch commands: %w", err)
	}

	for _, cmd := range commands {
		if err := s.ApplicationCommandDelete(appID, "", cmd.ID); err != nil {
			return fmt.Errorf("failed to delete command %s: %w", cmd.Name, err)
		}
		log.Info().Str("command", cmd.Name).Msg("Deleted command")
	}
	return nil
}
