package handlers

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Baguetta/internal/commands"
	"github.com/latoulicious/Baguetta/pkg/control"
	"github.com/latoulicious/Baguetta/pkg/playback"
	"github.com/rs/zerolog"
)

// commandTimeout bounds the work done for a single interaction. Playback itself
// continues in the background.
const commandTimeout = 30 * time.Second

// Responder is the part of the Discord API used to answer interactions.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Handler dispatches slash commands and playback buttons to the music commands.
type Handler struct {
	api    Responder
	music  *commands.Music
	logger zerolog.Logger
}

// NewHandler creates an interaction handler.
func NewHandler(api Responder, music *commands.Music, logger zerolog.Logger) *Handler {
	return &Handler{
		api:    api,
		music:  music,
		logger: logger.With().Str("component", "handlers").Logger(),
	}
}

// OnInteraction is registered with discordgo.Session.AddHandler.
func (h *Handler) OnInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	h.Handle(i.Interaction)
}

// Handle processes one interaction.
func (h *Handler) Handle(i *discordgo.Interaction) {
	user := interactionUser(i)
	if user != nil && user.Bot {
		return
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.handleApplicationCommand(i, user)
	case discordgo.InteractionMessageComponent:
		h.handleComponent(i)
	default:
		h.logger.Debug().Int("type", int(i.Type)).Msg("Unknown interaction type")
	}
}

func (h *Handler) handleApplicationCommand(i *discordgo.Interaction, user *discordgo.User) {
	data := i.ApplicationCommandData()

	if i.GuildID == "" {
		h.respond(i, "❌ Music commands only work in a server.", false)
		return
	}

	// Acknowledge the interaction immediately
	err := h.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("command", data.Name).Msg("Error acknowledging interaction")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	req := commands.Request{
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		Interaction: i,
	}
	if user != nil {
		req.UserID = user.ID
		req.Username = user.Username
	}

	h.logger.Info().
		Str("command", data.Name).
		Str("guild_id", req.GuildID).
		Str("user", req.Username).
		Msg("Slash command received")

	edit := &discordgo.WebhookEdit{}
	var response string

	switch data.Name {
	case "play":
		response = h.music.Play(ctx, req, stringOption(data, "url"))
	case "playlist":
		response = h.music.Playlist(ctx, req, stringOption(data, "url"))
	case "skip":
		response = h.music.Skip(ctx, req.GuildID)
	case "stop":
		response = h.music.Stop(ctx, req.GuildID)
	case "pause":
		response = h.music.Pause(ctx, req.GuildID)
	case "resume":
		response = h.music.Resume(ctx, req.GuildID)
	case "queue":
		response = h.music.Queue(ctx, req.GuildID)
	case "shuffle":
		response = h.music.Shuffle(ctx, req.GuildID)
	case "clear":
		response = h.music.Clear(ctx, req.GuildID)
	case "nowplaying":
		response = h.music.NowPlaying(ctx, req.GuildID)
	case "history":
		response = h.music.History(ctx, req.GuildID)
	case "help":
		edit.Embeds = &[]*discordgo.MessageEmbed{commands.HelpEmbed()}
	case "about":
		edit.Embeds = &[]*discordgo.MessageEmbed{h.music.AboutEmbed()}
	default:
		response = "❌ Unknown command."
	}

	if edit.Embeds == nil {
		edit.Content = &response
	}

	if _, err := h.api.InteractionResponseEdit(i, edit); err != nil {
		h.logger.Error().Err(err).Str("command", data.Name).Msg("Error sending interaction response")
	}
}

// handleComponent routes the buttons of the now playing message.
func (h *Handler) handleComponent(i *discordgo.Interaction) {
	customID := i.MessageComponentData().CustomID
	if !control.IsControl(customID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var response string
	switch playback.Control(customID) {
	case playback.ControlPlayPause:
		response = h.music.TogglePause(ctx, i.GuildID)
	case playback.ControlPlay:
		response = h.music.Resume(ctx, i.GuildID)
	case playback.ControlPause:
		response = h.music.Pause(ctx, i.GuildID)
	case playback.ControlSkip:
		response = h.music.Skip(ctx, i.GuildID)
	}

	h.logger.Debug().Str("control", customID).Str("guild_id", i.GuildID).Msg("Playback button pressed")
	h.respond(i, response, true)
}

func (h *Handler) respond(i *discordgo.Interaction, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := h.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Error responding to interaction")
	}
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func stringOption(data discordgo.ApplicationCommandInteractionData, name string) string {
	for _, option := range data.Options {
		if option.Name == name {
			return option.StringValue()
		}
	}
	return ""
}
