package handlers

import (
	"math/rand"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

var mentionResponses = []string{
	"🥖 Bonjour! Drop a YouTube link with `/play` and I'll bake you a beat.",
	"🎧 Fresh out of the oven. Try `/help` to see what I can play.",
	"🥐 Join a voice channel, then `/play <url>`. I'll handle the rest.",
}

// MessageSender is the part of the Discord API used to answer mentions.
type MessageSender interface {
	ChannelMessageSendReply(channelID, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Mentions replies when somebody mentions the bot.
type Mentions struct {
	api    MessageSender
	logger zerolog.Logger
}

// NewMentions creates a mention responder.
func NewMentions(api MessageSender, logger zerolog.Logger) *Mentions {
	return &Mentions{api: api, logger: logger}
}

// OnMessage is registered with discordgo.Session.AddHandler.
func (m *Mentions) OnMessage(s *discordgo.Session, msg *discordgo.MessageCreate) {
	if s.State == nil || s.State.User == nil {
		return
	}
	m.Handle(s.State.User.ID, msg.Message)
}

// Handle answers msg if it mentions botID.
func (m *Mentions) Handle(botID string, msg *discordgo.Message) {
	// Ignore all messages created by bots, including this one
	if msg.Author == nil || msg.Author.ID == botID || msg.Author.Bot {
		return
	}

	for _, mention := range msg.Mentions {
		if mention.ID != botID {
			continue
		}
		reply := mentionResponses[rand.Intn(len(mentionResponses))]
		if _, err := m.api.ChannelMessageSendReply(msg.ChannelID, reply, msg.Reference()); err != nil {
			m.logger.Warn().Err(err).Str("channel_id", msg.ChannelID).Msg("Failed to answer mention")
		}
		return
	}
}
