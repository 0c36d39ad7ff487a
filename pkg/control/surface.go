package control

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Baguetta/pkg/playback"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Messenger is the part of *discordgo.Session a Surface needs.
type Messenger interface {
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Surface keeps a single now playing message per session up to date. The first
// post is a follow up to the interaction that started the session, leaving the
// command's own reply alone; later posts edit that message in place. Edits are
// rate limited.
type Surface struct {
	api         Messenger
	channelID   string
	interaction *discordgo.Interaction
	limiter     *rate.Limiter
	logger      zerolog.Logger

	mu      sync.Mutex
	message *discordgo.Message
}

var _ playback.ControlSurface = (*Surface)(nil)

// NewSurface creates a surface for channelID. interaction may be nil, in which
// case the first post sends a new message.
func NewSurface(api Messenger, channelID string, interaction *discordgo.Interaction, editsPerSecond float64, logger zerolog.Logger) *Surface {
	return &Surface{
		api:         api,
		channelID:   channelID,
		interaction: interaction,
		limiter:     rate.NewLimiter(rate.Limit(editsPerSecond), 1),
		logger:      logger,
	}
}

// PostOrUpdate shows text with controls attached.
func (s *Surface) PostOrUpdate(ctx context.Context, text string, controls []playback.Control) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	components := Components(controls)
	opt := discordgo.WithContext(ctx)

	if s.message == nil && s.interaction != nil {
		msg, err := s.api.FollowupMessageCreate(s.interaction, true, &discordgo.WebhookParams{
			Content:    text,
			Components: components,
		}, opt)
		// The interaction is only usable once
		s.interaction = nil
		if err == nil {
			s.message = msg
			return nil
		}
		s.logger.Debug().Err(err).Msg("Interaction follow up failed, sending a new message")
	}

	if s.message != nil {
		edit := discordgo.NewMessageEdit(s.message.ChannelID, s.message.ID).SetContent(text)
		edit.Components = &components
		msg, err := s.api.ChannelMessageEditComplex(edit, opt)
		if err == nil {
			s.message = msg
			return nil
		}
		s.logger.Debug().Err(err).Str("message_id", s.message.ID).Msg("Now playing edit failed, sending a new message")
		s.message = nil
	}

	msg, err := s.api.ChannelMessageSendComplex(s.channelID, &discordgo.MessageSend{
		Content:    text,
		Components: components,
	}, opt)
	if err != nil {
		return fmt.Errorf("failed to send now playing message: %w", err)
	}
	s.message = msg
	return nil
}

// MessageID returns the ID of the now playing message, if one was posted.
func (s *Surface) MessageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.message == nil {
		return ""
	}
	return s.message.ID
}
