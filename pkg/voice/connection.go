package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"
	"github.com/latoulicious/Baguetta/pkg/playback"
	"github.com/rs/zerolog"
)

const (
	joinAttempts     = 3
	joinRetryDelay   = time.Second
	readyTimeout     = 10 * time.Second
	readyPollEvery   = 100 * time.Millisecond
	frameSendTimeout = 5 * time.Second
)

var (
	ErrNotInVoiceChannel = errors.New("you must be in a voice channel to play music")
	ErrVoiceNotReady     = errors.New("voice connection timed out")
	ErrFrameSendTimeout  = errors.New("timeout sending opus frame")
)

// frameTarget receives encoded Opus frames from a Sink.
type frameTarget interface {
	sendFrame(ctx context.Context, frame []byte) error
	speaking(on bool)
}

// Connection is a joined voice channel. It is the transport a playback session
// owns and releases exactly once.
type Connection struct {
	vc        *discordgo.VoiceConnection
	guildID   string
	channelID string
	logger    zerolog.Logger

	once sync.Once
	err  error
}

var (
	_ playback.Transport = (*Connection)(nil)
	_ frameTarget        = (*Connection)(nil)
)

// UserVoiceChannel returns the ID of the voice channel userID is connected to.
func UserVoiceChannel(s *discordgo.Session, guildID, userID string) (string, error) {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return "", fmt.Errorf("could not find guild: %w", err)
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, nil
		}
	}
	return "", ErrNotInVoiceChannel
}

// Join connects to the voice channel of userID, retrying failed joins, and waits
// until the connection is ready.
func Join(ctx context.Context, s *discordgo.Session, guildID, userID string, logger zerolog.Logger) (*Connection, error) {
	channelID, err := UserVoiceChannel(s, guildID, userID)
	if err != nil {
		return nil, err
	}

	channelName := "Unknown"
	if channel, err := s.State.Channel(channelID); err == nil {
		channelName = channel.Name
	}

	logger = logger.With().Str("guild_id", guildID).Str("channel_id", channelID).Logger()
	logger.Info().Str("channel", channelName).Msg("Joining voice channel")

	var vc *discordgo.VoiceConnection
	attempt := 0
	join := func() error {
		attempt++
		var err error
		vc, err = s.ChannelVoiceJoin(guildID, channelID, false, true)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", joinAttempts).Msg("Voice join attempt failed")
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(joinRetryDelay), joinAttempts-1), ctx)
	if err := backoff.Retry(join, policy); err != nil {
		return nil, fmt.Errorf("failed to join voice channel after %d attempts: %w", attempt, err)
	}

	if err := waitReady(ctx, vc); err != nil {
		_ = vc.Disconnect()
		return nil, err
	}

	logger.Info().Msg("Voice connection ready")
	return &Connection{vc: vc, guildID: guildID, channelID: channelID, logger: logger}, nil
}

func waitReady(ctx context.Context, vc *discordgo.VoiceConnection) error {
	timeout := time.NewTimer(readyTimeout)
	defer timeout.Stop()
	ticker := time.NewTicker(readyPollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return ErrVoiceNotReady
		case <-ticker.C:
			vc.RLock()
			ready := vc.Ready
			vc.RUnlock()
			if ready {
				return nil
			}
		}
	}
}

// ChannelID returns the joined voice channel.
func (c *Connection) ChannelID() string {
	return c.channelID
}

// Disconnect leaves the voice channel. Only the first call has an effect.
func (c *Connection) Disconnect() error {
	c.once.Do(func() {
		c.speaking(false)
		c.err = c.vc.Disconnect()
		c.logger.Info().Msg("Disconnected from voice channel")
	})
	return c.err
}

func (c *Connection) sendFrame(ctx context.Context, frame []byte) error {
	timer := time.NewTimer(frameSendTimeout)
	defer timer.Stop()

	select {
	case c.vc.OpusSend <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrFrameSendTimeout
	}
}

func (c *Connection) speaking(on bool) {
	if err := c.vc.Speaking(on); err != nil {
		c.logger.Debug().Err(err).Bool("speaking", on).Msg("Failed to update speaking state")
	}
}
