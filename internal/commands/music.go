package commands

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Baguetta/pkg/database"
	"github.com/latoulicious/Baguetta/pkg/playback"
	"github.com/latoulicious/Baguetta/pkg/voice"
	"github.com/rs/zerolog"
)

// VoiceJoiner connects to the voice channel of a user.
type VoiceJoiner func(ctx context.Context, guildID, userID string) (playback.Transport, error)

// SinkFactory creates the audio sink of a new session.
type SinkFactory func(guildID string) playback.Sink

// SurfaceFactory creates the now playing surface of a new session. interaction is
// the command that started the session, if any.
type SurfaceFactory func(channelID string, interaction *discordgo.Interaction) playback.ControlSurface

// PlaylistResolver expands a playlist URL into tracks.
type PlaylistResolver interface {
	ResolvePlaylist(ctx context.Context, url, requestedBy string) (string, []*playback.Track, error)
}

// HistoryReader reads the play history of a guild.
type HistoryReader interface {
	RecentPlays(ctx context.Context, guildID string, limit int) ([]database.PlayRecord, error)
}

// Request identifies who invoked a command and where.
type Request struct {
	GuildID     string
	ChannelID   string
	UserID      string
	Username    string
	Interaction *discordgo.Interaction
}

// Music implements the music commands on top of a session registry.
type Music struct {
	registry   *playback.Registry
	join       VoiceJoiner
	newSink    SinkFactory
	newSurface SurfaceFactory
	playlists  PlaylistResolver
	history    HistoryReader
	logger     zerolog.Logger

	// serializes session creation per guild so a guild never joins voice twice
	guildLocks sync.Map
}

// Deps are the collaborators of Music. Playlists and History may be nil.
type Deps struct {
	Registry   *playback.Registry
	Join       VoiceJoiner
	NewSink    SinkFactory
	NewSurface SurfaceFactory
	Playlists  PlaylistResolver
	History    HistoryReader
	Logger     zerolog.Logger
}

// NewMusic creates the music commands.
func NewMusic(d Deps) *Music {
	return &Music{
		registry:   d.Registry,
		join:       d.Join,
		newSink:    d.NewSink,
		newSurface: d.NewSurface,
		playlists:  d.Playlists,
		history:    d.History,
		logger:     d.Logger,
	}
}

func (m *Music) guildLock(guildID string) *sync.Mutex {
	lock, _ := m.guildLocks.LoadOrStore(guildID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// ensureSession returns the guild's session, joining the requester's voice
// channel and creating one if needed.
func (m *Music) ensureSession(ctx context.Context, req Request) (*playback.Session, bool, error) {
	lock := m.guildLock(req.GuildID)
	lock.Lock()
	defer lock.Unlock()

	if s, ok := m.registry.GetSession(req.GuildID); ok {
		return s, false, nil
	}

	transport, err := m.join(ctx, req.GuildID, req.UserID)
	if err != nil {
		return nil, false, err
	}

	opts := []playback.Option{}
	if m.newSurface != nil {
		opts = append(opts, playback.WithControlSurface(m.newSurface(req.ChannelID, req.Interaction)))
	}

	s, err := m.registry.CreateSession(req.GuildID, m.newSink(req.GuildID), transport, opts...)
	if err != nil {
		_ = transport.Disconnect()
		return nil, false, err
	}
	return s, true, nil
}

// withSession runs fn with a live session, creating one on demand. A session
// that closed between lookup and use is replaced once. A session created here
// is stopped again if fn fails.
func (m *Music) withSession(ctx context.Context, req Request, fn func(*playback.Session, bool) error) error {
	for attempt := 0; ; attempt++ {
		s, created, err := m.ensureSession(ctx, req)
		if err != nil {
			return err
		}
		err = fn(s, created)
		if err != nil && created {
			// A session nobody queued into would hold the voice connection forever
			if stopErr := s.Stop(context.Background()); stopErr != nil && !errors.Is(stopErr, playback.ErrSessionClosed) {
				m.logger.Warn().Err(stopErr).Str("guild_id", req.GuildID).Msg("Failed to stop unused session")
			}
		}
		if errors.Is(err, playback.ErrSessionClosed) && attempt == 0 {
			m.logger.Debug().Str("guild_id", req.GuildID).Msg("Session closed under us, creating a new one")
			continue
		}
		return err
	}
}

// session returns the guild's existing session.
func (m *Music) session(guildID string) (*playback.Session, error) {
	s, ok := m.registry.GetSession(guildID)
	if !ok {
		return nil, playback.ErrNoSession
	}
	return s, nil
}

// errorMessage maps command errors to user facing replies.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, playback.ErrNoSession), errors.Is(err, playback.ErrSessionClosed):
		return "❌ No music is playing."
	case errors.Is(err, playback.ErrNothingPlaying):
		return "❌ Nothing is playing right now."
	case errors.Is(err, playback.ErrNotPaused):
		return "❌ Playback is not paused."
	case errors.Is(err, playback.ErrQueueFull):
		return "❌ The queue is full."
	case errors.Is(err, voice.ErrNotInVoiceChannel):
		return "❌ You must be in a voice channel!"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "❌ That took too long, please try again."
	default:
		return "❌ Something went wrong, please try again."
	}
}
