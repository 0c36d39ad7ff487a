package presence

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Baguetta/pkg/playback"
	"github.com/rs/zerolog"
)

// refreshInterval is how often the default presence is recomputed while idle.
const refreshInterval = 5 * time.Minute

// StatusUpdater is the part of the Discord API that sets the bot's status.
type StatusUpdater interface {
	UpdateStatusComplex(usd discordgo.UpdateStatusData) error
}

// GuildCounter reports how many servers the bot is in.
type GuildCounter func() int

type playing struct {
	title string
	seq   uint64
}

// Manager keeps the bot's presence in sync with playback. It implements
// playback.Observer; updates are applied on its own goroutine so observers never
// block a session.
type Manager struct {
	api    StatusUpdater
	guilds GuildCounter
	logger zerolog.Logger

	mu      sync.Mutex
	playing map[string]playing
	seq     uint64

	updates chan discordgo.UpdateStatusData
}

var _ playback.Observer = (*Manager)(nil)

// NewManager creates a presence manager.
func NewManager(api StatusUpdater, guilds GuildCounter, logger zerolog.Logger) *Manager {
	return &Manager{
		api:     api,
		guilds:  guilds,
		logger:  logger.With().Str("component", "presence").Logger(),
		playing: make(map[string]playing),
		updates: make(chan discordgo.UpdateStatusData, 1),
	}
}

// Run applies presence updates until ctx is done. The default presence is set
// immediately and refreshed periodically while nothing is playing.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	m.apply(m.current())
	for {
		select {
		case <-ctx.Done():
			return
		case usd := <-m.updates:
			m.apply(usd)
		case <-ticker.C:
			if m.idle() {
				m.apply(m.defaultPresence())
			}
		}
	}
}

func (m *Manager) apply(usd discordgo.UpdateStatusData) {
	if err := m.api.UpdateStatusComplex(usd); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to update bot presence")
	}
}

// push queues usd, replacing any update not yet applied.
func (m *Manager) push(usd discordgo.UpdateStatusData) {
	for {
		select {
		case m.updates <- usd:
			return
		default:
		}
		select {
		case <-m.updates:
		default:
		}
	}
}

func (m *Manager) idle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.playing) == 0
}

// current returns the presence for the most recently started track, or the
// default presence when nothing plays.
func (m *Manager) current() discordgo.UpdateStatusData {
	m.mu.Lock()
	var latest playing
	for _, p := range m.playing {
		if p.seq > latest.seq {
			latest = p
		}
	}
	m.mu.Unlock()

	if latest.seq == 0 {
		return m.defaultPresence()
	}
	return musicPresence(latest.title)
}

func (m *Manager) defaultPresence() discordgo.UpdateStatusData {
	n := 0
	if m.guilds != nil {
		n = m.guilds()
	}
	return discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{
				Name:  strconv.Itoa(n) + " servers",
				Type:  discordgo.ActivityTypeWatching,
				State: "/play to start the music",
			},
		},
	}
}

func musicPresence(title string) discordgo.UpdateStatusData {
	return discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{
				Name:  title,
				Type:  discordgo.ActivityTypeListening,
				State: title,
			},
		},
	}
}

func (m *Manager) SessionStarted(string) {}

func (m *Manager) SessionClosed(guildID string) {
	m.mu.Lock()
	_, ok := m.playing[guildID]
	delete(m.playing, guildID)
	m.mu.Unlock()

	if ok {
		m.push(m.current())
	}
}

func (m *Manager) TrackStarted(guildID string, track playback.Track) {
	m.mu.Lock()
	m.seq++
	m.playing[guildID] = playing{title: track.Title, seq: m.seq}
	m.mu.Unlock()

	m.push(musicPresence(track.Title))
}

func (m *Manager) TrackFinished(string, playback.Track, bool) {}

func (m *Manager) TrackFailed(string, playback.Track, error) {}

func (m *Manager) FetchAttemptFailed(string, string, int, error) {}
