package playback

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Registry maps guild IDs to their active playback session.
type Registry struct {
	provider StreamProvider
	defaults []Option

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry whose sessions fetch audio from provider.
// defaults are applied to every session before its own options.
func NewRegistry(provider StreamProvider, defaults ...Option) *Registry {
	return &Registry{
		provider: provider,
		defaults: defaults,
		sessions: make(map[string]*Session),
	}
}

// CreateSession registers and starts a new idle session for the guild. It fails
// with ErrSessionExists if the guild already has one.
func (r *Registry) CreateSession(guildID string, sink Sink, transport Transport, opts ...Option) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[guildID]; exists {
		return nil, ErrSessionExists
	}

	all := make([]Option, 0, len(r.defaults)+len(opts))
	all = append(all, r.defaults...)
	all = append(all, opts...)

	s := newSession(r, guildID, sink, transport, all...)
	r.sessions[guildID] = s
	s.observer.SessionStarted(guildID)
	go s.run()

	s.logger.Info().Msg("Session created")
	return s, nil
}

// GetSession returns the active session of the guild.
func (r *Registry) GetSession(guildID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[guildID]
	return s, ok
}

// RemoveSession forgets the guild's session. It does not stop it.
func (r *Registry) RemoveSession(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, guildID)
}

// release removes s only if it is still the guild's registered session.
func (r *Registry) release(guildID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[guildID]; ok && cur == s {
		delete(r.sessions, guildID)
	}
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Guilds returns the IDs of guilds with an active session, sorted.
func (r *Registry) Guilds() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// StopAll stops every active session.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Stop(ctx); err != nil && !errors.Is(err, ErrSessionClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
