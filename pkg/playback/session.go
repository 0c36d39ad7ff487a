package playback

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const unknownTitle = "Unknown Title"

// Option configures a Session.
type Option func(*Session)

// WithControlSurface sets the surface used for now playing updates.
func WithControlSurface(cs ControlSurface) Option {
	return func(s *Session) { s.control = cs }
}

// WithObserver sets the lifecycle observer of the session.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithRetryPolicy overrides the stream fetch retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Session) { s.retry = p }
}

// WithMaxQueueLength bounds the number of queued tracks. Zero means unbounded.
func WithMaxQueueLength(n int) Option {
	return func(s *Session) { s.maxQueue = n }
}

// WithLogger sets the base logger of the session.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

type request struct {
	fn    func() error
	reply chan error
}

type fetchResult struct {
	generation uint64
	stream     io.ReadCloser
	title      string
	err        error
}

// Session is the playback context of a single guild. It owns the queue, the sink
// and the transport; all state changes happen on the session's own goroutine.
type Session struct {
	guildID   string
	registry  *Registry
	provider  StreamProvider
	sink      Sink
	transport Transport
	control   ControlSurface
	observer  Observer
	retry     RetryPolicy
	maxQueue  int
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	requests      chan request
	fetched       chan fetchResult
	announcements chan string
	done          chan struct{}

	// owned by the event loop
	queue      []*Track
	state      State
	generation uint64
	skipping   bool
	closed     bool
}

func newSession(r *Registry, guildID string, sink Sink, transport Transport, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		guildID:       guildID,
		registry:      r,
		provider:      r.provider,
		sink:          sink,
		transport:     transport,
		observer:      Observers(nil),
		retry:         DefaultRetryPolicy(),
		logger:        log.Logger,
		ctx:           ctx,
		cancel:        cancel,
		requests:      make(chan request),
		fetched:       make(chan fetchResult),
		announcements: make(chan string, 1),
		done:          make(chan struct{}),
		queue:         make([]*Track, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("guild_id", guildID).Logger()
	return s
}

// GuildID returns the guild the session plays in.
func (s *Session) GuildID() string {
	return s.guildID
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Enqueue appends a track to the queue and starts playback if the session is idle.
func (s *Session) Enqueue(ctx context.Context, track *Track) error {
	if track == nil || track.Locator == "" {
		return ErrInvalidTrack
	}
	return s.do(ctx, func() error {
		if err := s.admit(1); err != nil {
			return err
		}
		wasIdle := s.state == StateIdle
		s.push(track)
		s.logger.Info().Str("locator", track.Locator).Int("queue_len", len(s.queue)).Msg("Track added to queue")
		if wasIdle {
			s.advance()
		}
		return nil
	})
}

// EnqueueBatch appends several tracks, starting playback at most once.
func (s *Session) EnqueueBatch(ctx context.Context, tracks []*Track) error {
	if len(tracks) == 0 {
		return ErrEmptyBatch
	}
	for _, t := range tracks {
		if t == nil || t.Locator == "" {
			return ErrInvalidTrack
		}
	}
	return s.do(ctx, func() error {
		if err := s.admit(len(tracks)); err != nil {
			return err
		}
		wasIdle := s.state == StateIdle
		for _, t := range tracks {
			s.push(t)
		}
		s.logger.Info().Int("added", len(tracks)).Int("queue_len", len(s.queue)).Msg("Tracks added to queue")
		if wasIdle {
			s.advance()
		}
		return nil
	})
}

// Skip ends the current track. The queue moves on once the sink reports idle.
func (s *Session) Skip(ctx context.Context) error {
	return s.do(ctx, func() error {
		if !s.state.rendering() {
			return ErrNothingPlaying
		}
		s.logger.Info().Str("locator", s.queue[0].Locator).Msg("Skipping track")
		s.skipping = true
		s.sink.Stop()
		return nil
	})
}

// Pause holds the current track.
func (s *Session) Pause(ctx context.Context) error {
	return s.do(ctx, func() error {
		if s.state != StatePlaying {
			return ErrNothingPlaying
		}
		s.sink.Pause()
		s.state = StatePaused
		return nil
	})
}

// Resume continues a paused track.
func (s *Session) Resume(ctx context.Context) error {
	return s.do(ctx, func() error {
		if s.state != StatePaused {
			return ErrNotPaused
		}
		s.sink.Resume()
		s.state = StatePlaying
		return nil
	})
}

// TogglePause pauses a playing track or resumes a paused one and returns the new
// state.
func (s *Session) TogglePause(ctx context.Context) (State, error) {
	var state State
	err := s.do(ctx, func() error {
		switch s.state {
		case StatePlaying:
			s.sink.Pause()
			s.state = StatePaused
		case StatePaused:
			s.sink.Resume()
			s.state = StatePlaying
		default:
			return ErrNothingPlaying
		}
		state = s.state
		return nil
	})
	return state, err
}

// Stop ends playback, disconnects the transport and removes the session from its
// registry. The session is unusable afterwards.
func (s *Session) Stop(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.logger.Info().Int("dropped", len(s.queue)).Msg("Stopping playback")
		s.sink.Stop()
		s.queue = nil
		s.shutdown()
		return nil
	})
}

// Shuffle randomizes the order of the upcoming tracks and returns how many were
// shuffled. The current track keeps its place.
func (s *Session) Shuffle(ctx context.Context) (int, error) {
	var n int
	err := s.do(ctx, func() error {
		upcoming := s.queue[s.upcomingStart():]
		n = len(upcoming)
		if n < 2 {
			return ErrNotEnoughTracks
		}
		rand.Shuffle(n, func(i, j int) { upcoming[i], upcoming[j] = upcoming[j], upcoming[i] })
		s.logger.Info().Int("shuffled", n).Msg("Queue shuffled")
		return nil
	})
	return n, err
}

// Clear drops the upcoming tracks and returns how many were removed. The current
// track keeps playing.
func (s *Session) Clear(ctx context.Context) (int, error) {
	var n int
	err := s.do(ctx, func() error {
		start := s.upcomingStart()
		n = len(s.queue) - start
		for i := start; i < len(s.queue); i++ {
			s.queue[i] = nil
		}
		s.queue = s.queue[:start]
		s.logger.Info().Int("removed", n).Msg("Queue cleared")
		return nil
	})
	return n, err
}

// upcomingStart is the index of the first track not held by the sink or a fetch.
func (s *Session) upcomingStart() int {
	if s.state == StateIdle || len(s.queue) == 0 {
		return 0
	}
	return 1
}

// Snapshot returns a copy of the queue and the current state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, func() error {
		snap = Snapshot{GuildID: s.guildID, State: s.state, Tracks: make([]Track, len(s.queue))}
		for i, t := range s.queue {
			snap.Tracks[i] = *t
		}
		return nil
	})
	return snap, err
}

// do runs fn on the event loop and returns its result.
func (s *Session) do(ctx context.Context, fn func() error) error {
	req := request{fn: fn, reply: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-req.reply
}

func (s *Session) run() {
	defer close(s.done)

	if s.control != nil {
		go s.announcer()
	}

	events := s.sink.Events()
	for !s.closed {
		select {
		case req := <-s.requests:
			req.reply <- req.fn()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.handleSinkEvent(ev)
		case res := <-s.fetched:
			s.handleFetched(res)
		}
	}
}

func (s *Session) admit(n int) error {
	if s.maxQueue > 0 && len(s.queue)+n > s.maxQueue {
		return ErrQueueFull
	}
	return nil
}

func (s *Session) push(t *Track) {
	track := *t
	if track.Title == "" {
		track.Title = PendingTitle
	}
	s.queue = append(s.queue, &track)
}

func (s *Session) pop() {
	if len(s.queue) == 0 {
		return
	}
	s.queue[0] = nil
	s.queue = s.queue[1:]
}

// advance starts the front track, or tears the session down when the queue is
// empty. It does nothing while a track is being fetched or rendered.
func (s *Session) advance() {
	if s.closed || s.state != StateIdle {
		return
	}
	if len(s.queue) == 0 {
		s.logger.Info().Msg("Queue empty, leaving voice channel")
		s.shutdown()
		return
	}

	front := *s.queue[0]
	s.state = StateFetching
	s.generation++
	s.skipping = false
	s.logger.Info().Str("locator", front.Locator).Msg("Attempting to play")
	go s.fetch(s.generation, front)
}

func (s *Session) fetch(generation uint64, track Track) {
	res := fetchResult{generation: generation}

	res.stream, res.err = fetchStream(s.ctx, s.provider, s.retry, track.Locator, func(attempt int, err error) {
		s.logger.Warn().Err(err).
			Str("locator", track.Locator).
			Int("attempt", attempt).
			Int("max_attempts", s.retry.attempts()).
			Msg("Stream fetch failed")
		s.observer.FetchAttemptFailed(s.guildID, track.Locator, attempt, err)
	})
	if res.err == nil {
		res.title, res.err = fetchTitle(s.ctx, s.provider, track.Locator)
		if res.err != nil {
			closeStream(res.stream)
			res.stream = nil
		}
	}

	select {
	case s.fetched <- res:
	case <-s.done:
		closeStream(res.stream)
	}
}

func (s *Session) handleFetched(res fetchResult) {
	if s.closed || s.state != StateFetching || res.generation != s.generation {
		closeStream(res.stream)
		return
	}

	track := s.queue[0]
	if res.err != nil {
		s.logger.Error().Err(res.err).Str("locator", track.Locator).Msg("Error fetching stream, skipping track")
		s.dropFront(res.err)
		return
	}

	if res.title == "" {
		res.title = unknownTitle
	}
	track.Title = res.title
	s.logger.Info().Str("title", track.Title).Msg("Fetched video info")

	s.sink.Subscribe(s.transport)
	if err := s.sink.Play(res.stream); err != nil {
		s.logger.Error().Err(err).Str("title", track.Title).Msg("Sink refused track, skipping")
		s.dropFront(err)
		return
	}

	s.state = StatePlaying
	s.observer.TrackStarted(s.guildID, *track)
	s.announce(fmt.Sprintf("🎶 Now playing: %s", track.Title))
}

func (s *Session) handleSinkEvent(ev SinkEvent) {
	if !s.state.rendering() || len(s.queue) == 0 {
		s.logger.Debug().Stringer("event", ev.Kind).Stringer("state", s.state).Msg("Ignoring stale sink event")
		return
	}

	track := *s.queue[0]
	s.state = StateIdle

	if ev.Kind == SinkError {
		s.logger.Error().Err(ev.Err).Str("title", track.Title).Msg("Audio player error")
		s.dropFront(ev.Err)
		return
	}

	s.observer.TrackFinished(s.guildID, track, s.skipping)
	s.pop()
	s.advance()
}

// dropFront discards the front track after a failure and moves on.
func (s *Session) dropFront(err error) {
	s.observer.TrackFailed(s.guildID, *s.queue[0], err)
	s.pop()
	s.state = StateIdle
	s.advance()
}

func (s *Session) shutdown() {
	if s.closed {
		return
	}
	s.closed = true
	s.state = StateIdle
	s.cancel()

	if s.transport != nil {
		if err := s.transport.Disconnect(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to disconnect voice transport")
		}
	}
	// Observers drop per-guild state on close; a successor must not be
	// registered before that happens
	s.observer.SessionClosed(s.guildID)
	s.registry.release(s.guildID, s)
	s.logger.Info().Msg("Session closed")
}

// announce queues a now playing update. Only the most recent text is kept.
func (s *Session) announce(text string) {
	if s.control == nil {
		return
	}
	select {
	case <-s.announcements:
	default:
	}
	s.announcements <- text
}

func (s *Session) announcer() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case text := <-s.announcements:
			if err := s.control.PostOrUpdate(s.ctx, text, DefaultControls()); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to update now playing message")
			}
		}
	}
}

func closeStream(stream io.ReadCloser) {
	if stream != nil {
		_ = stream.Close()
	}
}
