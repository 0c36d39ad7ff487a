package playback

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type fakeStream struct {
	io.Reader
	locator string
	closed  atomic.Bool
}

func (f *fakeStream) Close() error {
	f.closed.Store(true)
	return nil
}

type fakeProvider struct {
	mu        sync.Mutex
	failing   map[string]bool
	metaFail  map[string]bool
	gates     map[string]chan struct{}
	ignoreCtx bool
	calls     map[string]int
	streams   []*fakeStream
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		failing:  make(map[string]bool),
		metaFail: make(map[string]bool),
		gates:    make(map[string]chan struct{}),
		calls:    make(map[string]int),
	}
}

// hold makes fetches of locator block until release is called.
func (p *fakeProvider) hold(locator string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gates[locator] = make(chan struct{})
}

func (p *fakeProvider) release(locator string) {
	p.mu.Lock()
	gate := p.gates[locator]
	delete(p.gates, locator)
	p.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

func (p *fakeProvider) FetchStream(ctx context.Context, locator string) (io.ReadCloser, error) {
	p.mu.Lock()
	p.calls[locator]++
	gate := p.gates[locator]
	fail := p.failing[locator]
	ignoreCtx := p.ignoreCtx
	p.mu.Unlock()

	if gate != nil {
		if ignoreCtx {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if fail {
		return nil, errBoom
	}

	s := &fakeStream{Reader: strings.NewReader(locator), locator: locator}
	p.mu.Lock()
	p.streams = append(p.streams, s)
	p.mu.Unlock()
	return s, nil
}

func (p *fakeProvider) FetchMetadata(_ context.Context, locator string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.metaFail[locator] {
		return "", errBoom
	}
	return "Title " + locator, nil
}

func (p *fakeProvider) callCount(locator string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[locator]
}

func (p *fakeProvider) totalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

func (p *fakeProvider) allStreams() []*fakeStream {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*fakeStream(nil), p.streams...)
}

type fakeSink struct {
	mu         sync.Mutex
	events     chan SinkEvent
	played     []string
	active     bool
	paused     bool
	stops      int
	subscribed int
	playErr    error
}

func newFakeSink() *fakeSink {
	return &fakeSink{events: make(chan SinkEvent, 16)}
}

func (f *fakeSink) Play(stream io.ReadCloser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		stream.Close()
		return f.playErr
	}
	f.played = append(f.played, stream.(*fakeStream).locator)
	f.active = true
	f.paused = false
	return nil
}

func (f *fakeSink) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		f.paused = true
	}
}

func (f *fakeSink) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = false
}

func (f *fakeSink) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.active {
		f.active = false
		f.events <- SinkEvent{Kind: SinkIdle}
	}
}

func (f *fakeSink) Subscribe(Transport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed++
}

func (f *fakeSink) Events() <-chan SinkEvent {
	return f.events
}

// finish simulates the natural end of the current track.
func (f *fakeSink) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		f.active = false
		f.events <- SinkEvent{Kind: SinkIdle}
	}
}

func (f *fakeSink) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		f.active = false
		f.events <- SinkEvent{Kind: SinkError, Err: err}
	}
}

func (f *fakeSink) playedLocators() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

func (f *fakeSink) isActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeSink) isPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

type fakeTransport struct {
	disconnects atomic.Int32
}

func (f *fakeTransport) Disconnect() error {
	f.disconnects.Add(1)
	return nil
}

type fakeControl struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeControl) PostOrUpdate(_ context.Context, text string, controls []Control) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

func (f *fakeControl) posted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	finished []string
	skipped  []string
	failed   []string
	attempts int
	closed   int
}

func (o *recordingObserver) SessionStarted(string) {}

func (o *recordingObserver) SessionClosed(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed++
}

func (o *recordingObserver) TrackStarted(_ string, t Track) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, t.Locator)
}

func (o *recordingObserver) TrackFinished(_ string, t Track, skipped bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, t.Locator)
	if skipped {
		o.skipped = append(o.skipped, t.Locator)
	}
}

func (o *recordingObserver) TrackFailed(_ string, t Track, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, t.Locator)
}

func (o *recordingObserver) FetchAttemptFailed(string, string, int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts++
}

func (o *recordingObserver) snapshot() recordingObserver {
	o.mu.Lock()
	defer o.mu.Unlock()
	return recordingObserver{
		started:  append([]string(nil), o.started...),
		finished: append([]string(nil), o.finished...),
		skipped:  append([]string(nil), o.skipped...),
		failed:   append([]string(nil), o.failed...),
		attempts: o.attempts,
		closed:   o.closed,
	}
}

type harness struct {
	t         *testing.T
	provider  *fakeProvider
	sink      *fakeSink
	transport *fakeTransport
	control   *fakeControl
	observer  *recordingObserver
	registry  *Registry
	session   *Session
}

const testGuild = "guild-1"

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		t:         t,
		provider:  newFakeProvider(),
		sink:      newFakeSink(),
		transport: &fakeTransport{},
		control:   &fakeControl{},
		observer:  &recordingObserver{},
	}
	h.registry = NewRegistry(h.provider,
		WithRetryPolicy(RetryPolicy{Attempts: 3, Delay: time.Millisecond}),
		WithLogger(zerolog.Nop()),
	)

	all := append([]Option{WithControlSurface(h.control), WithObserver(h.observer)}, opts...)
	s, err := h.registry.CreateSession(testGuild, h.sink, h.transport, all...)
	require.NoError(t, err)
	h.session = s

	t.Cleanup(func() {
		_ = s.Stop(context.Background())
	})
	return h
}

func (h *harness) enqueue(locators ...string) {
	h.t.Helper()
	for _, l := range locators {
		require.NoError(h.t, h.session.Enqueue(context.Background(), NewTrack(l, "tester")))
	}
}

func (h *harness) snapshot() Snapshot {
	h.t.Helper()
	snap, err := h.session.Snapshot(context.Background())
	require.NoError(h.t, err)
	return snap
}

func (h *harness) eventually(cond func() bool, msg string) {
	h.t.Helper()
	require.Eventually(h.t, cond, 2*time.Second, 2*time.Millisecond, msg)
}

func (h *harness) waitPlaying(locator string) {
	h.t.Helper()
	h.eventually(func() bool {
		played := h.sink.playedLocators()
		if len(played) == 0 || played[len(played)-1] != locator || !h.sink.isActive() {
			return false
		}
		snap, err := h.session.Snapshot(context.Background())
		return err == nil && snap.State == StatePlaying
	}, "expected "+locator+" to be playing")
}

func (h *harness) waitClosed() {
	h.t.Helper()
	select {
	case <-h.session.Done():
	case <-time.After(2 * time.Second):
		h.t.Fatal("session was not torn down")
	}
}

func locators(tracks []Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Locator
	}
	return out
}
