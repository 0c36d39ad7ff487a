package playback

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateSession(t *testing.T) {
	r := NewRegistry(newFakeProvider(), WithLogger(zerolog.Nop()))

	s, err := r.CreateSession("g1", newFakeSink(), &fakeTransport{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	got, ok := r.GetSession("g1")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, "g1", got.GuildID())

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Tracks)

	_, err = r.CreateSession("g1", newFakeSink(), &fakeTransport{})
	assert.ErrorIs(t, err, ErrSessionExists)
}

func TestRegistry_GuildsAreIndependent(t *testing.T) {
	r := NewRegistry(newFakeProvider(), WithLogger(zerolog.Nop()))

	for _, id := range []string{"b", "a", "c"} {
		s, err := r.CreateSession(id, newFakeSink(), &fakeTransport{})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop(context.Background()) })
	}

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []string{"a", "b", "c"}, r.Guilds())

	b, _ := r.GetSession("b")
	require.NoError(t, b.Stop(context.Background()))
	<-b.Done()

	assert.Equal(t, []string{"a", "c"}, r.Guilds())
}

func TestRegistry_RemoveSessionIsIdempotent(t *testing.T) {
	r := NewRegistry(newFakeProvider(), WithLogger(zerolog.Nop()))

	r.RemoveSession("missing")

	s, err := r.CreateSession("g1", newFakeSink(), &fakeTransport{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	r.RemoveSession("g1")
	r.RemoveSession("g1")

	_, ok := r.GetSession("g1")
	assert.False(t, ok)
}

func TestRegistry_OldSessionDoesNotEvictNewer(t *testing.T) {
	r := NewRegistry(newFakeProvider(), WithLogger(zerolog.Nop()))

	old, err := r.CreateSession("g1", newFakeSink(), &fakeTransport{})
	require.NoError(t, err)
	r.RemoveSession("g1")

	fresh, err := r.CreateSession("g1", newFakeSink(), &fakeTransport{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = fresh.Stop(context.Background()) })

	require.NoError(t, old.Stop(context.Background()))
	<-old.Done()

	got, ok := r.GetSession("g1")
	require.True(t, ok)
	assert.Same(t, fresh, got)
}

func TestRegistry_StopAll(t *testing.T) {
	r := NewRegistry(newFakeProvider(), WithLogger(zerolog.Nop()))
	transports := []*fakeTransport{{}, {}}

	for i, tr := range transports {
		_, err := r.CreateSession(string(rune('a'+i)), newFakeSink(), tr)
		require.NoError(t, err)
	}

	require.NoError(t, r.StopAll(context.Background()))
	assert.Equal(t, 0, r.Len())
	for _, tr := range transports {
		assert.Equal(t, int32(1), tr.disconnects.Load())
	}
}

// closeWatcher records whether the closing session was still registered when
// observers were told about the close.
type closeWatcher struct {
	*recordingObserver
	registry   *Registry
	registered chan bool
}

func (w *closeWatcher) SessionClosed(guildID string) {
	_, ok := w.registry.GetSession(guildID)
	w.registered <- ok
}

func TestRegistry_ObserversSeeCloseBeforeRelease(t *testing.T) {
	r := NewRegistry(newFakeProvider(), WithLogger(zerolog.Nop()))
	w := &closeWatcher{recordingObserver: &recordingObserver{}, registry: r, registered: make(chan bool, 1)}

	s, err := r.CreateSession("g1", newFakeSink(), &fakeTransport{}, WithObserver(w))
	require.NoError(t, err)
	require.NoError(t, s.Stop(context.Background()))

	assert.True(t, <-w.registered, "observer must run before the guild slot is freed")
	_, ok := r.GetSession("g1")
	assert.False(t, ok)

	// The slot is free for a successor once Stop returned
	next, err := r.CreateSession("g1", newFakeSink(), &fakeTransport{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = next.Stop(context.Background()) })
}
