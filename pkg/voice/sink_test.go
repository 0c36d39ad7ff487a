package voice

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/latoulicious/Baguetta/pkg/playback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	frames   chan []byte
	mu       sync.Mutex
	speakOn  int
	speakOff int
}

func newFakeTarget(buffer int) *fakeTarget {
	return &fakeTarget{frames: make(chan []byte, buffer)}
}

func (f *fakeTarget) Disconnect() error { return nil }

func (f *fakeTarget) sendFrame(ctx context.Context, frame []byte) error {
	select {
	case f.frames <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeTarget) speaking(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if on {
		f.speakOn++
	} else {
		f.speakOff++
	}
}

type countingEncoder struct {
	calls atomic.Int32
	err   error
}

func (e *countingEncoder) Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	n := e.calls.Add(1)
	return []byte{byte(n)}, nil
}

type trackedStream struct {
	io.Reader
	closed atomic.Bool
}

func (s *trackedStream) Close() error {
	s.closed.Store(true)
	if c, ok := s.Reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// passthrough treats the input as PCM and closes it when playback is cancelled.
func passthrough(ctx context.Context, stream io.ReadCloser) (io.ReadCloser, error) {
	go func() {
		<-ctx.Done()
		stream.Close()
	}()
	return stream, nil
}

func newTestSink(enc Encoder) *Sink {
	return NewSink("ffmpeg",
		WithDecoder(passthrough),
		WithEncoderFactory(func() (Encoder, error) { return enc, nil }),
	)
}

func nextEvent(t *testing.T, s *Sink) playback.SinkEvent {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no sink event")
		return playback.SinkEvent{}
	}
}

func assertNoEvent(t *testing.T, s *Sink) {
	t.Helper()
	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected sink event %v", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSink_PlayWithoutTransport(t *testing.T) {
	s := newTestSink(&countingEncoder{})
	stream := &trackedStream{Reader: bytes.NewReader(nil)}

	err := s.Play(stream)

	assert.ErrorIs(t, err, ErrNotSubscribed)
	assert.True(t, stream.closed.Load())
}

func TestSink_PlaysToCompletion(t *testing.T) {
	enc := &countingEncoder{}
	target := newFakeTarget(16)
	s := newTestSink(enc)
	s.Subscribe(target)

	// Three full frames and a short tail
	pcm := make([]byte, 3*pcmFrameBytes+100)
	stream := &trackedStream{Reader: bytes.NewReader(pcm)}
	require.NoError(t, s.Play(stream))

	ev := nextEvent(t, s)
	assert.Equal(t, playback.SinkIdle, ev.Kind)
	assert.NoError(t, ev.Err)
	assert.Len(t, target.frames, 4)
	assert.Equal(t, int32(4), enc.calls.Load())
	assert.True(t, stream.closed.Load())

	target.mu.Lock()
	assert.Equal(t, 1, target.speakOn)
	assert.Equal(t, 1, target.speakOff)
	target.mu.Unlock()

	assertNoEvent(t, s)
}

func TestSink_StopEmitsSingleIdle(t *testing.T) {
	target := newFakeTarget(0)
	s := newTestSink(&countingEncoder{})
	s.Subscribe(target)

	r, w := io.Pipe()
	defer w.Close()
	go func() { _, _ = w.Write(make([]byte, 10*pcmFrameBytes)) }()

	require.NoError(t, s.Play(&trackedStream{Reader: r}))
	<-target.frames

	s.Stop()
	s.Stop()

	ev := nextEvent(t, s)
	assert.Equal(t, playback.SinkIdle, ev.Kind)
	assertNoEvent(t, s)
}

func TestSink_PlayWhileActive(t *testing.T) {
	target := newFakeTarget(0)
	s := newTestSink(&countingEncoder{})
	s.Subscribe(target)

	r, w := io.Pipe()
	defer w.Close()
	require.NoError(t, s.Play(&trackedStream{Reader: r}))

	second := &trackedStream{Reader: bytes.NewReader(nil)}
	assert.ErrorIs(t, s.Play(second), ErrAlreadyPlaying)
	assert.True(t, second.closed.Load())

	s.Stop()
	assert.Equal(t, playback.SinkIdle, nextEvent(t, s).Kind)

	// A new track may start once the previous one reported idle
	require.NoError(t, s.Play(&trackedStream{Reader: bytes.NewReader(nil)}))
	assert.Equal(t, playback.SinkIdle, nextEvent(t, s).Kind)
}

func TestSink_EncoderErrorReportsError(t *testing.T) {
	boom := errors.New("boom")
	s := newTestSink(&countingEncoder{err: boom})
	s.Subscribe(newFakeTarget(4))

	require.NoError(t, s.Play(&trackedStream{Reader: bytes.NewReader(make([]byte, pcmFrameBytes))}))

	ev := nextEvent(t, s)
	assert.Equal(t, playback.SinkError, ev.Kind)
	assert.ErrorIs(t, ev.Err, boom)
}

func TestSink_PauseAndResume(t *testing.T) {
	target := newFakeTarget(0)
	s := newTestSink(&countingEncoder{})
	s.Subscribe(target)

	require.NoError(t, s.Play(&trackedStream{Reader: bytes.NewReader(make([]byte, 4*pcmFrameBytes))}))
	<-target.frames

	s.Pause()
	// The frame in flight may still be delivered, nothing after it
	select {
	case <-target.frames:
	case <-time.After(50 * time.Millisecond):
	}
	select {
	case <-target.frames:
		t.Fatal("frame delivered while paused")
	case <-time.After(50 * time.Millisecond):
	}

	s.Resume()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-target.frames:
		case ev := <-s.Events():
			assert.Equal(t, playback.SinkIdle, ev.Kind)
			return
		case <-deadline:
			t.Fatal("playback did not finish after resume")
		}
	}
}

func TestSink_StopWhilePaused(t *testing.T) {
	target := newFakeTarget(0)
	s := newTestSink(&countingEncoder{})
	s.Subscribe(target)

	require.NoError(t, s.Play(&trackedStream{Reader: bytes.NewReader(make([]byte, 4*pcmFrameBytes))}))
	<-target.frames
	s.Pause()
	s.Stop()

	assert.Equal(t, playback.SinkIdle, nextEvent(t, s).Kind)
}

type plainTransport struct{}

func (plainTransport) Disconnect() error { return nil }

func TestSink_SubscribeIgnoresForeignTransport(t *testing.T) {
	s := newTestSink(&countingEncoder{})
	s.Subscribe(plainTransport{})

	assert.ErrorIs(t, s.Play(&trackedStream{Reader: bytes.NewReader(nil)}), ErrNotSubscribed)
}
