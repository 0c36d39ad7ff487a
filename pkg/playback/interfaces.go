package playback

import (
	"context"
	"io"
)

// StreamProvider resolves a locator into playable audio and its metadata.
type StreamProvider interface {
	FetchStream(ctx context.Context, locator string) (io.ReadCloser, error)
	FetchMetadata(ctx context.Context, locator string) (string, error)
}

// Transport is the live voice connection a sink renders into.
type Transport interface {
	Disconnect() error
}

// SinkEventKind identifies a notification emitted by a Sink.
type SinkEventKind int

const (
	// SinkIdle is emitted when the current item ended, naturally or through Stop.
	SinkIdle SinkEventKind = iota
	// SinkError is emitted when rendering failed mid-playback.
	SinkError
)

func (k SinkEventKind) String() string {
	switch k {
	case SinkIdle:
		return "idle"
	case SinkError:
		return "error"
	default:
		return "unknown"
	}
}

// SinkEvent is a notification from a Sink.
type SinkEvent struct {
	Kind SinkEventKind
	Err  error
}

// Sink renders audio into a voice call.
//
// Play takes ownership of the stream and must close it. Every successful call to
// Play is followed by exactly one terminal event (SinkIdle or SinkError) on the
// Events channel, including when playback is ended with Stop. Stop, Pause and
// Resume are no-ops when nothing is rendering.
type Sink interface {
	Play(stream io.ReadCloser) error
	Pause()
	Resume()
	Stop()
	Subscribe(t Transport)
	Events() <-chan SinkEvent
}

// Control names a UI affordance attached to the now playing message.
type Control string

const (
	ControlPlayPause Control = "play_pause"
	ControlPlay      Control = "play"
	ControlPause     Control = "pause"
	ControlSkip      Control = "skip"
)

// DefaultControls are attached to every now playing update.
func DefaultControls() []Control {
	return []Control{ControlPlayPause, ControlSkip}
}

// ControlSurface displays the now playing message of a session. Implementations
// reuse the same message across calls.
type ControlSurface interface {
	PostOrUpdate(ctx context.Context, text string, controls []Control) error
}
