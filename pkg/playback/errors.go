package playback

import (
	"errors"
	"fmt"
)

// Registry errors
var (
	ErrSessionExists = errors.New("session already exists for guild")
	ErrNoSession     = errors.New("no session for guild")
)

// Session errors
var (
	ErrSessionClosed  = errors.New("session is closed")
	ErrNothingPlaying = errors.New("nothing is playing")
	ErrNotPaused      = errors.New("playback is not paused")
	ErrQueueFull      = errors.New("queue is full")
	ErrEmptyBatch     = errors.New("no tracks to enqueue")
	ErrInvalidTrack   = errors.New("track has no locator")

	ErrNotEnoughTracks = errors.New("not enough upcoming tracks")
)

// FetchError is returned when the stream or the metadata of a track could not be
// retrieved from the provider.
type FetchError struct {
	Locator string
	Op      string // "stream" or "metadata"
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for %q: %v", e.Op, e.Locator, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
