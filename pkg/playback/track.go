package playback

import "time"

// PendingTitle is the title of a track whose metadata has not been resolved yet.
const PendingTitle = "pending"

// Track is a single entry of a guild queue.
type Track struct {
	Locator     string // canonical URL of the remote resource
	Title       string
	RequestedBy string
	AddedAt     time.Time
}

// NewTrack creates a track with an unresolved title.
func NewTrack(locator, requestedBy string) *Track {
	return &Track{
		Locator:     locator,
		Title:       PendingTitle,
		RequestedBy: requestedBy,
		AddedAt:     time.Now(),
	}
}

// Resolved reports whether the title has been filled in by a metadata fetch.
func (t *Track) Resolved() bool {
	return t.Title != "" && t.Title != PendingTitle
}
