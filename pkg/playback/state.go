package playback

// State is the playback state of a session.
type State int

const (
	StateIdle State = iota
	StateFetching
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// rendering reports whether the sink currently holds the front track.
func (s State) rendering() bool {
	return s == StatePlaying || s == StatePaused
}

// Snapshot is a point-in-time copy of a session's queue.
type Snapshot struct {
	GuildID string
	State   State
	Tracks  []Track // front is the current (or next) track
}

// NowPlaying returns the track held by the sink, if any.
func (s Snapshot) NowPlaying() (Track, bool) {
	if !s.State.rendering() || len(s.Tracks) == 0 {
		return Track{}, false
	}
	return s.Tracks[0], true
}

// UpNext returns the tracks waiting behind the current one.
func (s Snapshot) UpNext() []Track {
	if len(s.Tracks) == 0 {
		return nil
	}
	if s.State == StateIdle {
		return s.Tracks
	}
	return s.Tracks[1:]
}
