package playback

// Observer receives playback lifecycle notifications. Methods are called from the
// session goroutines and must not block.
type Observer interface {
	SessionStarted(guildID string)
	SessionClosed(guildID string)
	TrackStarted(guildID string, track Track)
	TrackFinished(guildID string, track Track, skipped bool)
	TrackFailed(guildID string, track Track, err error)
	FetchAttemptFailed(guildID, locator string, attempt int, err error)
}

// Observers fans notifications out to several observers.
type Observers []Observer

func (o Observers) SessionStarted(guildID string) {
	for _, ob := range o {
		ob.SessionStarted(guildID)
	}
}

func (o Observers) SessionClosed(guildID string) {
	for _, ob := range o {
		ob.SessionClosed(guildID)
	}
}

func (o Observers) TrackStarted(guildID string, track Track) {
	for _, ob := range o {
		ob.TrackStarted(guildID, track)
	}
}

func (o Observers) TrackFinished(guildID string, track Track, skipped bool) {
	for _, ob := range o {
		ob.TrackFinished(guildID, track, skipped)
	}
}

func (o Observers) TrackFailed(guildID string, track Track, err error) {
	for _, ob := range o {
		ob.TrackFailed(guildID, track, err)
	}
}

func (o Observers) FetchAttemptFailed(guildID, locator string, attempt int, err error) {
	for _, ob := range o {
		ob.FetchAttemptFailed(guildID, locator, attempt, err)
	}
}
