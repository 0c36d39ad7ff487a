package database

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/latoulicious/Baguetta/pkg/playback"
	"github.com/rs/zerolog"
)

// HistoryRecorder turns playback notifications into play history rows. Rows are
// buffered and written in batches so observers never block a session.
type HistoryRecorder struct {
	store  *HistoryStore
	logger zerolog.Logger

	batchSize     int
	flushInterval time.Duration

	buffer   chan *PlayRecord
	stopChan chan struct{}
	doneChan chan struct{}

	runMutex sync.Mutex
	running  bool
	stopped  bool

	// per guild state
	stateMutex sync.Mutex
	runs       map[string]string
	started    map[string]time.Time

	statsMutex sync.RWMutex
	processed  int64
	errors     int64
	dropped    int64
}

var _ playback.Observer = (*HistoryRecorder)(nil)

// NewHistoryRecorder creates a recorder writing to store
func NewHistoryRecorder(store *HistoryStore, logger zerolog.Logger) *HistoryRecorder {
	return &HistoryRecorder{
		store:         store,
		logger:        logger,
		batchSize:     store.config.BatchSize,
		flushInterval: store.config.FlushInterval,
		buffer:        make(chan *PlayRecord, store.config.BatchSize*4),
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
		runs:          make(map[string]string),
		started:       make(map[string]time.Time),
	}
}

// Start begins writing buffered plays
func (r *HistoryRecorder) Start() error {
	r.runMutex.Lock()
	defer r.runMutex.Unlock()

	if r.running {
		return ErrProcessorRunning
	}
	if r.stopped {
		return ErrProcessorStopping
	}
	r.running = true
	go r.run()

	r.logger.Info().Int("batch_size", r.batchSize).Dur("flush_interval", r.flushInterval).Msg("History recorder started")
	return nil
}

// Stop flushes pending plays and stops the writer
func (r *HistoryRecorder) Stop() {
	r.runMutex.Lock()
	defer r.runMutex.Unlock()

	if r.stopped {
		return
	}
	r.stopped = true
	close(r.stopChan)

	if !r.running {
		return
	}
	select {
	case <-r.doneChan:
		r.logger.Info().Msg("History recorder stopped")
	case <-time.After(5 * time.Second):
		r.logger.Error().Msg("History recorder stop timeout")
	}
	r.running = false
}

// Stats returns processing statistics
func (r *HistoryRecorder) Stats() BatchProcessorStats {
	r.statsMutex.RLock()
	defer r.statsMutex.RUnlock()
	return BatchProcessorStats{
		ProcessedCount: r.processed,
		ErrorCount:     r.errors,
		DroppedCount:   r.dropped,
		BufferSize:     len(r.buffer),
	}
}

func (r *HistoryRecorder) SessionStarted(guildID string) {
	r.stateMutex.Lock()
	defer r.stateMutex.Unlock()
	r.runs[guildID] = uuid.NewString()
	delete(r.started, guildID)
}

func (r *HistoryRecorder) SessionClosed(guildID string) {
	r.stateMutex.Lock()
	defer r.stateMutex.Unlock()
	delete(r.runs, guildID)
	delete(r.started, guildID)
}

func (r *HistoryRecorder) TrackStarted(guildID string, _ playback.Track) {
	r.stateMutex.Lock()
	defer r.stateMutex.Unlock()
	r.started[guildID] = time.Now()
}

func (r *HistoryRecorder) TrackFinished(guildID string, track playback.Track, skipped bool) {
	outcome := OutcomeFinished
	if skipped {
		outcome = OutcomeSkipped
	}
	r.record(guildID, track, outcome, nil)
}

func (r *HistoryRecorder) TrackFailed(guildID string, track playback.Track, err error) {
	r.record(guildID, track, OutcomeFailed, err)
}

func (r *HistoryRecorder) FetchAttemptFailed(string, string, int, error) {}

func (r *HistoryRecorder) record(guildID string, track playback.Track, outcome Outcome, err error) {
	now := time.Now()

	r.stateMutex.Lock()
	runID, ok := r.runs[guildID]
	if !ok {
		runID = uuid.NewString()
		r.runs[guildID] = runID
	}
	startedAt, ok := r.started[guildID]
	if !ok {
		startedAt = now
	}
	delete(r.started, guildID)
	r.stateMutex.Unlock()

	rec := &PlayRecord{
		RunID:       runID,
		GuildID:     guildID,
		Locator:     track.Locator,
		Title:       track.Title,
		RequestedBy: track.RequestedBy,
		Outcome:     outcome,
		StartedAt:   startedAt,
		EndedAt:     now,
	}
	if err != nil {
		rec.Error = err.Error()
	}

	select {
	case r.buffer <- rec:
	default:
		r.logger.Warn().Str("guild_id", guildID).Str("locator", track.Locator).Msg("History buffer full, dropping play")
		r.statsMutex.Lock()
		r.dropped++
		r.statsMutex.Unlock()
	}
}

func (r *HistoryRecorder) run() {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	batch := make([]*PlayRecord, 0, r.batchSize)
	for {
		select {
		case rec := <-r.buffer:
			batch = append(batch, rec)
			if len(batch) >= r.batchSize {
				batch = r.flush(batch)
			}
		case <-ticker.C:
			batch = r.flush(batch)
		case <-r.stopChan:
			// Drain what is left before stopping
			for {
				select {
				case rec := <-r.buffer:
					batch = append(batch, rec)
				default:
					r.flush(batch)
					return
				}
			}
		}
	}
}

func (r *HistoryRecorder) flush(batch []*PlayRecord) []*PlayRecord {
	if len(batch) == 0 {
		return batch
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := r.store.InsertPlays(ctx, batch)

	r.statsMutex.Lock()
	if err != nil {
		r.errors += int64(len(batch))
	} else {
		r.processed += int64(len(batch))
	}
	r.statsMutex.Unlock()

	if err != nil {
		r.logger.Error().Err(err).Int("plays", len(batch)).Msg("Failed to write play history")
	}
	return batch[:0]
}
