package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultRetentionSchedule runs the cleanup daily at 04:00.
const DefaultRetentionSchedule = "0 0 4 * * *"

// CleanupFunc removes expired data and returns how many rows were removed.
type CleanupFunc func(ctx context.Context) (int64, error)

// RetentionManager runs a cleanup job on a cron schedule
type RetentionManager struct {
	cron      *cron.Cron
	cronEntry cron.EntryID
	cleanup   CleanupFunc
	schedule  string
	timeout   time.Duration
	logger    zerolog.Logger

	mutex     sync.RWMutex
	isRunning bool
	lastRun   time.Time
	lastErr   error
}

// NewRetentionManager schedules cleanup with the given six-field (seconds first)
// cron expression. An empty schedule uses DefaultRetentionSchedule.
func NewRetentionManager(cleanup CleanupFunc, schedule string, logger zerolog.Logger) (*RetentionManager, error) {
	if schedule == "" {
		schedule = DefaultRetentionSchedule
	}

	manager := &RetentionManager{
		cron:     cron.New(cron.WithSeconds()),
		cleanup:  cleanup,
		schedule: schedule,
		timeout:  time.Minute,
		logger:   logger,
	}

	entryID, err := manager.cron.AddFunc(schedule, manager.runCleanup)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule retention cleanup: %w", err)
	}
	manager.cronEntry = entryID
	return manager, nil
}

// Start starts the scheduler and runs one cleanup right away
func (rm *RetentionManager) Start() {
	rm.cron.Start()
	rm.logger.Info().Str("schedule", rm.schedule).Msg("Scheduled history retention cleanup")
	go rm.runCleanup()
}

// RunNow runs the cleanup synchronously. It is skipped if a run is in progress.
func (rm *RetentionManager) RunNow() {
	rm.runCleanup()
}

func (rm *RetentionManager) runCleanup() {
	rm.mutex.Lock()
	if rm.isRunning {
		rm.mutex.Unlock()
		rm.logger.Debug().Msg("Retention cleanup already in progress, skipping")
		return
	}
	rm.isRunning = true
	rm.mutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), rm.timeout)
	defer cancel()

	removed, err := rm.cleanup(ctx)
	if err != nil {
		rm.logger.Error().Err(err).Msg("Retention cleanup failed")
	} else {
		rm.logger.Debug().Int64("removed", removed).Msg("Retention cleanup completed")
	}

	rm.mutex.Lock()
	rm.isRunning = false
	rm.lastRun = time.Now()
	rm.lastErr = err
	rm.mutex.Unlock()
}

// Stop stops the scheduler and waits for a running cleanup to finish
func (rm *RetentionManager) Stop() {
	<-rm.cron.Stop().Done()
	rm.logger.Info().Msg("Retention manager stopped")
}

// NextRun returns the next scheduled run time
func (rm *RetentionManager) NextRun() time.Time {
	return rm.cron.Entry(rm.cronEntry).Next
}

// LastRun returns when the cleanup last finished and its error
func (rm *RetentionManager) LastRun() (time.Time, error) {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()
	return rm.lastRun, rm.lastErr
}

// IsRunning returns whether a cleanup is in progress
func (rm *RetentionManager) IsRunning() bool {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()
	return rm.isRunning
}

// Schedule returns the cron schedule
func (rm *RetentionManager) Schedule() string {
	return rm.schedule
}
