package database

import "errors"

// Database configuration errors
var (
	ErrInvalidDatabasePath     = errors.New("invalid database path")
	ErrInvalidBatchSize        = errors.New("invalid history batch size")
	ErrInvalidFlushInterval    = errors.New("invalid history flush interval")
	ErrInvalidHistoryRetention = errors.New("invalid history retention")
	ErrInvalidSynchronousMode  = errors.New("invalid synchronous mode")
)

// Database operation errors
var (
	ErrDatabaseNotConnected = errors.New("database not connected")
	ErrInvalidLimit         = errors.New("limit must be positive")
)

// Batch processor errors
var (
	ErrProcessorRunning  = errors.New("batch processor is already running")
	ErrProcessorStopping = errors.New("batch processor is stopping")
	ErrBufferFull        = errors.New("history buffer is full")
)
