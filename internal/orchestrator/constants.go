// Package orchestrator turns a frame stream into match records
package orchestrator

import "time"

// Orchestrator configuration constants
const (
	// Match store event channel buffer
	RecordEventBuffer = 100

	// Record sink batching
	SinkMaxSize    = 20
	SinkFlushDelay = 2 * time.Second

	// Consecutive unreadable frames before the run is abandoned
	MaxConsecutiveFrameErrors = 25

	// Progress log interval in frames read
	ProgressLogInterval = 1000
)
