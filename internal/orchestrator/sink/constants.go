// Package sink batches match records into a persistent store
package sink

import "time"

// Batcher defaults
const (
	DefaultMaxSize    = 20
	DefaultFlushDelay = 2 * time.Second
	WriteTimeout      = 10 * time.Second
)
