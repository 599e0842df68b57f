// Package server exposes a run over HTTP and WebSocket
package server

import "time"

// Server configuration constants
const (
	// Per-connection inbound message limit
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	// Deadline for a single broadcast write to a slow client
	BroadcastWriteTimeout = 5 * time.Second

	// http.Server timeouts used by cmd/matchscan
	ReadHeaderTimeout = 5 * time.Second
	ShutdownTimeout   = 5 * time.Second
)
