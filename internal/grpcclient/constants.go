// Package grpcclient talks to a text recognition service over gRPC
package grpcclient

import "time"

// Client configuration defaults
const (
	// Keepalive configuration
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// Health check configuration
	HealthCheckTimeout = 2 * time.Second

	// Outgoing metadata keys
	FormatKey   = "x-image-format"
	LanguageKey = "x-language"
)
