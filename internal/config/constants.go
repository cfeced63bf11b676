package config

import "time"

// Pagination defaults. No route in internal/api currently reads them.
const (
	DefaultPage     = 1
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// Server
const (
	ServerReadTimeout    = 30 * time.Second
	ServerWriteTimeout   = 60 * time.Second
	APITimeout           = 30 * time.Second
	WebsocketPingInterval = 15 * time.Second
)

// Logging
const (
	LogFilePattern = "slpdex-%s-%s.log" // %s = YYYY-MM-DD, %s = level
	LogMaxAgeDays  = 30
)

// Database
const (
	DBWALMode     = true
	DBBusyTimeout = 5000 // milliseconds
)

// Remote — bitdb/slpdb query settings. internal/remote makes one attempt
// per request: a "Remote" error (spec.md §7) aborts the current resync
// cycle and the next cycle starts again from the last persisted
// checkpoint. RemoteMaxRetries and RemoteRetryBaseDelay are not referenced
// by internal/remote; no request is retried within a cycle.
const (
	RemoteRequestTimeout = 15 * time.Second
	RemoteMaxRetries     = 3
	RemoteRetryBaseDelay = 1 * time.Second

	// DefaultRemoteRequestsPerSecond matches the default:"10" tag on
	// Config.RemoteRequestsPerSecond, which is what supplies the rate when
	// SLPDEX_REMOTE_RPS is unset.
	DefaultRemoteRequestsPerSecond = 10
)
