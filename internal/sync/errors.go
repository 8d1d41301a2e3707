package sync

import "errors"

// Run-fatal errors: surfaced before any provider call is made and never
// retried automatically. Everything else during a run is calendar- or
// event-scoped and lands in SyncResult.Errors instead.
var (
	// ErrNoConnection means the user has no provider connection.
	ErrNoConnection = errors.New("no calendar connection for user")

	// ErrNoCalendarsSelected means the connection has an empty
	// selected-calendar set.
	ErrNoCalendarsSelected = errors.New("no calendars selected for sync")

	// ErrTokenUnavailable means no valid access token could be produced:
	// missing refresh token, unconfigured credentials, or a failed
	// refresh exchange.
	ErrTokenUnavailable = errors.New("no valid access token available")
)
