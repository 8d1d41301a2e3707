// Package logging provides slog helpers shared across the codebase so log
// attributes keep consistent names.
package logging

import (
	"fmt"
	"log/slog"
	"os"
)

// Common log attribute keys.
const (
	KeyUserID   = "user_id"
	KeyProvider = "provider"
	KeyCalendar = "calendar"
	KeyError    = "error"
)

// New returns a text-handler logger writing to stderr. verbose lowers the
// level to debug.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// UserID returns a slog attribute for the user id.
func UserID(id string) slog.Attr {
	return slog.String(KeyUserID, id)
}

// Provider returns a slog attribute for the provider name.
func Provider(name string) slog.Attr {
	return slog.String(KeyProvider, name)
}

// Err returns a slog attribute for an error. A nil err yields an empty
// group that slog omits from output.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken masks a token for logging, exposing only its length.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
