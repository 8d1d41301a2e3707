package provider

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// EventTime mirrors the provider's dual time representation: all-day events
// carry a civil date ("2006-01-02"), timed events an RFC3339 instant.
// Exactly one of the two fields is set.
type EventTime struct {
	Date     string
	DateTime string
}

// Event is a provider-neutral calendar event. Fetchers translate their wire
// format into this before anything downstream sees it.
type Event struct {
	ID         string
	CalendarID string
	Title      string
	Start      EventTime
	End        EventTime
}

// CalendarInfo describes one calendar in the connected account.
type CalendarInfo struct {
	ID      string
	Summary string
	Primary bool
}

// CalendarProvider is the capability interface a calendar backend must
// implement. A second provider (Outlook, CalDAV, ...) is added by
// implementing this interface, not by branching inside the sync engine.
type CalendarProvider interface {
	// Name returns the stable provider identifier used in external uids
	// and persisted records, e.g. "google".
	Name() string

	// FetchEvents returns all non-cancelled, titled events in
	// [timeMin, timeMax] for the given calendar, with recurring events
	// expanded into individual instances and ordered by start time.
	FetchEvents(ctx context.Context, accessToken, calendarID string, timeMin, timeMax time.Time) ([]Event, error)

	// RefreshToken exchanges a refresh token for a fresh access token.
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)

	// ListCalendars returns the calendars visible to the account.
	ListCalendars(ctx context.Context, accessToken string) ([]CalendarInfo, error)
}
