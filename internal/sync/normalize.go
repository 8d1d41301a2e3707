package sync

import (
	"fmt"
	"time"

	"github.com/questline/calsync/internal/provider"
	"github.com/questline/calsync/internal/store"
)

// NormalizedEvent is the internal representation of one provider event
// after time normalization: a civil date plus an optional local
// time-of-day pair.
type NormalizedEvent struct {
	Title      string
	Date       string // "2006-01-02"
	StartTime  string // "15:04", empty for all-day events
	EndTime    string // "15:04", empty for all-day events
	AllDay     bool
	CalendarID string
	EventID    string
}

const (
	civilDateLayout = "2006-01-02"
	clockLayout     = "15:04"
)

// LoadLocation resolves an IANA timezone name, falling back to UTC when the
// name is empty or unknown.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Normalize converts a provider event into the internal representation.
//
// All-day events carry a date-only start; that date is a civil date, not an
// instant, and is copied verbatim with no timezone conversion. Timed events
// are projected into loc so the wall-clock time matches what the event
// creator intended in their own zone.
func Normalize(ev provider.Event, loc *time.Location) (NormalizedEvent, error) {
	out := NormalizedEvent{
		Title:      ev.Title,
		CalendarID: ev.CalendarID,
		EventID:    ev.ID,
	}

	if ev.Start.Date != "" {
		out.AllDay = true
		out.Date = ev.Start.Date
		return out, nil
	}

	if ev.Start.DateTime == "" {
		return NormalizedEvent{}, fmt.Errorf("event %s has neither date nor dateTime start", ev.ID)
	}
	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return NormalizedEvent{}, fmt.Errorf("failed to parse event start time: %w", err)
	}
	local := start.In(loc)
	out.Date = local.Format(civilDateLayout)
	out.StartTime = local.Format(clockLayout)

	if ev.End.DateTime != "" {
		if end, err := time.Parse(time.RFC3339, ev.End.DateTime); err == nil {
			out.EndTime = end.In(loc).Format(clockLayout)
		}
	}
	// Missing end, or an end that does not land strictly after the start
	// on the same civil date, is synthesized so downstream entries always
	// satisfy end > start.
	if out.EndTime == "" || out.EndTime <= out.StartTime {
		out.EndTime = synthesizeEnd(out.StartTime)
	}

	return out, nil
}

// synthesizeEnd returns start + 1 hour with the hour capped at 23 and the
// minute preserved. In the 23:xx hour the cap makes the result equal to the
// start; that entry is then rejected by the end > start check and surfaces
// as a per-event error rather than an invented time.
func synthesizeEnd(start string) string {
	t, err := time.Parse(clockLayout, start)
	if err != nil {
		return start
	}
	hour := t.Hour() + 1
	if hour > 23 {
		hour = 23
	}
	return fmt.Sprintf("%02d:%02d", hour, t.Minute())
}

// destinationKind resolves where a normalized event lands. An explicit
// tasks/schedule mode overrides the per-event inference; smart mode routes
// all-day events to tasks and timed events to schedule entries.
func destinationKind(mode store.DestinationMode, ev NormalizedEvent) store.EntityKind {
	switch mode {
	case store.ModeTasks:
		return store.KindTask
	case store.ModeSchedule:
		return store.KindScheduleEntry
	default:
		if ev.AllDay {
			return store.KindTask
		}
		return store.KindScheduleEntry
	}
}
