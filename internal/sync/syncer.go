package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/questline/calsync/internal/logging"
	"github.com/questline/calsync/internal/provider"
	"github.com/questline/calsync/internal/store"
)

// QuestStore is the subset of quest persistence the engine needs.
type QuestStore interface {
	FindByName(ctx context.Context, userID, name string) (*store.Quest, error)
	Create(ctx context.Context, quest *store.Quest) error
}

// Fetch window: 7 days back to catch recently-modified past events, 3
// months forward because the product's purpose is forward planning.
const (
	windowPastDays     = 7
	windowFutureMonths = 3
)

// DefaultQuestName is the lazily-created destination bucket for task
// imports when the connection does not name one.
const DefaultQuestName = "Calendar Imports"

// SyncResult is the aggregate outcome of one run. A non-empty error list
// and a completed run are not mutually exclusive; callers present partial
// failure as "synced with N warnings". The JSON shape is a contract with
// the calling layer.
type SyncResult struct {
	TasksCreated       int      `json:"tasksCreated"`
	TasksUpdated       int      `json:"tasksUpdated"`
	EntriesCreated     int      `json:"entriesCreated"`
	EntriesUpdated     int      `json:"entriesUpdated"`
	EventsProcessed    int      `json:"eventsProcessed"`
	CalendarsProcessed int      `json:"calendarsProcessed"`
	Errors             []string `json:"errors"`
}

func (r *SyncResult) record(action Action) {
	r.EventsProcessed++
	switch {
	case action.Kind == Created && action.EntityKind == store.KindTask:
		r.TasksCreated++
	case action.Kind == Updated && action.EntityKind == store.KindTask:
		r.TasksUpdated++
	case action.Kind == Created && action.EntityKind == store.KindScheduleEntry:
		r.EntriesCreated++
	case action.Kind == Updated && action.EntityKind == store.KindScheduleEntry:
		r.EntriesUpdated++
	}
}

// Syncer drives a full sync run: connection and token pre-flight, mapping
// load, per-calendar fetch, per-event normalize + reconcile, result
// aggregation and watermark persistence.
type Syncer struct {
	connections ConnectionStore
	imports     MappingStore
	tasks       TaskStore
	entries     EntryStore
	quests      QuestStore
	prov        provider.CalendarProvider
	tokens      *TokenManager
	log         *slog.Logger

	// now is injectable so the fetch window and watermark are
	// deterministic under test.
	now func() time.Time
}

// NewSyncer creates a Syncer. logger may be nil.
func NewSyncer(connections ConnectionStore, imports MappingStore, tasks TaskStore,
	entries EntryStore, quests QuestStore, prov provider.CalendarProvider, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		connections: connections,
		imports:     imports,
		tasks:       tasks,
		entries:     entries,
		quests:      quests,
		prov:        prov,
		tokens:      NewTokenManager(connections, prov),
		log:         logger,
		now:         time.Now,
	}
}

// RunSync performs one sync run for the user. Pre-flight failures
// (ErrNoConnection, ErrNoCalendarsSelected, ErrTokenUnavailable) abort
// before any event is touched; everything after that is per-calendar or
// per-event and lands in the result's error list. Re-running with no
// upstream changes is idempotent: every event skips and nothing mutates.
func (s *Syncer) RunSync(ctx context.Context, userID, timezone string) (*SyncResult, error) {
	log := s.log.With(logging.UserID(userID), logging.Provider(s.prov.Name()))

	conn, err := s.connections.Get(ctx, userID, s.prov.Name())
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, ErrNoConnection
	}
	if len(conn.SelectedCalendars) == 0 {
		return nil, ErrNoCalendarsSelected
	}

	token, err := s.tokens.ValidAccessToken(ctx, conn)
	if err != nil {
		return nil, err
	}

	questID, err := s.resolveQuest(ctx, conn)
	if err != nil {
		return nil, err
	}

	existing, err := s.imports.ListByUser(ctx, userID, s.prov.Name())
	if err != nil {
		return nil, err
	}
	mappings := make(map[string]*store.ImportedEvent, len(existing))
	for i := range existing {
		mappings[existing[i].ExternalUID] = &existing[i]
	}

	rec := NewReconciler(userID, s.prov.Name(), conn.DestinationMode, questID,
		mappings, s.imports, s.tasks, s.entries)

	loc := LoadLocation(timezone)
	now := s.now()
	timeMin := now.AddDate(0, 0, -windowPastDays)
	timeMax := now.AddDate(0, windowFutureMonths, 0)

	result := &SyncResult{Errors: []string{}}
	log.Info("starting sync",
		slog.Int("calendars", len(conn.SelectedCalendars)),
		slog.Int("known_events", len(mappings)))

	for _, calendarID := range conn.SelectedCalendars {
		events, err := s.prov.FetchEvents(ctx, token, calendarID, timeMin, timeMax)
		if err != nil {
			// One bad calendar never aborts the run.
			log.Warn("calendar fetch failed", slog.String("calendar", calendarID), logging.Err(err))
			result.Errors = append(result.Errors, fmt.Sprintf("calendar %s: %v", calendarID, err))
			continue
		}
		result.CalendarsProcessed++

		for _, ev := range events {
			normalized, err := Normalize(ev, loc)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("event %q: %v", ev.Title, err))
				continue
			}
			action, err := rec.Reconcile(ctx, normalized)
			if err != nil {
				log.Warn("event reconcile failed", slog.String("event", normalized.Title), logging.Err(err))
				result.Errors = append(result.Errors, fmt.Sprintf("event %q: %v", normalized.Title, err))
				continue
			}
			result.record(action)
		}
	}

	// Advance the watermark even on partial failure; a run that never
	// advances would retry the same failing events forever.
	syncedAt := s.now()
	conn.LastSyncedAt = &syncedAt
	if err := s.connections.Save(ctx, conn); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("persist sync watermark: %v", err))
	}

	log.Info("sync finished",
		slog.Int("events", result.EventsProcessed),
		slog.Int("tasks_created", result.TasksCreated),
		slog.Int("entries_created", result.EntriesCreated),
		slog.Int("errors", len(result.Errors)))

	return result, nil
}

// resolveQuest returns the destination bucket for task imports, lazily
// creating the default quest when the mode allows tasks and the connection
// does not name a bucket. Schedule-only connections never need one.
func (s *Syncer) resolveQuest(ctx context.Context, conn *store.Connection) (string, error) {
	if conn.DestinationQuestID != "" {
		return conn.DestinationQuestID, nil
	}
	if conn.DestinationMode == store.ModeSchedule {
		return "", nil
	}

	quest, err := s.quests.FindByName(ctx, conn.UserID, DefaultQuestName)
	if err != nil {
		return "", err
	}
	if quest == nil {
		quest = &store.Quest{
			ID:     uuid.NewString(),
			UserID: conn.UserID,
			Name:   DefaultQuestName,
		}
		if err := s.quests.Create(ctx, quest); err != nil {
			return "", fmt.Errorf("failed to create default quest: %w", err)
		}
	}
	conn.DestinationQuestID = quest.ID
	return quest.ID, nil
}
