package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/questline/calsync/internal/store"
)

// MappingStore is the subset of imported-event persistence the engine needs.
type MappingStore interface {
	ListByUser(ctx context.Context, userID, providerName string) ([]store.ImportedEvent, error)
	Create(ctx context.Context, event *store.ImportedEvent) error
	UpdateHash(ctx context.Context, id, hash string) error
}

// TaskStore is the subset of task persistence the engine needs.
type TaskStore interface {
	Create(ctx context.Context, task *store.Task) error
	UpdateImported(ctx context.Context, id, title, dueDate string) error
}

// EntryStore is the subset of schedule-entry persistence the engine needs.
type EntryStore interface {
	Create(ctx context.Context, entry *store.ScheduleEntry) error
	UpdateImported(ctx context.Context, id, title, date, start, end string) error
}

// ActionKind classifies a reconciliation outcome.
type ActionKind int

const (
	Skipped ActionKind = iota
	Created
	Updated
)

func (k ActionKind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "skipped"
	}
}

// Action is the outcome of reconciling one event.
type Action struct {
	Kind       ActionKind
	EntityKind store.EntityKind
	EntityID   string
}

// defaultPriority is applied to newly imported tasks; the user owns the
// field afterwards.
const defaultPriority = "medium"

// Reconciler decides {skip, create, update} for fetched events against the
// previously-imported mappings. It receives a prebuilt lookup, loaded once
// per run, never a database handle: the per-event path stays
// allocation-cheap and testable without a real store.
type Reconciler struct {
	userID       string
	providerName string
	mode         store.DestinationMode
	questID      string
	mappings     map[string]*store.ImportedEvent
	imports      MappingStore
	tasks        TaskStore
	entries      EntryStore
}

// NewReconciler builds a reconciler over a prebuilt mapping lookup keyed by
// external uid.
func NewReconciler(userID, providerName string, mode store.DestinationMode, questID string,
	mappings map[string]*store.ImportedEvent, imports MappingStore, tasks TaskStore, entries EntryStore) *Reconciler {
	return &Reconciler{
		userID:       userID,
		providerName: providerName,
		mode:         mode,
		questID:      questID,
		mappings:     mappings,
		imports:      imports,
		tasks:        tasks,
		entries:      entries,
	}
}

// ExternalUID is the stable identity key of a provider event across runs,
// independent of any internal id.
func ExternalUID(providerName, calendarID, eventID string) string {
	return fmt.Sprintf("%s:%s:%s", providerName, calendarID, eventID)
}

// ContentHash fingerprints exactly the fields that are re-imported on
// change. Locally-owned fields (priority, completion) are excluded so a
// user's edits are never reverted by an unrelated upstream change.
func ContentHash(title, date, startTime string) string {
	sum := sha256.Sum256([]byte(title + "|" + date + "|" + startTime))
	return hex.EncodeToString(sum[:])
}

// Reconcile processes one normalized event. A create or update failure is
// returned for the caller to record; it never aborts the batch.
func (r *Reconciler) Reconcile(ctx context.Context, ev NormalizedEvent) (Action, error) {
	uid := ExternalUID(r.providerName, ev.CalendarID, ev.EventID)
	hash := ContentHash(ev.Title, ev.Date, ev.StartTime)

	mapping, found := r.mappings[uid]
	if !found {
		return r.create(ctx, ev, uid, hash)
	}
	if mapping.ContentHash == hash {
		return Action{Kind: Skipped, EntityKind: mapping.EntityKind, EntityID: mapping.EntityID}, nil
	}
	return r.update(ctx, ev, mapping, hash)
}

func (r *Reconciler) create(ctx context.Context, ev NormalizedEvent, uid, hash string) (Action, error) {
	kind := destinationKind(r.mode, ev)
	entityID := uuid.NewString()

	switch kind {
	case store.KindTask:
		task := &store.Task{
			ID:       entityID,
			UserID:   r.userID,
			QuestID:  r.questID,
			Title:    ev.Title,
			DueDate:  ev.Date,
			Priority: defaultPriority,
		}
		if err := r.tasks.Create(ctx, task); err != nil {
			return Action{}, err
		}
	case store.KindScheduleEntry:
		start, end := entryTimes(ev)
		entry := &store.ScheduleEntry{
			ID:        entityID,
			UserID:    r.userID,
			Title:     ev.Title,
			Date:      ev.Date,
			StartTime: start,
			EndTime:   end,
		}
		if err := r.entries.Create(ctx, entry); err != nil {
			return Action{}, err
		}
	}

	mapping := &store.ImportedEvent{
		ID:          uuid.NewString(),
		UserID:      r.userID,
		Provider:    r.providerName,
		ExternalUID: uid,
		EntityKind:  kind,
		EntityID:    entityID,
		ContentHash: hash,
	}
	if err := r.imports.Create(ctx, mapping); err != nil {
		return Action{}, err
	}
	r.mappings[uid] = mapping

	return Action{Kind: Created, EntityKind: kind, EntityID: entityID}, nil
}

// update mutates only the imported fields of the entity the mapping already
// points at, even if the connection's destination mode has changed since
// the event was first imported.
func (r *Reconciler) update(ctx context.Context, ev NormalizedEvent, mapping *store.ImportedEvent, hash string) (Action, error) {
	switch mapping.EntityKind {
	case store.KindTask:
		if err := r.tasks.UpdateImported(ctx, mapping.EntityID, ev.Title, ev.Date); err != nil {
			return Action{}, err
		}
	case store.KindScheduleEntry:
		start, end := entryTimes(ev)
		if err := r.entries.UpdateImported(ctx, mapping.EntityID, ev.Title, ev.Date, start, end); err != nil {
			return Action{}, err
		}
	}

	if err := r.imports.UpdateHash(ctx, mapping.ID, hash); err != nil {
		return Action{}, err
	}
	mapping.ContentHash = hash

	return Action{Kind: Updated, EntityKind: mapping.EntityKind, EntityID: mapping.EntityID}, nil
}

// entryTimes returns the schedule-entry time pair for an event. An all-day
// event forced into a schedule entry by an explicit mode gets a placeholder
// block at the start of its civil day.
func entryTimes(ev NormalizedEvent) (string, string) {
	if ev.AllDay {
		return "00:00", "01:00"
	}
	return ev.StartTime, ev.EndTime
}
