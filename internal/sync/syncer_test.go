package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questline/calsync/internal/provider"
	"github.com/questline/calsync/internal/store"
)

func TestRunSync_NoConnection(t *testing.T) {
	h := newHarness()

	_, err := h.syncer.RunSync(context.Background(), "nobody", "UTC")
	assert.ErrorIs(t, err, ErrNoConnection)
}

func TestRunSync_NoCalendarsSelected(t *testing.T) {
	h := newHarness()
	h.addConnection("u1", store.ModeSmart)

	_, err := h.syncer.RunSync(context.Background(), "u1", "UTC")
	assert.ErrorIs(t, err, ErrNoCalendarsSelected)
}

func TestRunSync_TokenUnavailableIsFatal(t *testing.T) {
	h := newHarness()
	conn := h.addConnection("u1", store.ModeSmart, "cal-1")
	conn.TokenExpiry = h.now.Add(-time.Minute)
	h.prov.refreshErr = errors.New("refresh endpoint down")

	_, err := h.syncer.RunSync(context.Background(), "u1", "UTC")
	assert.ErrorIs(t, err, ErrTokenUnavailable)
	assert.Empty(t, h.prov.fetchTokens, "no provider calls without a token")
}

func TestRunSync_CreatesAndRoutesBySmartMode(t *testing.T) {
	h := newHarness()
	h.addConnection("u1", store.ModeSmart, "cal-1")
	h.prov.events["cal-1"] = []provider.Event{
		allDayEvent("cal-1", "ev-1", "Pay rent", "2025-03-14"),
		timedEvent("cal-1", "ev-2", "Standup", "2025-03-11T09:00:00Z", "2025-03-11T09:15:00Z"),
	}

	result, err := h.syncer.RunSync(context.Background(), "u1", "UTC")
	require.NoError(t, err)

	assert.Equal(t, 1, result.TasksCreated)
	assert.Equal(t, 1, result.EntriesCreated)
	assert.Equal(t, 2, result.EventsProcessed)
	assert.Equal(t, 1, result.CalendarsProcessed)
	assert.Empty(t, result.Errors)

	// The lazily-created default quest holds the imported task.
	require.Len(t, h.quests.quests, 1)
	assert.Equal(t, DefaultQuestName, h.quests.quests[0].Name)
	for _, task := range h.tasks.tasks {
		assert.Equal(t, h.quests.quests[0].ID, task.QuestID)
	}
}

func TestRunSync_Idempotent(t *testing.T) {
	h := newHarness()
	h.addConnection("u1", store.ModeSmart, "cal-1")
	h.prov.events["cal-1"] = []provider.Event{
		allDayEvent("cal-1", "ev-1", "Pay rent", "2025-03-14"),
		timedEvent("cal-1", "ev-2", "Standup", "2025-03-11T09:00:00Z", "2025-03-11T09:15:00Z"),
		timedEvent("cal-1", "ev-3", "Review", "2025-03-12T15:00:00Z", "2025-03-12T16:00:00Z"),
	}

	first, err := h.syncer.RunSync(context.Background(), "u1", "UTC")
	require.NoError(t, err)
	require.Equal(t, 3, first.EventsProcessed)

	second, err := h.syncer.RunSync(context.Background(), "u1", "UTC")
	require.NoError(t, err)

	assert.Zero(t, second.TasksCreated)
	assert.Zero(t, second.TasksUpdated)
	assert.Zero(t, second.EntriesCreated)
	assert.Zero(t, second.EntriesUpdated)
	assert.Equal(t, 3, second.EventsProcessed, "all events skip")
	assert.Len(t, h.tasks.tasks, 1)
	assert.Len(t, h.entries.entries, 2)
	assert.Zero(t, h.tasks.updates)
	assert.Zero(t, h.entries.updates)
}

func TestRunSync_LocalEditsDoNotTriggerUpdates(t *testing.T) {
	h := newHarness()
	h.addConnection("u1", store.ModeTasks, "cal-1")
	h.prov.events["cal-1"] = []provider.Event{
		allDayEvent("cal-1", "ev-1", "Pay rent", "2025-03-14"),
	}

	_, err := h.syncer.RunSync(context.Background(), "u1", "UTC")
	require.NoError(t, err)

	// Toggle locally-owned fields between runs.
	for _, task := range h.tasks.tasks {
		task.Priority = "high"
		task.Completed = true
	}

	second, err := h.syncer.RunSync(context.Background(), "u1", "UTC")
	require.NoError(t, err)
	assert.Zero(t, second.TasksUpdated, "hash excludes locally-owned fields")
	assert.Zero(t, h.tasks.updates)
}

func TestRunSync_UpstreamEditProducesOneUpdate(t *testing.T) {
	h := newHarness()
	h.addConnection("u1", store.ModeSmart, "cal-1")
	h.prov.events["cal-1"] = []provider.Event{
		timedEvent("cal-1", "ev-1", "Standup", "2025-03-11T09:00:00Z", "2025-03-11T09:15:00Z"),
	}

	_, err := h.syncer.RunSync(context.Background(), "u1", "UTC")
	require.NoError(t, err)

	// Title changes upstream.
	h.prov.events["cal-1"] = []provider.Event{
		timedEvent("cal-1", "ev-1", "Standup (moved)", "2025-03-11T09:00:00Z", "2025-03-11T09:15:00Z"),
	}

	second, err := h.syncer.RunSync(context.Background(), "u1", "UTC")
	require.NoError(t, err)
	assert.Equal(t, 1, second.EntriesUpdated)
	assert.Zero(t, second.EntriesCreated)
	assert.Len(t, h.entries.entries, 1)
	for _, entry := range h.entries.entries {
		assert.Equal(t, "Standup (moved)", entry.Title)
	}
}

func TestRunSync_PartialFailureIsolation(t *testing.T) {
	h := newHarness()
	h.addConnection("u1", store.ModeTasks, "cal-1")
	h.tasks.failTitles["Second"] = true
	h.prov.events["cal-1"] = []provider.Event{
		allDayEvent("cal-1", "ev-1", "First", "2025-03-11"),
		allDayEvent("cal-1", "ev-2", "Second", "2025-03-12"),
		allDayEvent("cal-1", "ev-3", "Third", "2025-03-13"),
	}

	result, err := h.syncer.RunSync(context.Background(), "u1", "UTC")
	require.NoError(t, err)

	assert.Equal(t, 2, result.TasksCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Second", "error carries the event title")
	assert.Equal(t, []string{"First", "Third"}, h.tasks.createdOrder,
		"events before and after the failure both import")
}

func TestRunSync_FetchFailureSkipsCalendarOnly(t *testing.T) {
	h := newHarness()
	h.addConnection("u1", store.ModeTasks, "cal-bad", "cal-good")
	h.prov.fetchErrs["cal-bad"] = errors.New("404 calendar not found")
	h.prov.events["cal-good"] = []provider.Event{
		allDayEvent("cal-good", "ev-1", "Pay rent", "2025-03-14"),
	}

	result, err := h.syncer.RunSync(context.Background(), "u1", "UTC")
	require.NoError(t, err)

	assert.Equal(t, 1, result.CalendarsProcessed)
	assert.Equal(t, 1, result.TasksCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "cal-bad")
}

func TestRunSync_WatermarkAdvancesOnPartialFailure(t *testing.T) {
	h := newHarness()
	conn := h.addConnection("u1", store.ModeTasks, "cal-bad")
	h.prov.fetchErrs["cal-bad"] = errors.New("boom")

	_, err := h.syncer.RunSync(context.Background(), "u1", "UTC")
	require.NoError(t, err)

	require.NotNil(t, conn.LastSyncedAt)
	assert.Equal(t, h.now, *conn.LastSyncedAt)
}

func TestRunSync_InvalidEntryTimesReportedPerEvent(t *testing.T) {
	// A start in the 23:xx hour synthesizes an end equal to the start,
	// which the entry store rejects; the run keeps going.
	h := newHarness()
	h.addConnection("u1", store.ModeSmart, "cal-1")
	h.prov.events["cal-1"] = []provider.Event{
		timedEvent("cal-1", "ev-1", "Midnight oil", "2025-03-11T23:40:00Z", ""),
		timedEvent("cal-1", "ev-2", "Standup", "2025-03-11T09:00:00Z", "2025-03-11T09:15:00Z"),
	}

	result, err := h.syncer.RunSync(context.Background(), "u1", "UTC")
	require.NoError(t, err)

	assert.Equal(t, 1, result.EntriesCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Midnight oil")
}

func TestRunSync_ExplicitQuestIsUsed(t *testing.T) {
	h := newHarness()
	conn := h.addConnection("u1", store.ModeTasks, "cal-1")
	conn.DestinationQuestID = "quest-custom"
	h.prov.events["cal-1"] = []provider.Event{
		allDayEvent("cal-1", "ev-1", "Pay rent", "2025-03-14"),
	}

	_, err := h.syncer.RunSync(context.Background(), "u1", "UTC")
	require.NoError(t, err)

	assert.Empty(t, h.quests.quests, "no default quest created")
	for _, task := range h.tasks.tasks {
		assert.Equal(t, "quest-custom", task.QuestID)
	}
}
