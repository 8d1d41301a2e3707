package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/questline/calsync/internal/provider"
	"github.com/questline/calsync/internal/store"
)

// In-memory fakes for the store interfaces and the calendar provider. They
// persist across RunSync calls so idempotency can be exercised end to end.

type connKey struct {
	user string
	prov string
}

type fakeConnStore struct {
	conns   map[connKey]*store.Connection
	saves   int
	saveErr error
}

func newFakeConnStore() *fakeConnStore {
	return &fakeConnStore{conns: make(map[connKey]*store.Connection)}
}

func (s *fakeConnStore) Get(ctx context.Context, userID, providerName string) (*store.Connection, error) {
	return s.conns[connKey{userID, providerName}], nil
}

func (s *fakeConnStore) Save(ctx context.Context, conn *store.Connection) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.conns[connKey{conn.UserID, conn.Provider}] = conn
	return nil
}

type fakeMappingStore struct {
	rows    map[string]*store.ImportedEvent // keyed by row ID
	creates int
}

func newFakeMappingStore() *fakeMappingStore {
	return &fakeMappingStore{rows: make(map[string]*store.ImportedEvent)}
}

func (s *fakeMappingStore) ListByUser(ctx context.Context, userID, providerName string) ([]store.ImportedEvent, error) {
	var out []store.ImportedEvent
	for _, row := range s.rows {
		if row.UserID == userID && row.Provider == providerName {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *fakeMappingStore) Create(ctx context.Context, event *store.ImportedEvent) error {
	for _, row := range s.rows {
		if row.UserID == event.UserID && row.ExternalUID == event.ExternalUID {
			return fmt.Errorf("duplicate external uid %s", event.ExternalUID)
		}
	}
	s.creates++
	copied := *event
	s.rows[event.ID] = &copied
	return nil
}

func (s *fakeMappingStore) UpdateHash(ctx context.Context, id, hash string) error {
	row, ok := s.rows[id]
	if !ok {
		return fmt.Errorf("mapping %s not found", id)
	}
	row.ContentHash = hash
	return nil
}

type fakeTaskStore struct {
	tasks        map[string]*store.Task
	createdOrder []string // titles, in creation order
	updates      int
	failTitles   map[string]bool
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*store.Task), failTitles: make(map[string]bool)}
}

func (s *fakeTaskStore) Create(ctx context.Context, task *store.Task) error {
	if s.failTitles[task.Title] {
		return errors.New("destination quest missing")
	}
	copied := *task
	s.tasks[task.ID] = &copied
	s.createdOrder = append(s.createdOrder, task.Title)
	return nil
}

func (s *fakeTaskStore) UpdateImported(ctx context.Context, id, title, dueDate string) error {
	task, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	s.updates++
	task.Title = title
	task.DueDate = dueDate
	return nil
}

type fakeEntryStore struct {
	entries map[string]*store.ScheduleEntry
	creates int
	updates int
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{entries: make(map[string]*store.ScheduleEntry)}
}

func (s *fakeEntryStore) Create(ctx context.Context, entry *store.ScheduleEntry) error {
	if entry.EndTime <= entry.StartTime {
		return fmt.Errorf("schedule entry end time %s is not after start time %s", entry.EndTime, entry.StartTime)
	}
	s.creates++
	copied := *entry
	s.entries[entry.ID] = &copied
	return nil
}

func (s *fakeEntryStore) UpdateImported(ctx context.Context, id, title, date, start, end string) error {
	if end <= start {
		return fmt.Errorf("schedule entry end time %s is not after start time %s", end, start)
	}
	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("schedule entry %s not found", id)
	}
	s.updates++
	entry.Title = title
	entry.Date = date
	entry.StartTime = start
	entry.EndTime = end
	return nil
}

type fakeQuestStore struct {
	quests []*store.Quest
}

func (s *fakeQuestStore) FindByName(ctx context.Context, userID, name string) (*store.Quest, error) {
	for _, q := range s.quests {
		if q.UserID == userID && q.Name == name {
			return q, nil
		}
	}
	return nil, nil
}

func (s *fakeQuestStore) Create(ctx context.Context, quest *store.Quest) error {
	s.quests = append(s.quests, quest)
	return nil
}

type fakeProvider struct {
	events       map[string][]provider.Event
	fetchErrs    map[string]error
	fetchTokens  []string
	refreshed    *oauth2.Token
	refreshErr   error
	refreshCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		events:    make(map[string][]provider.Event),
		fetchErrs: make(map[string]error),
	}
}

func (f *fakeProvider) Name() string { return "google" }

func (f *fakeProvider) FetchEvents(ctx context.Context, accessToken, calendarID string, timeMin, timeMax time.Time) ([]provider.Event, error) {
	f.fetchTokens = append(f.fetchTokens, accessToken)
	if err := f.fetchErrs[calendarID]; err != nil {
		return nil, err
	}
	return f.events[calendarID], nil
}

func (f *fakeProvider) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshed, nil
}

func (f *fakeProvider) ListCalendars(ctx context.Context, accessToken string) ([]provider.CalendarInfo, error) {
	return nil, nil
}

// harness bundles the fakes behind one Syncer with a fixed clock.
type harness struct {
	conns   *fakeConnStore
	imports *fakeMappingStore
	tasks   *fakeTaskStore
	entries *fakeEntryStore
	quests  *fakeQuestStore
	prov    *fakeProvider
	syncer  *Syncer
	now     time.Time
}

func newHarness() *harness {
	h := &harness{
		conns:   newFakeConnStore(),
		imports: newFakeMappingStore(),
		tasks:   newFakeTaskStore(),
		entries: newFakeEntryStore(),
		quests:  &fakeQuestStore{},
		prov:    newFakeProvider(),
		now:     time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	h.syncer = NewSyncer(h.conns, h.imports, h.tasks, h.entries, h.quests, h.prov, nil)
	h.syncer.now = func() time.Time { return h.now }
	h.syncer.tokens.now = h.syncer.now
	return h
}

// addConnection installs a connection whose token is valid well past the
// fixed clock, so runs never hit the refresh path unless a test wants it.
func (h *harness) addConnection(userID string, mode store.DestinationMode, calendars ...string) *store.Connection {
	conn := &store.Connection{
		ID:                "conn-1",
		UserID:            userID,
		Provider:          "google",
		AccessToken:       "valid-token",
		RefreshToken:      "refresh-token",
		TokenExpiry:       h.now.Add(time.Hour),
		SelectedCalendars: store.StringList(calendars),
		DestinationMode:   mode,
	}
	h.conns.conns[connKey{userID, "google"}] = conn
	return conn
}

func timedEvent(calendarID, id, title, startRFC3339, endRFC3339 string) provider.Event {
	ev := provider.Event{
		ID:         id,
		CalendarID: calendarID,
		Title:      title,
		Start:      provider.EventTime{DateTime: startRFC3339},
	}
	if endRFC3339 != "" {
		ev.End = provider.EventTime{DateTime: endRFC3339}
	}
	return ev
}

func allDayEvent(calendarID, id, title, date string) provider.Event {
	return provider.Event{
		ID:         id,
		CalendarID: calendarID,
		Title:      title,
		Start:      provider.EventTime{Date: date},
	}
}
