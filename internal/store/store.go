package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens (or creates) the SQLite database at path and migrates the
// schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&Connection{}, &ImportedEvent{}, &Task{}, &ScheduleEntry{}, &Quest{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}

// ConnectionStore persists provider connections.
type ConnectionStore struct {
	db *gorm.DB
}

func NewConnectionStore(db *gorm.DB) *ConnectionStore {
	return &ConnectionStore{db: db}
}

// Get returns the connection for user+provider, or nil if none exists.
func (s *ConnectionStore) Get(ctx context.Context, userID, provider string) (*Connection, error) {
	var conn Connection
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	return &conn, nil
}

// Save inserts or updates a connection.
func (s *ConnectionStore) Save(ctx context.Context, conn *Connection) error {
	if err := s.db.WithContext(ctx).Save(conn).Error; err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}
	return nil
}

// Delete removes the connection for user+provider.
func (s *ConnectionStore) Delete(ctx context.Context, userID, provider string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		Delete(&Connection{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	return nil
}

// ImportedEventStore persists the external-event-to-entity mappings.
type ImportedEventStore struct {
	db *gorm.DB
}

func NewImportedEventStore(db *gorm.DB) *ImportedEventStore {
	return &ImportedEventStore{db: db}
}

// ListByUser returns all mappings for user+provider.
func (s *ImportedEventStore) ListByUser(ctx context.Context, userID, provider string) ([]ImportedEvent, error) {
	var events []ImportedEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list imported events: %w", err)
	}
	return events, nil
}

// Create inserts a new mapping. The unique index on (user_id, external_uid)
// rejects a second mapping for the same external event.
func (s *ImportedEventStore) Create(ctx context.Context, event *ImportedEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create imported event: %w", err)
	}
	return nil
}

// UpdateHash stores a new content hash on an existing mapping.
func (s *ImportedEventStore) UpdateHash(ctx context.Context, id, hash string) error {
	err := s.db.WithContext(ctx).
		Model(&ImportedEvent{}).
		Where("id = ?", id).
		Update("content_hash", hash).Error
	if err != nil {
		return fmt.Errorf("failed to update content hash: %w", err)
	}
	return nil
}

// TaskStore persists tasks.
type TaskStore struct {
	db *gorm.DB
}

func NewTaskStore(db *gorm.DB) *TaskStore {
	return &TaskStore{db: db}
}

func (s *TaskStore) Create(ctx context.Context, task *Task) error {
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// UpdateImported mutates only the fields the sync engine owns. Priority and
// Completed are locally owned and deliberately not in the update set.
func (s *TaskStore) UpdateImported(ctx context.Context, id, title, dueDate string) error {
	err := s.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ?", id).
		Updates(map[string]any{"title": title, "due_date": dueDate}).Error
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

func (s *TaskStore) Get(ctx context.Context, id string) (*Task, error) {
	var task Task
	if err := s.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return &task, nil
}

// ScheduleEntryStore persists schedule entries.
type ScheduleEntryStore struct {
	db *gorm.DB
}

func NewScheduleEntryStore(db *gorm.DB) *ScheduleEntryStore {
	return &ScheduleEntryStore{db: db}
}

func validateEntryTimes(start, end string) error {
	// "15:04" strings compare correctly as text.
	if end <= start {
		return fmt.Errorf("schedule entry end time %s is not after start time %s", end, start)
	}
	return nil
}

func (s *ScheduleEntryStore) Create(ctx context.Context, entry *ScheduleEntry) error {
	if err := validateEntryTimes(entry.StartTime, entry.EndTime); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create schedule entry: %w", err)
	}
	return nil
}

// UpdateImported mutates only title, date and times.
func (s *ScheduleEntryStore) UpdateImported(ctx context.Context, id, title, date, start, end string) error {
	if err := validateEntryTimes(start, end); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).
		Model(&ScheduleEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{"title": title, "date": date, "start_time": start, "end_time": end}).Error
	if err != nil {
		return fmt.Errorf("failed to update schedule entry: %w", err)
	}
	return nil
}

func (s *ScheduleEntryStore) Get(ctx context.Context, id string) (*ScheduleEntry, error) {
	var entry ScheduleEntry
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to load schedule entry: %w", err)
	}
	return &entry, nil
}

// QuestStore persists quests.
type QuestStore struct {
	db *gorm.DB
}

func NewQuestStore(db *gorm.DB) *QuestStore {
	return &QuestStore{db: db}
}

// FindByName returns the user's quest with the given name, or nil.
func (s *QuestStore) FindByName(ctx context.Context, userID, name string) (*Quest, error) {
	var quest Quest
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		First(&quest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find quest: %w", err)
	}
	return &quest, nil
}

func (s *QuestStore) Create(ctx context.Context, quest *Quest) error {
	if err := s.db.WithContext(ctx).Create(quest).Error; err != nil {
		return fmt.Errorf("failed to create quest: %w", err)
	}
	return nil
}
