package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DestinationMode controls where imported events land.
type DestinationMode string

const (
	// ModeTasks imports every event as a task.
	ModeTasks DestinationMode = "tasks"
	// ModeSchedule imports every event as a schedule entry.
	ModeSchedule DestinationMode = "schedule"
	// ModeSmart routes all-day events to tasks and timed events to
	// schedule entries.
	ModeSmart DestinationMode = "smart"
)

// EntityKind identifies which internal entity an imported event produced.
type EntityKind string

const (
	KindTask          EntityKind = "task"
	KindScheduleEntry EntityKind = "schedule_entry"
)

// StringList stores a list of strings as a JSON text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported string list column type %T", value)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, l)
}

// Connection is a user's link to a calendar provider: one row per user per
// provider, created on first successful authorization and updated on every
// token refresh and sync run.
type Connection struct {
	ID                 string     `gorm:"primaryKey"`
	UserID             string     `gorm:"uniqueIndex:idx_connections_user_provider;not null"`
	Provider           string     `gorm:"uniqueIndex:idx_connections_user_provider;not null"`
	AccessToken        string     `json:"-"`
	RefreshToken       string     `json:"-"`
	TokenExpiry        time.Time
	SelectedCalendars  StringList `gorm:"type:text"`
	DestinationMode    DestinationMode
	DestinationQuestID string
	LastSyncedAt       *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ImportedEvent maps one externally-seen provider event to the internal
// entity it produced. The external uid is unique per user and the row is
// never deleted by the sync engine.
type ImportedEvent struct {
	ID          string     `gorm:"primaryKey"`
	UserID      string     `gorm:"uniqueIndex:idx_imported_events_user_uid;not null"`
	Provider    string     `gorm:"index"`
	ExternalUID string     `gorm:"uniqueIndex:idx_imported_events_user_uid;not null"`
	EntityKind  EntityKind `gorm:"not null"`
	EntityID    string     `gorm:"not null"`
	ContentHash string     `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Task is an importable to-do item. The sync engine owns Title and DueDate;
// Priority and Completed belong to the user and are never touched by an
// upstream edit.
type Task struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	QuestID   string `gorm:"index"`
	Title     string `gorm:"not null"`
	DueDate   string // civil date, "2006-01-02"
	Priority  string
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ScheduleEntry is a timed block on a single civil date.
type ScheduleEntry struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	Title     string `gorm:"not null"`
	Date      string `gorm:"not null"` // civil date, "2006-01-02"
	StartTime string `gorm:"not null"` // "15:04"
	EndTime   string `gorm:"not null"` // "15:04", strictly after StartTime
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Quest is a destination bucket for imported tasks.
type Quest struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
