// Package models provides data model definitions for the Memovox core.
package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// UUID is a wrapper around string for UUID v4 type safety.
type UUID string

// Value implements driver.Valuer for UUID.
func (u UUID) Value() (driver.Value, error) {
	return string(u), nil
}

// Scan implements sql.Scanner for UUID.
func (u *UUID) Scan(value interface{}) error {
	if value == nil {
		*u = ""
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*u = UUID(v)
	case string:
		*u = UUID(v)
	default:
		return fmt.Errorf("cannot scan %T into UUID", value)
	}
	return nil
}

// String returns the string representation of the UUID.
func (u UUID) String() string {
	return string(u)
}

// StorageState tags which store currently holds the authoritative copy of
// a note. A note lives in exactly one store at any observable time.
type StorageState string

const (
	// StoragePendingLocal means the only durable copy is in the local store.
	StoragePendingLocal StorageState = "pending_local"
	// StorageSynced means the note is held by the remote service with no
	// local copy retained.
	StorageSynced StorageState = "synced"
)

// Note represents one captured voice memo.
//
// The audio reference is exactly one of AudioURL (remote location, set once
// synced) or AudioData (inline payload, held while pending-local). Never
// both at the same time.
type Note struct {
	ID         UUID   `db:"id" json:"id"`
	OwnerID    string `db:"owner_id" json:"owner_id"`
	Title      string `db:"title" json:"title"`
	Transcript string `db:"transcript" json:"transcript"`
	AudioURL   string `db:"audio_url" json:"audio_url,omitempty"`
	AudioData  []byte `db:"audio_data" json:"audio_data,omitempty"`
	ReminderAt *int64 `db:"reminder_at" json:"reminder_at,omitempty"`
	CreatedAt  int64  `db:"created_at" json:"created_at"`

	// Storage is not persisted remotely; the remote service only ever
	// holds synced notes.
	Storage StorageState `db:"-" json:"storage,omitempty"`
}

// TableName returns the table name for Note.
func (Note) TableName() string {
	return "notes"
}

// CreatedAtTime returns CreatedAt as time.Time.
func (n *Note) CreatedAtTime() time.Time {
	return time.Unix(n.CreatedAt, 0)
}

// ReminderTime returns the reminder as time.Time, or the zero time when no
// reminder is set.
func (n *Note) ReminderTime() time.Time {
	if n.ReminderAt == nil {
		return time.Time{}
	}
	return time.Unix(*n.ReminderAt, 0)
}

// HasReminder reports whether a reminder timestamp is present.
func (n *Note) HasReminder() bool {
	return n.ReminderAt != nil
}

// Promote marks the note as synced, recording the remote location. The
// inline payload is dropped only once a durable URL replaces it; when the
// service has not assigned one yet the payload is kept so the note never
// lacks an audio reference.
func (n *Note) Promote(audioURL string) {
	n.Storage = StorageSynced
	n.AudioURL = audioURL
	if audioURL != "" {
		n.AudioData = nil
	}
}
