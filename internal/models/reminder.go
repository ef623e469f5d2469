// Package models provides data model definitions for the Memovox core.
package models

import "time"

// Reminder is the persisted schedule entry backing the background reminder
// runner. One row per note id; re-registering replaces the row.
type Reminder struct {
	NoteID    UUID   `db:"note_id" json:"note_id"`
	Label     string `db:"label" json:"label"`
	FireAt    int64  `db:"fire_at" json:"fire_at"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

// TableName returns the table name for Reminder.
func (Reminder) TableName() string {
	return "reminders"
}

// FireTime returns FireAt as time.Time.
func (r *Reminder) FireTime() time.Time {
	return time.Unix(r.FireAt, 0)
}

// Due reports whether the reminder's firing time has passed.
func (r *Reminder) Due(now time.Time) bool {
	return !now.Before(r.FireTime())
}
