// Package db provides repository operations for locally stored notes and
// reminder schedule entries.
package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/kimhsiao/memovox/backend/internal/models"
)

// Repository provides CRUD operations over the local store.
//
// Every note held here is pending-local by definition: the local store is
// the fallback of record while the remote service is unreachable, and the
// sync engine drains it note by note.
type Repository struct {
	db *sql.DB

	// Prepared statement cache for frequently used queries.
	// Statements are prepared on first use and cached for reuse.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from cache.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this, close our duplicate
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// =====================================================
// Note Operations
// =====================================================

// PutNote upserts a note by id. Re-writing the same id replaces the row,
// which keeps retried writes idempotent.
func (r *Repository) PutNote(note *models.Note) error {
	query := `
	INSERT OR REPLACE INTO notes (id, owner_id, title, transcript, audio_data, reminder_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, note.ID, note.OwnerID, note.Title, note.Transcript,
		note.AudioData, note.ReminderAt, note.CreatedAt)
	return err
}

// GetNote retrieves a note by id. Returns sql.ErrNoRows when absent.
func (r *Repository) GetNote(id string) (*models.Note, error) {
	query := `
	SELECT id, owner_id, title, transcript, audio_data, reminder_at, created_at
	FROM notes WHERE id = ?
	`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	return scanNote(stmt.QueryRow(id))
}

// ListNotes returns all locally held notes ordered by created_at descending.
// The store applies the ordering itself; callers do not re-sort.
func (r *Repository) ListNotes() ([]*models.Note, error) {
	query := `
	SELECT id, owner_id, title, transcript, audio_data, reminder_at, created_at
	FROM notes ORDER BY created_at DESC
	`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// ListPendingSync returns every note currently held only locally.
// The local store holds nothing else, so this is the full table ordered
// oldest-first so the sync engine drains in capture order.
func (r *Repository) ListPendingSync() ([]*models.Note, error) {
	query := `
	SELECT id, owner_id, title, transcript, audio_data, reminder_at, created_at
	FROM notes ORDER BY created_at ASC
	`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// DeleteNote removes a note by id. Deleting an absent id is a no-op.
func (r *Repository) DeleteNote(id string) error {
	_, err := r.db.Exec("DELETE FROM notes WHERE id = ?", id)
	return err
}

// CountNotes returns the number of locally held notes.
func (r *Repository) CountNotes() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM notes").Scan(&count)
	return count, err
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(row rowScanner) (*models.Note, error) {
	var note models.Note
	var audioData []byte
	var reminderAt sql.NullInt64

	err := row.Scan(&note.ID, &note.OwnerID, &note.Title, &note.Transcript,
		&audioData, &reminderAt, &note.CreatedAt)
	if err != nil {
		return nil, err
	}

	note.AudioData = audioData
	if reminderAt.Valid {
		v := reminderAt.Int64
		note.ReminderAt = &v
	}
	note.Storage = models.StoragePendingLocal
	return &note, nil
}

// =====================================================
// Reminder Operations
// =====================================================

// SaveReminder upserts the persisted schedule entry for a note.
// One row per note id; re-registering replaces the previous entry.
func (r *Repository) SaveReminder(rem *models.Reminder) error {
	if rem.CreatedAt == 0 {
		rem.CreatedAt = time.Now().Unix()
	}
	query := `
	INSERT OR REPLACE INTO reminders (note_id, label, fire_at, created_at)
	VALUES (?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, rem.NoteID, rem.Label, rem.FireAt, rem.CreatedAt)
	return err
}

// DeleteReminder removes the schedule entry for a note. Absent ids are a no-op.
func (r *Repository) DeleteReminder(noteID string) error {
	_, err := r.db.Exec("DELETE FROM reminders WHERE note_id = ?", noteID)
	return err
}

// ListReminders returns all persisted schedule entries ordered by firing time.
func (r *Repository) ListReminders() ([]*models.Reminder, error) {
	rows, err := r.db.Query("SELECT note_id, label, fire_at, created_at FROM reminders ORDER BY fire_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		var rem models.Reminder
		if err := rows.Scan(&rem.NoteID, &rem.Label, &rem.FireAt, &rem.CreatedAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, &rem)
	}
	return reminders, rows.Err()
}
