// Package db tests for note and reminder repository operations.
package db

import (
	"bytes"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/kimhsiao/memovox/backend/internal/models"
	"github.com/kimhsiao/memovox/backend/internal/uuid"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db := openTestDB(t)
	repo := NewRepository(db.DB)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testNote(createdAt int64) *models.Note {
	return &models.Note{
		ID:         models.UUID(uuid.New()),
		OwnerID:    "owner-1",
		Title:      "Buy groceries",
		Transcript: "Buy groceries tomorrow morning before work",
		AudioData:  []byte{0x1a, 0x45, 0xdf, 0xa3, 0x00, 0xff},
		CreatedAt:  createdAt,
		Storage:    models.StoragePendingLocal,
	}
}

// TestPutGetNote verifies round-trip of all note fields.
func TestPutGetNote(t *testing.T) {
	repo := newTestRepository(t)

	reminderAt := time.Now().Add(time.Hour).Unix()
	note := testNote(time.Now().Unix())
	note.ReminderAt = &reminderAt

	if err := repo.PutNote(note); err != nil {
		t.Fatalf("PutNote() failed: %v", err)
	}

	got, err := repo.GetNote(string(note.ID))
	if err != nil {
		t.Fatalf("GetNote() failed: %v", err)
	}

	if got.ID != note.ID {
		t.Errorf("ID = %s, want %s", got.ID, note.ID)
	}
	if got.OwnerID != note.OwnerID {
		t.Errorf("OwnerID = %s, want %s", got.OwnerID, note.OwnerID)
	}
	if got.Title != note.Title {
		t.Errorf("Title = %q, want %q", got.Title, note.Title)
	}
	if got.Transcript != note.Transcript {
		t.Errorf("Transcript = %q, want %q", got.Transcript, note.Transcript)
	}
	if got.ReminderAt == nil || *got.ReminderAt != reminderAt {
		t.Errorf("ReminderAt = %v, want %d", got.ReminderAt, reminderAt)
	}
	if got.Storage != models.StoragePendingLocal {
		t.Errorf("Storage = %s, want pending_local", got.Storage)
	}
}

// TestAudioRoundTrip verifies audio payloads survive storage byte-exact.
func TestAudioRoundTrip(t *testing.T) {
	repo := newTestRepository(t)

	// Payload exercising all byte values, including NUL and high bytes
	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(i % 256)
	}

	note := testNote(time.Now().Unix())
	note.AudioData = payload

	if err := repo.PutNote(note); err != nil {
		t.Fatalf("PutNote() failed: %v", err)
	}

	got, err := repo.GetNote(string(note.ID))
	if err != nil {
		t.Fatalf("GetNote() failed: %v", err)
	}

	if !bytes.Equal(got.AudioData, payload) {
		t.Error("audio payload did not round-trip byte-exact")
	}
}

// TestPutNoteUpsert verifies a second put with the same id replaces the row.
func TestPutNoteUpsert(t *testing.T) {
	repo := newTestRepository(t)

	note := testNote(time.Now().Unix())
	if err := repo.PutNote(note); err != nil {
		t.Fatalf("PutNote() failed: %v", err)
	}

	note.Title = "Updated title"
	if err := repo.PutNote(note); err != nil {
		t.Fatalf("second PutNote() failed: %v", err)
	}

	count, err := repo.CountNotes()
	if err != nil {
		t.Fatalf("CountNotes() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	got, err := repo.GetNote(string(note.ID))
	if err != nil {
		t.Fatalf("GetNote() failed: %v", err)
	}
	if got.Title != "Updated title" {
		t.Errorf("Title = %q, want updated value", got.Title)
	}
}

// TestListNotesOrdering verifies created_at descending ordering.
func TestListNotesOrdering(t *testing.T) {
	repo := newTestRepository(t)

	base := time.Now().Unix()
	for i := 0; i < 3; i++ {
		note := testNote(base + int64(i))
		if err := repo.PutNote(note); err != nil {
			t.Fatalf("PutNote() failed: %v", err)
		}
	}

	notes, err := repo.ListNotes()
	if err != nil {
		t.Fatalf("ListNotes() failed: %v", err)
	}

	if len(notes) != 3 {
		t.Fatalf("len(notes) = %d, want 3", len(notes))
	}

	for i := 1; i < len(notes); i++ {
		if notes[i-1].CreatedAt < notes[i].CreatedAt {
			t.Error("ListNotes() not ordered by created_at descending")
		}
	}
}

// TestListPendingSyncOrdering verifies oldest-first drain order.
func TestListPendingSyncOrdering(t *testing.T) {
	repo := newTestRepository(t)

	base := time.Now().Unix()
	for i := 0; i < 3; i++ {
		if err := repo.PutNote(testNote(base + int64(i))); err != nil {
			t.Fatalf("PutNote() failed: %v", err)
		}
	}

	pending, err := repo.ListPendingSync()
	if err != nil {
		t.Fatalf("ListPendingSync() failed: %v", err)
	}

	if len(pending) != 3 {
		t.Fatalf("len(pending) = %d, want 3", len(pending))
	}

	for i := 1; i < len(pending); i++ {
		if pending[i-1].CreatedAt > pending[i].CreatedAt {
			t.Error("ListPendingSync() not ordered oldest-first")
		}
	}
}

// TestDeleteNoteIdempotent verifies deleting an absent id is a no-op.
func TestDeleteNoteIdempotent(t *testing.T) {
	repo := newTestRepository(t)

	note := testNote(time.Now().Unix())
	if err := repo.PutNote(note); err != nil {
		t.Fatalf("PutNote() failed: %v", err)
	}

	if err := repo.DeleteNote(string(note.ID)); err != nil {
		t.Fatalf("DeleteNote() failed: %v", err)
	}

	// Second delete of the same id must not error
	if err := repo.DeleteNote(string(note.ID)); err != nil {
		t.Errorf("repeated DeleteNote() failed: %v", err)
	}

	if _, err := repo.GetNote(string(note.ID)); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetNote() after delete = %v, want sql.ErrNoRows", err)
	}
}

// TestSaveReminderReplaces verifies one row per note id.
func TestSaveReminderReplaces(t *testing.T) {
	repo := newTestRepository(t)

	first := &models.Reminder{NoteID: "note-1", Label: "Call dentist", FireAt: time.Now().Add(time.Hour).Unix()}
	if err := repo.SaveReminder(first); err != nil {
		t.Fatalf("SaveReminder() failed: %v", err)
	}

	second := &models.Reminder{NoteID: "note-1", Label: "Call dentist", FireAt: time.Now().Add(2 * time.Hour).Unix()}
	if err := repo.SaveReminder(second); err != nil {
		t.Fatalf("second SaveReminder() failed: %v", err)
	}

	reminders, err := repo.ListReminders()
	if err != nil {
		t.Fatalf("ListReminders() failed: %v", err)
	}

	if len(reminders) != 1 {
		t.Fatalf("len(reminders) = %d, want 1", len(reminders))
	}
	if reminders[0].FireAt != second.FireAt {
		t.Errorf("FireAt = %d, want the replacing entry's %d", reminders[0].FireAt, second.FireAt)
	}
}

// TestDeleteReminderIdempotent verifies absent ids are a no-op.
func TestDeleteReminderIdempotent(t *testing.T) {
	repo := newTestRepository(t)

	if err := repo.DeleteReminder("never-registered"); err != nil {
		t.Errorf("DeleteReminder() on absent id failed: %v", err)
	}
}
