// Package sync tests for the drain engine.
package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	apperrors "github.com/kimhsiao/memovox/backend/internal/errors"
	"github.com/kimhsiao/memovox/backend/internal/models"
)

// =====================================================
// Test Fakes
// =====================================================

// fakeQueue is an in-memory LocalQueue preserving insertion order.
type fakeQueue struct {
	mu      gosync.Mutex
	notes   []*models.Note
	listErr error
}

func (q *fakeQueue) add(id string) *models.Note {
	q.mu.Lock()
	defer q.mu.Unlock()
	note := &models.Note{
		ID:        models.UUID(id),
		OwnerID:   "owner-1",
		Title:     "Note " + id,
		AudioData: []byte{0x01},
		CreatedAt: int64(len(q.notes) + 1),
		Storage:   models.StoragePendingLocal,
	}
	q.notes = append(q.notes, note)
	return note
}

func (q *fakeQueue) ListPendingSync() ([]*models.Note, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.listErr != nil {
		return nil, q.listErr
	}
	out := make([]*models.Note, len(q.notes))
	copy(out, q.notes)
	return out, nil
}

func (q *fakeQueue) DeleteNote(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, n := range q.notes {
		if string(n.ID) == id {
			q.notes = append(q.notes[:i], q.notes[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *fakeQueue) CountNotes() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.notes), nil
}

// fakeService records upload order and fails configured note ids.
type fakeService struct {
	mu       gosync.Mutex
	uploaded []string
	failIDs  map[string]bool
	blockCh  chan struct{} // when set, Upsert blocks until closed
	pingErr  error
}

func newFakeService() *fakeService {
	return &fakeService{failIDs: make(map[string]bool)}
}

func (s *fakeService) Upsert(ctx context.Context, note *models.Note) (string, error) {
	if s.blockCh != nil {
		<-s.blockCh
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIDs[string(note.ID)] {
		return "", errors.New("upstream rejected")
	}
	s.uploaded = append(s.uploaded, string(note.ID))
	return "https://store.example.com/" + string(note.ID) + ".webm", nil
}

func (s *fakeService) ListByOwner(ctx context.Context, ownerID string) ([]*models.Note, error) {
	return nil, nil
}

func (s *fakeService) Delete(ctx context.Context, id, ownerID string) error {
	return nil
}

func (s *fakeService) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingErr
}

func (s *fakeService) setPingErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

func (s *fakeService) uploadOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.uploaded))
	copy(out, s.uploaded)
	return out
}

// =====================================================
// Engine Tests
// =====================================================

// TestSyncAllDrains verifies the oldest-first full drain.
func TestSyncAllDrains(t *testing.T) {
	queue := &fakeQueue{}
	queue.add("note-a")
	queue.add("note-b")
	queue.add("note-c")
	service := newFakeService()

	engine := NewEngine(queue, service)
	report, err := engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll() failed: %v", err)
	}

	if report.Synced != 3 || report.Failed != 0 || report.Remaining != 0 {
		t.Errorf("report = %+v, want 3 synced, 0 failed, 0 remaining", report)
	}

	order := service.uploadOrder()
	if len(order) != 3 || order[0] != "note-a" || order[2] != "note-c" {
		t.Errorf("upload order = %v, want oldest first", order)
	}

	count, _ := queue.CountNotes()
	if count != 0 {
		t.Errorf("local queue holds %d notes after drain, want 0", count)
	}

	if engine.Status() != StatusIdle {
		t.Errorf("Status() = %s, want idle", engine.Status())
	}
	if engine.LastSync() == nil {
		t.Error("LastSync() = nil after successful run")
	}
	if engine.LastError() != nil {
		t.Errorf("LastError() = %v, want nil", engine.LastError())
	}
}

// TestSyncAllEmptyQueue verifies a drain with nothing pending is a
// clean no-op.
func TestSyncAllEmptyQueue(t *testing.T) {
	engine := NewEngine(&fakeQueue{}, newFakeService())

	report, err := engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll() failed: %v", err)
	}
	if report.Synced != 0 || report.Failed != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
	if engine.Status() != StatusIdle {
		t.Errorf("Status() = %s, want idle", engine.Status())
	}
}

// TestSyncAllPartialFailure verifies a failed upload keeps its note in
// place while the drain continues past it.
func TestSyncAllPartialFailure(t *testing.T) {
	queue := &fakeQueue{}
	queue.add("note-a")
	queue.add("note-b")
	queue.add("note-c")
	service := newFakeService()
	service.failIDs["note-b"] = true

	engine := NewEngine(queue, service)
	report, err := engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll() failed: %v", err)
	}

	if report.Synced != 2 || report.Failed != 1 || report.Remaining != 1 {
		t.Errorf("report = %+v, want 2 synced, 1 failed, 1 remaining", report)
	}

	remaining, _ := queue.ListPendingSync()
	if len(remaining) != 1 || string(remaining[0].ID) != "note-b" {
		t.Errorf("remaining = %v, want only note-b left in place", remaining)
	}

	if engine.Status() != StatusFailed {
		t.Errorf("Status() = %s, want failed", engine.Status())
	}
	if !apperrors.Is(engine.LastError(), apperrors.ErrSyncFailed) {
		t.Errorf("LastError() = %v, want SYNC_FAILED", engine.LastError())
	}

	// Next run retries the leftover once the upstream recovers
	delete(service.failIDs, "note-b")
	report, err = engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("retry SyncAll() failed: %v", err)
	}
	if report.Synced != 1 || report.Failed != 0 {
		t.Errorf("retry report = %+v, want note-b drained", report)
	}
	count, _ := queue.CountNotes()
	if count != 0 {
		t.Errorf("local queue holds %d notes after retry, want 0", count)
	}
}

// TestSyncAllInFlightGuard verifies concurrent runs collapse to one.
func TestSyncAllInFlightGuard(t *testing.T) {
	queue := &fakeQueue{}
	queue.add("note-a")
	service := newFakeService()
	service.blockCh = make(chan struct{})

	engine := NewEngine(queue, service)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := engine.SyncAll(context.Background()); err != nil {
			t.Errorf("blocked SyncAll() failed: %v", err)
		}
	}()

	// Wait for the first run to take the guard
	deadline := time.Now().Add(time.Second)
	for engine.Status() != StatusSyncing {
		if time.Now().After(deadline) {
			t.Fatal("first run never started")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := engine.SyncAll(context.Background())
	if !apperrors.Is(err, apperrors.ErrSyncInProgress) {
		t.Errorf("concurrent SyncAll() error = %v, want SYNC_IN_PROGRESS", err)
	}

	close(service.blockCh)
	<-done

	if len(service.uploadOrder()) != 1 {
		t.Errorf("uploads = %d, want exactly 1", len(service.uploadOrder()))
	}
}

// TestSyncAllContextCancelled verifies a cancelled drain stops early and
// reports what remains.
func TestSyncAllContextCancelled(t *testing.T) {
	queue := &fakeQueue{}
	queue.add("note-a")
	queue.add("note-b")
	service := newFakeService()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(queue, service)
	report, err := engine.SyncAll(ctx)
	if err == nil {
		t.Fatal("SyncAll() should fail on a cancelled context")
	}
	if report.Remaining != 2 {
		t.Errorf("Remaining = %d, want 2", report.Remaining)
	}

	count, _ := queue.CountNotes()
	if count != 2 {
		t.Errorf("local queue holds %d notes, want 2 untouched", count)
	}
}

// TestSyncAllListFailure verifies a queue read error surfaces.
func TestSyncAllListFailure(t *testing.T) {
	queue := &fakeQueue{listErr: errors.New("database locked")}

	engine := NewEngine(queue, newFakeService())
	_, err := engine.SyncAll(context.Background())
	if !apperrors.Is(err, apperrors.ErrDatabase) {
		t.Errorf("error = %v, want DATABASE_ERROR", err)
	}
	if engine.Status() != StatusFailed {
		t.Errorf("Status() = %s, want failed", engine.Status())
	}
}
