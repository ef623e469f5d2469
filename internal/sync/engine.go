// Package sync drains locally held notes to the remote note service.
package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	apperrors "github.com/kimhsiao/memovox/backend/internal/errors"
	"github.com/kimhsiao/memovox/backend/internal/logging"
	"github.com/kimhsiao/memovox/backend/internal/models"
	"github.com/kimhsiao/memovox/backend/internal/remote"
	"github.com/kimhsiao/memovox/backend/internal/telemetry"
)

// Status represents the current sync status.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusFailed  Status = "failed"
)

// LocalQueue is the durable store the engine drains. Satisfied by
// db.Repository.
type LocalQueue interface {
	ListPendingSync() ([]*models.Note, error)
	DeleteNote(id string) error
	CountNotes() (int, error)
}

// Engine uploads locally held notes to the remote note service, oldest
// first, and removes each local copy once the remote write succeeds.
// A note that fails to upload stays in the local store untouched and is
// retried on the next run.
type Engine struct {
	local  LocalQueue
	remote remote.NoteService

	mu       gosync.Mutex
	inFlight bool
	status   Status
	lastSync *time.Time
	lastErr  error
}

// NewEngine creates a sync Engine.
func NewEngine(local LocalQueue, remoteSvc remote.NoteService) *Engine {
	return &Engine{
		local:  local,
		remote: remoteSvc,
		status: StatusIdle,
	}
}

// Status returns the current sync status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// LastSync returns the timestamp of the last fully successful sync.
func (e *Engine) LastSync() *time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// LastError returns the error recorded by the most recent run, or nil.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// PendingChanges returns the number of notes waiting to be uploaded.
func (e *Engine) PendingChanges() (int, error) {
	return e.local.CountNotes()
}

// Report summarizes one sync run.
type Report struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Synced    int           `json:"synced"`
	Failed    int           `json:"failed"`
	Remaining int           `json:"remaining"`
}

// SyncAll uploads every pending note sequentially, oldest first.
//
// At most one run executes at a time; a call arriving while a run is in
// flight returns ErrSyncInProgress without touching the queue. Individual
// upload failures do not stop the run: the note is left in place for the
// next attempt and the drain continues with the next one.
func (e *Engine) SyncAll(ctx context.Context) (*Report, error) {
	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return nil, apperrors.New(apperrors.ErrSyncInProgress, "sync already in progress")
	}
	e.inFlight = true
	e.status = StatusSyncing
	e.lastErr = nil
	e.mu.Unlock()

	report := &Report{StartTime: time.Now()}

	defer func() {
		report.EndTime = time.Now()
		report.Duration = report.EndTime.Sub(report.StartTime)

		e.mu.Lock()
		e.inFlight = false
		if e.lastErr != nil {
			e.status = StatusFailed
		} else {
			e.status = StatusIdle
			e.lastSync = &report.EndTime
		}
		e.mu.Unlock()
	}()

	pending, err := e.local.ListPendingSync()
	if err != nil {
		wrapped := apperrors.Wrap(apperrors.ErrDatabase, "failed to list pending notes", err)
		e.mu.Lock()
		e.lastErr = wrapped
		e.mu.Unlock()
		return report, wrapped
	}

	if len(pending) == 0 {
		return report, nil
	}

	logging.Info("Sync started", map[string]interface{}{"pending": len(pending)})

	for _, note := range pending {
		select {
		case <-ctx.Done():
			report.Remaining = len(pending) - report.Synced - report.Failed
			e.mu.Lock()
			e.lastErr = ctx.Err()
			e.mu.Unlock()
			return report, ctx.Err()
		default:
		}

		if err := e.uploadOne(ctx, note); err != nil {
			logging.Warn("Upload failed, note kept for retry",
				map[string]interface{}{"note_id": string(note.ID), "error": err.Error()})
			report.Failed++
			continue
		}
		report.Synced++
	}

	report.Remaining = report.Failed

	if report.Failed > 0 {
		syncErr := apperrors.New(apperrors.ErrSyncFailed,
			fmt.Sprintf("%d of %d notes failed to upload", report.Failed, len(pending)))
		e.mu.Lock()
		e.lastErr = syncErr
		e.mu.Unlock()
		telemetry.TrackError("sync_partial", syncErr)
	}

	logging.Info("Sync completed", map[string]interface{}{
		"synced":    report.Synced,
		"failed":    report.Failed,
		"remaining": report.Remaining,
	})

	return report, nil
}

// uploadOne moves a single note from the local store to the remote
// service. The local copy is removed only after the remote write
// succeeds, so a crash between the two steps leaves a duplicate upload
// on the next run rather than a lost note; the remote upsert is keyed by
// the note id and absorbs the replay.
func (e *Engine) uploadOne(ctx context.Context, note *models.Note) error {
	audioURL, err := e.remote.Upsert(ctx, note)
	if err != nil {
		return err
	}
	note.Promote(audioURL)

	if err := e.local.DeleteNote(string(note.ID)); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to remove synced note", err)
	}
	return nil
}
