// Package capture orchestrates one completed recording through
// transcription, extraction, persistence with fallback, and reminder
// registration.
package capture

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/kimhsiao/memovox/backend/internal/errors"
	"github.com/kimhsiao/memovox/backend/internal/extract"
	"github.com/kimhsiao/memovox/backend/internal/logging"
	"github.com/kimhsiao/memovox/backend/internal/models"
	"github.com/kimhsiao/memovox/backend/internal/remote"
	"github.com/kimhsiao/memovox/backend/internal/telemetry"
	"github.com/kimhsiao/memovox/backend/internal/transcribe"
	"github.com/kimhsiao/memovox/backend/internal/uuid"
)

// Outcome distinguishes the three user-visible results of a capture.
// A failed capture has no Outcome; it is reported through the error return.
type Outcome string

const (
	// OutcomeSaved means the note reached the remote service.
	OutcomeSaved Outcome = "saved"
	// OutcomeSavedOffline means the remote write failed and the note is
	// held in the local store until the next sync.
	OutcomeSavedOffline Outcome = "saved_offline"
)

// Result is the successful output of one capture.
type Result struct {
	Note    *models.Note
	Outcome Outcome
	// Warnings carries non-fatal degradations as error codes
	// (EXTRACTION_FAILED, PERSISTENCE_DEGRADED, REMINDER_SCHEDULING_FAILED).
	Warnings []apperrors.ErrorCode
}

// LocalStore is the durable fallback consumed by the pipeline.
// Satisfied by db.Repository.
type LocalStore interface {
	PutNote(note *models.Note) error
}

// ReminderScheduler registers one-shot reminders. Satisfied by
// reminder.Scheduler.
type ReminderScheduler interface {
	Schedule(noteID, label string, fireAt time.Time) error
}

// IdentityProvider resolves the capturing owner. Satisfied by
// identity.Provider.
type IdentityProvider interface {
	OwnerID() string
}

// Pipeline wires the capture collaborators together.
type Pipeline struct {
	transcriber transcribe.Transcriber
	extractor   extract.Extractor
	remote      remote.NoteService
	local       LocalStore
	reminders   ReminderScheduler
	identity    IdentityProvider
}

// NewPipeline creates a capture Pipeline.
func NewPipeline(
	transcriber transcribe.Transcriber,
	extractor extract.Extractor,
	remoteSvc remote.NoteService,
	local LocalStore,
	reminders ReminderScheduler,
	identity IdentityProvider,
) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		extractor:   extractor,
		remote:      remoteSvc,
		local:       local,
		reminders:   reminders,
		identity:    identity,
	}
}

// Capture runs one completed recording through the pipeline.
//
// Steps execute strictly in order; each may fail independently. The only
// failure surfaced as an error is transcription (no note is produced and
// nothing persists anywhere). Every other collaborator failure is absorbed
// into a degraded result: extraction failure falls back to a locally
// computed title, remote persistence failure falls back to the local
// store, and reminder scheduling failure is reported as a warning.
func (p *Pipeline) Capture(ctx context.Context, audio []byte) (*Result, error) {
	// Step 1: client-side identity, before any I/O
	id := uuid.New()

	// Step 2: owner resolution never blocks the pipeline; the provider
	// degrades to an anonymous id internally
	ownerID := p.identity.OwnerID()

	// Step 3: transcription is the single fatal step
	transcript, err := p.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTranscriptionFailed, "transcription failed", err)
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, apperrors.New(apperrors.ErrTranscriptionFailed, "transcription produced no usable text")
	}

	result := &Result{}

	// Step 4: extraction degrades to the default title, never aborts
	title, reminderAt := p.extractInfo(ctx, transcript, result)

	note := &models.Note{
		ID:         models.UUID(id),
		OwnerID:    ownerID,
		Title:      title,
		Transcript: transcript,
		AudioData:  audio,
		CreatedAt:  time.Now().Unix(),
		Storage:    models.StoragePendingLocal,
	}
	if reminderAt != nil {
		ts := reminderAt.Unix()
		note.ReminderAt = &ts
	}

	// Step 5: remote-first persistence with local fallback; exactly one
	// store ends up holding the record
	if err := p.persist(ctx, note, result); err != nil {
		return nil, err
	}

	// Step 6: reminder registration is unconditional on reminder presence,
	// regardless of which store holds the note body
	if note.HasReminder() {
		if err := p.reminders.Schedule(id, note.Title, note.ReminderTime()); err != nil {
			logging.Warn("Reminder scheduling failed",
				map[string]interface{}{"note_id": id, "error": err.Error()})
			result.Warnings = append(result.Warnings, apperrors.ErrReminderFailed)
		}
	}

	telemetry.TrackEvent("note_captured", map[string]interface{}{
		"outcome": string(result.Outcome),
	})

	// Step 7: hand the assembled note back for display
	result.Note = note
	return result, nil
}

// extractInfo calls the extraction collaborator, falling back to the local
// default title and no reminder on any failure. This is a required
// degraded mode, not an error path.
func (p *Pipeline) extractInfo(ctx context.Context, transcript string, result *Result) (string, *time.Time) {
	extracted, err := p.extractor.Extract(ctx, transcript)
	if err != nil {
		logging.Warn("Extraction failed, using default title",
			map[string]interface{}{"error": err.Error()})
		result.Warnings = append(result.Warnings, apperrors.ErrExtractionFailed)
		return extract.DefaultTitle(transcript), nil
	}
	return extracted.Title, extracted.ReminderAt
}

// persist attempts the remote write, falling back to exactly one local
// write. Only a failure of both stores surfaces as an error.
func (p *Pipeline) persist(ctx context.Context, note *models.Note, result *Result) error {
	audioURL, err := p.remote.Upsert(ctx, note)
	if err == nil {
		note.Promote(audioURL)
		result.Outcome = OutcomeSaved
		return nil
	}

	logging.Warn("Remote persist failed, falling back to local store",
		map[string]interface{}{"note_id": string(note.ID), "error": err.Error()})

	if err := p.local.PutNote(note); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "local fallback write failed", err)
	}

	result.Outcome = OutcomeSavedOffline
	result.Warnings = append(result.Warnings, apperrors.ErrPersistenceDegraded)
	return nil
}
