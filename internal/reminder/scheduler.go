// Package reminder provides one-shot reminder scheduling coalesced across
// two execution contexts: a foreground runner tied to process lifetime and
// a background runner whose entries survive restarts.
//
// Every schedule and cancel call fans out to both runners so whichever one
// is alive at firing time shows the notification. When both are alive the
// notification can fire twice; reminders are advisory and the double fire
// is an accepted tradeoff against a heartbeat/lease protocol.
package reminder

import (
	"time"

	"github.com/kimhsiao/memovox/backend/internal/logging"
)

// Runner is one execution context that arms timers and fires notifications.
type Runner interface {
	// Name identifies the runner in logs.
	Name() string

	// Register arms a one-shot entry, replacing any pending entry for the
	// same note id.
	Register(noteID, label string, fireAt time.Time) error

	// Cancel discards the pending entry for a note id, if any.
	Cancel(noteID string) error
}

// Scheduler is the single register/cancel API in front of all runners.
type Scheduler struct {
	runners []Runner
}

// NewScheduler creates a Scheduler fanning out to the given runners.
func NewScheduler(runners ...Runner) *Scheduler {
	return &Scheduler{runners: runners}
}

// Schedule registers a one-shot notification for a note.
//
// A firing time that is not in the future is a no-op: it must not fire
// immediately and must not be armed with a negative delay. Re-registering
// an id supersedes the prior pending entry in every runner (last write
// wins). If a runner rejects the registration the others keep theirs and
// the first error is returned for the caller to treat as a warning.
func (s *Scheduler) Schedule(noteID, label string, fireAt time.Time) error {
	if !fireAt.After(time.Now()) {
		logging.Debug("Reminder firing time not in the future, ignoring",
			map[string]interface{}{"note_id": noteID, "fire_at": fireAt.Unix()})
		return nil
	}

	var firstErr error
	for _, r := range s.runners {
		if err := r.Register(noteID, label, fireAt); err != nil {
			logging.Warn("Reminder registration failed in runner",
				map[string]interface{}{"runner": r.Name(), "note_id": noteID, "error": err.Error()})
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Cancel discards any pending entry for a note id in every runner.
// Cancelling an unregistered id is a no-op.
func (s *Scheduler) Cancel(noteID string) {
	for _, r := range s.runners {
		if err := r.Cancel(noteID); err != nil {
			logging.Warn("Reminder cancel failed in runner",
				map[string]interface{}{"runner": r.Name(), "note_id": noteID, "error": err.Error()})
		}
	}
}
