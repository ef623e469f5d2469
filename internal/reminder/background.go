package reminder

import (
	"sync"
	"time"

	"github.com/kimhsiao/memovox/backend/internal/logging"
	"github.com/kimhsiao/memovox/backend/internal/models"
	"github.com/kimhsiao/memovox/backend/internal/notify"
)

// ScheduleStore is the durable table backing the background runner.
// Satisfied by db.Repository.
type ScheduleStore interface {
	SaveReminder(rem *models.Reminder) error
	DeleteReminder(noteID string) error
	ListReminders() ([]*models.Reminder, error)
}

// BackgroundRunner persists every entry and re-arms it on process start, so
// reminders survive restarts. While the process runs it is a second live
// consumer of the schedule alongside the foreground runner.
type BackgroundRunner struct {
	store    ScheduleStore
	notifier notify.Notifier

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewBackgroundRunner creates a BackgroundRunner over the given store.
func NewBackgroundRunner(store ScheduleStore, notifier notify.Notifier) *BackgroundRunner {
	return &BackgroundRunner{
		store:    store,
		notifier: notifier,
		timers:   make(map[string]*time.Timer),
	}
}

// Name implements Runner.
func (r *BackgroundRunner) Name() string {
	return "background"
}

// Register implements Runner. The entry is persisted first; a persistence
// failure rejects the registration so the caller can surface the warning.
func (r *BackgroundRunner) Register(noteID, label string, fireAt time.Time) error {
	rem := &models.Reminder{
		NoteID: models.UUID(noteID),
		Label:  label,
		FireAt: fireAt.Unix(),
	}
	if err := r.store.SaveReminder(rem); err != nil {
		return err
	}

	r.arm(noteID, label, fireAt)
	return nil
}

// Cancel implements Runner.
func (r *BackgroundRunner) Cancel(noteID string) error {
	r.mu.Lock()
	if timer, ok := r.timers[noteID]; ok {
		timer.Stop()
		delete(r.timers, noteID)
	}
	r.mu.Unlock()

	return r.store.DeleteReminder(noteID)
}

// Restore re-arms persisted entries after a process restart. Entries whose
// firing time passed while the process was down are discarded without
// firing, matching the no-past-firing rule for fresh registrations.
func (r *BackgroundRunner) Restore() error {
	reminders, err := r.store.ListReminders()
	if err != nil {
		return err
	}

	now := time.Now()
	restored, dropped := 0, 0

	for _, rem := range reminders {
		if rem.Due(now) {
			if err := r.store.DeleteReminder(string(rem.NoteID)); err != nil {
				logging.Warn("Failed to discard overdue reminder",
					map[string]interface{}{"note_id": string(rem.NoteID), "error": err.Error()})
			}
			dropped++
			continue
		}
		r.arm(string(rem.NoteID), rem.Label, rem.FireTime())
		restored++
	}

	logging.Info("Reminder schedule restored",
		map[string]interface{}{"restored": restored, "dropped_overdue": dropped})
	return nil
}

// Pending returns the number of armed entries.
func (r *BackgroundRunner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Stop disarms every pending timer without touching persisted entries,
// which remain for the next Restore.
func (r *BackgroundRunner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, timer := range r.timers {
		timer.Stop()
		delete(r.timers, id)
	}
}

// arm replaces any pending timer for the id.
func (r *BackgroundRunner) arm(noteID, label string, fireAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.timers[noteID]; ok {
		existing.Stop()
	}

	r.timers[noteID] = time.AfterFunc(time.Until(fireAt), func() {
		r.fire(noteID, label)
	})
}

// fire shows the notification, then removes both the timer and the
// persisted entry (one-shot).
func (r *BackgroundRunner) fire(noteID, label string) {
	r.mu.Lock()
	delete(r.timers, noteID)
	r.mu.Unlock()

	r.notifier.Show(notificationTitle, label)

	if err := r.store.DeleteReminder(noteID); err != nil {
		logging.Warn("Failed to clear fired reminder",
			map[string]interface{}{"note_id": noteID, "error": err.Error()})
	}
}
