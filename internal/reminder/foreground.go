package reminder

import (
	"sync"
	"time"

	"github.com/kimhsiao/memovox/backend/internal/notify"
)

// notificationTitle heads every reminder notification; the note's label
// travels in the body.
const notificationTitle = "Memovox Reminder"

// ForegroundRunner arms in-memory timers for the lifetime of the process.
// Entries are lost on shutdown; the background runner covers restarts.
type ForegroundRunner struct {
	notifier notify.Notifier

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewForegroundRunner creates a ForegroundRunner firing into the given sink.
func NewForegroundRunner(notifier notify.Notifier) *ForegroundRunner {
	return &ForegroundRunner{
		notifier: notifier,
		timers:   make(map[string]*time.Timer),
	}
}

// Name implements Runner.
func (r *ForegroundRunner) Name() string {
	return "foreground"
}

// Register implements Runner. An existing timer for the same id is stopped
// before the replacement is armed, so at most one entry per id is pending.
func (r *ForegroundRunner) Register(noteID, label string, fireAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.timers[noteID]; ok {
		existing.Stop()
	}

	r.timers[noteID] = time.AfterFunc(time.Until(fireAt), func() {
		r.fire(noteID, label)
	})
	return nil
}

// Cancel implements Runner.
func (r *ForegroundRunner) Cancel(noteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if timer, ok := r.timers[noteID]; ok {
		timer.Stop()
		delete(r.timers, noteID)
	}
	return nil
}

// Pending returns the number of armed entries.
func (r *ForegroundRunner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Stop disarms every pending timer. Fired notifications are not recalled.
func (r *ForegroundRunner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, timer := range r.timers {
		timer.Stop()
		delete(r.timers, id)
	}
}

// fire shows the notification and discards the entry (one-shot).
func (r *ForegroundRunner) fire(noteID, label string) {
	r.mu.Lock()
	delete(r.timers, noteID)
	r.mu.Unlock()

	r.notifier.Show(notificationTitle, label)
}
