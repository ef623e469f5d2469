// Package notify defines the user-visible notification sink.
package notify

import "github.com/kimhsiao/memovox/backend/internal/logging"

// Notifier shows a user-visible notification. Fire-and-forget: it never
// returns an error and must never panic, since reminder delivery is
// best-effort by design.
type Notifier interface {
	Show(title, body string)
}

// Disabled is the permission-absent sink: showing is a silent no-op.
type Disabled struct{}

// Show implements Notifier.
func (Disabled) Show(title, body string) {}

// LogNotifier writes notifications to the structured log. Used when no
// client is connected to receive them.
type LogNotifier struct{}

// Show implements Notifier.
func (LogNotifier) Show(title, body string) {
	logging.Info("Notification", map[string]interface{}{
		"title": title,
		"body":  body,
	})
}

// Multi fans a notification out to several sinks.
type Multi []Notifier

// Show implements Notifier.
func (m Multi) Show(title, body string) {
	for _, n := range m {
		n.Show(title, body)
	}
}
