// Package telemetry provides no-op diagnostic emission hooks.
// Nothing is transmitted anywhere without explicit opt-in; a real
// implementation can be swapped in via configuration. Callers may invoke
// these from any path — they never fail and never panic.
package telemetry

// IsEnabled returns false always (telemetry disabled by default).
func IsEnabled() bool {
	return false
}

// TrackEvent records a diagnostic event (no-op).
func TrackEvent(name string, properties map[string]interface{}) {
}

// TrackError records an error occurrence (no-op).
func TrackError(name string, err error) {
}
