// Package telemetry tests for the no-op diagnostic hooks.
package telemetry

import (
	"errors"
	"testing"
)

// TestDisabledByDefault verifies telemetry is off without opt-in.
func TestDisabledByDefault(t *testing.T) {
	if IsEnabled() {
		t.Error("IsEnabled() = true, want false by default")
	}
}

// TestTrackNeverPanics verifies emission hooks are safe from any path.
func TestTrackNeverPanics(t *testing.T) {
	TrackEvent("note_captured", map[string]interface{}{"outcome": "saved"})
	TrackEvent("", nil)
	TrackError("sync_failed", errors.New("boom"))
	TrackError("", nil)
}
