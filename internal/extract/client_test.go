// Package extract tests for extraction and the default title fallback.
package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestExtract verifies a successful extraction round-trip.
func TestExtract(t *testing.T) {
	reminderAt := time.Now().Add(time.Hour).Unix()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req extractRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Transcript != "call mom tomorrow at nine" {
			t.Errorf("transcript = %q", req.Transcript)
		}
		json.NewEncoder(w).Encode(extractResponse{Title: "Call mom", ReminderAt: &reminderAt})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	result, err := client.Extract(context.Background(), "call mom tomorrow at nine")
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	if result.Title != "Call mom" {
		t.Errorf("Title = %q, want %q", result.Title, "Call mom")
	}
	if result.ReminderAt == nil || result.ReminderAt.Unix() != reminderAt {
		t.Errorf("ReminderAt = %v, want %d", result.ReminderAt, reminderAt)
	}
}

// TestExtractMissingTitle verifies the service response falls back to the
// local default title when no title comes back.
func TestExtractMissingTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(extractResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	result, err := client.Extract(context.Background(), "pick up the dry cleaning")
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if result.Title != "pick up the dry cleaning" {
		t.Errorf("Title = %q, want default title", result.Title)
	}
	if result.ReminderAt != nil {
		t.Error("ReminderAt should be nil")
	}
}

// TestExtractFailure verifies service errors surface for the caller's
// degraded path.
func TestExtractFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	if _, err := client.Extract(context.Background(), "anything"); err == nil {
		t.Error("Extract() should fail on 503")
	}
}

// TestDefaultTitle verifies the eight-word truncation rule.
func TestDefaultTitle(t *testing.T) {
	cases := []struct {
		name       string
		transcript string
		want       string
	}{
		{
			"longer than eight words",
			"one two three four five six seven eight nine ten",
			"one two three four five six seven eight...",
		},
		{
			"exactly eight words",
			"one two three four five six seven eight",
			"one two three four five six seven eight",
		},
		{
			"shorter than eight words",
			"just a short note",
			"just a short note",
		},
		{
			"single word",
			"groceries",
			"groceries",
		},
		{
			"empty transcript",
			"",
			"Untitled Note",
		},
		{
			"whitespace only",
			"   ",
			"Untitled Note",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DefaultTitle(tc.transcript); got != tc.want {
				t.Errorf("DefaultTitle(%q) = %q, want %q", tc.transcript, got, tc.want)
			}
		})
	}
}
