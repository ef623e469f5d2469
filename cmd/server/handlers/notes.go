// Package handlers provides REST API handlers for capture, notes, and sync.
package handlers

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/kimhsiao/memovox/backend/internal/capture"
	apperrors "github.com/kimhsiao/memovox/backend/internal/errors"
	"github.com/kimhsiao/memovox/backend/internal/models"
	"github.com/kimhsiao/memovox/backend/internal/remote"
)

// Capturer runs one recording through the write pipeline. Satisfied by
// capture.Pipeline.
type Capturer interface {
	Capture(ctx context.Context, audio []byte) (*capture.Result, error)
}

// LocalStore is the durable local note store. Satisfied by db.Repository.
type LocalStore interface {
	GetNote(id string) (*models.Note, error)
	ListNotes() ([]*models.Note, error)
	DeleteNote(id string) error
}

// ReminderCanceler removes any registered reminder for a note. Satisfied
// by reminder.Scheduler.
type ReminderCanceler interface {
	Cancel(noteID string)
}

// Identity resolves the owner for remote reads. Satisfied by
// identity.Provider.
type Identity interface {
	OwnerID() string
}

// WSCaptureBroadcaster pushes capture events to connected clients.
type WSCaptureBroadcaster interface {
	BroadcastNoteCaptured(noteID, outcome string)
}

// NotesHandler handles note capture, listing, audio retrieval, and deletion.
type NotesHandler struct {
	pipeline  Capturer
	local     LocalStore
	remote    remote.NoteService
	reminders ReminderCanceler
	identity  Identity
	wsHub     WSCaptureBroadcaster // optional, set via SetWebSocketHub
}

// NewNotesHandler creates a new NotesHandler.
func NewNotesHandler(pipeline Capturer, local LocalStore, remoteSvc remote.NoteService, reminders ReminderCanceler, identity Identity) *NotesHandler {
	return &NotesHandler{
		pipeline:  pipeline,
		local:     local,
		remote:    remoteSvc,
		reminders: reminders,
		identity:  identity,
	}
}

// SetWebSocketHub sets the WebSocket hub for broadcasting capture events.
func (h *NotesHandler) SetWebSocketHub(wsHub WSCaptureBroadcaster) {
	h.wsHub = wsHub
}

// captureRequest is the POST /notes body: one finished recording.
type captureRequest struct {
	AudioB64 string `json:"audio"`
}

// captureResponse carries the assembled note plus the degradations the
// client should surface.
type captureResponse struct {
	Note     *models.Note `json:"note"`
	Outcome  string       `json:"outcome"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Create handles POST /notes.
// Runs a completed recording through the write pipeline.
func (h *NotesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if req.AudioB64 == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "audio is required")
		return
	}

	audio, err := base64.StdEncoding.DecodeString(req.AudioB64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "audio is not valid base64")
		return
	}

	result, err := h.pipeline.Capture(r.Context(), audio)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrTranscriptionFailed {
			writeError(w, http.StatusUnprocessableEntity, string(appErr.Code), appErr.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, string(apperrors.ErrDatabase), "failed to save note")
		return
	}

	if h.wsHub != nil {
		h.wsHub.BroadcastNoteCaptured(string(result.Note.ID), string(result.Outcome))
	}

	resp := captureResponse{
		Note:    result.Note,
		Outcome: string(result.Outcome),
	}
	for _, code := range result.Warnings {
		resp.Warnings = append(resp.Warnings, string(code))
	}

	writeJSON(w, http.StatusCreated, resp)
}

// listResponse is the GET /notes body. Degraded is set when the remote
// service could not be reached and only local notes are shown.
type listResponse struct {
	Notes    []*models.Note `json:"notes"`
	Degraded bool           `json:"degraded,omitempty"`
}

// List handles GET /notes.
// Returns the merged view: remote notes plus locally pending ones, newest
// first. A remote failure degrades to the local view instead of erroring.
func (h *NotesHandler) List(w http.ResponseWriter, r *http.Request) {
	resp := listResponse{Notes: []*models.Note{}}

	remoteNotes, err := h.remote.ListByOwner(r.Context(), h.identity.OwnerID())
	if err != nil {
		resp.Degraded = true
	}

	localNotes, err := h.local.ListNotes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, string(apperrors.ErrDatabase), "failed to list notes")
		return
	}

	// A note lives in exactly one store, but a crash mid-promotion can
	// leave a local leftover that already reached the remote. The local
	// copy wins until the next drain cleans it up.
	seen := make(map[string]bool, len(localNotes))
	for _, n := range localNotes {
		seen[string(n.ID)] = true
		n.AudioData = nil // listings never carry payloads
		resp.Notes = append(resp.Notes, n)
	}
	for _, n := range remoteNotes {
		if !seen[string(n.ID)] {
			resp.Notes = append(resp.Notes, n)
		}
	}

	sort.SliceStable(resp.Notes, func(i, j int) bool {
		return resp.Notes[i].CreatedAt > resp.Notes[j].CreatedAt
	})

	writeJSON(w, http.StatusOK, resp)
}

// GetAudio handles GET /notes/{id}/audio.
// Serves the inline payload for pending-local notes; synced notes
// redirect to their durable remote location.
func (h *NotesHandler) GetAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	note, err := h.local.GetNote(id)
	if err == nil && len(note.AudioData) > 0 {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		w.Write(note.AudioData)
		return
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusInternalServerError, string(apperrors.ErrDatabase), "failed to read note")
		return
	}

	// Not held locally: find the remote copy and point at its audio URL
	remoteNotes, err := h.remote.ListByOwner(r.Context(), h.identity.OwnerID())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, string(apperrors.ErrRemoteUnavailable), "remote service unreachable")
		return
	}
	for _, n := range remoteNotes {
		if string(n.ID) == id && n.AudioURL != "" {
			http.Redirect(w, r, n.AudioURL, http.StatusTemporaryRedirect)
			return
		}
	}

	writeError(w, http.StatusNotFound, string(apperrors.ErrNotFound), "note not found")
}

// Delete handles DELETE /notes/{id}.
// Removes the note from whichever store holds it and cancels any pending
// reminder. Deleting an absent note succeeds. Deletion is forward-only:
// an unreachable remote degrades the response to a warning rather than
// failing the operation, since the local copy and the reminder must go
// away regardless.
func (h *NotesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.local.DeleteNote(id); err != nil {
		writeError(w, http.StatusInternalServerError, string(apperrors.ErrDatabase), "failed to delete note")
		return
	}

	// The reminder dies with the note, whatever the remote says below
	h.reminders.Cancel(id)

	resp := map[string]interface{}{
		"status": "success",
	}
	if err := h.remote.Delete(r.Context(), id, h.identity.OwnerID()); err != nil {
		resp["warnings"] = []string{string(apperrors.ErrRemoteUnavailable)}
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}
