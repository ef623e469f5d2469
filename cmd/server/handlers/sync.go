package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/kimhsiao/memovox/backend/internal/errors"
	syncpkg "github.com/kimhsiao/memovox/backend/internal/sync"
)

// Syncer drains the local queue. Satisfied by sync.Engine.
type Syncer interface {
	SyncAll(ctx context.Context) (*syncpkg.Report, error)
	Status() syncpkg.Status
	LastSync() *time.Time
	LastError() error
	PendingChanges() (int, error)
}

// Connectivity reports tracked remote reachability. Satisfied by
// sync.Monitor.
type Connectivity interface {
	IsOnline() bool
}

// WSSyncBroadcaster pushes sync lifecycle events to connected clients.
type WSSyncBroadcaster interface {
	BroadcastSyncStarted()
	BroadcastSyncCompleted(synced, failed, remaining int, duration time.Duration)
	BroadcastSyncFailed(errorCode string)
}

// SyncHandler handles sync trigger and status endpoints.
type SyncHandler struct {
	engine  Syncer
	monitor Connectivity
	wsHub   WSSyncBroadcaster // optional, set via SetWebSocketHub
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(engine Syncer, monitor Connectivity) *SyncHandler {
	return &SyncHandler{
		engine:  engine,
		monitor: monitor,
	}
}

// SetWebSocketHub sets the WebSocket hub for broadcasting sync events.
func (h *SyncHandler) SetWebSocketHub(wsHub WSSyncBroadcaster) {
	h.wsHub = wsHub
}

// Trigger handles POST /sync.
// Runs one drain to completion. A drain already in flight answers 409
// without starting another.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.wsHub != nil {
		h.wsHub.BroadcastSyncStarted()
	}

	report, err := h.engine.SyncAll(r.Context())
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrSyncInProgress {
			writeError(w, http.StatusConflict, string(appErr.Code), appErr.Message)
			return
		}
		if h.wsHub != nil {
			h.wsHub.BroadcastSyncFailed(string(apperrors.ErrSyncFailed))
		}
		writeError(w, http.StatusInternalServerError, string(apperrors.ErrSyncFailed), err.Error())
		return
	}

	if h.wsHub != nil {
		h.wsHub.BroadcastSyncCompleted(report.Synced, report.Failed, report.Remaining, report.Duration)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"synced":      report.Synced,
		"failed":      report.Failed,
		"remaining":   report.Remaining,
		"duration_ms": report.Duration.Milliseconds(),
	})
}

// GetStatus handles GET /sync/status.
// Returns the engine state, queue depth, and tracked connectivity.
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": h.engine.Status(),
		"online": h.monitor.IsOnline(),
	}

	if lastSync := h.engine.LastSync(); lastSync != nil {
		response["last_sync"] = lastSync.Unix()
	}
	if lastErr := h.engine.LastError(); lastErr != nil {
		response["last_error"] = lastErr.Error()
	}

	pending, err := h.engine.PendingChanges()
	if err != nil {
		writeError(w, http.StatusInternalServerError, string(apperrors.ErrDatabase), "failed to count pending notes")
		return
	}
	response["pending_changes"] = pending

	writeJSON(w, http.StatusOK, response)
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "memovox-backend",
	})
}
