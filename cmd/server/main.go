// Package main runs the Memovox backend: the capture API, the local
// queue drain, and the reminder runners behind one localhost port.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kimhsiao/memovox/backend/cmd/server/handlers"
	"github.com/kimhsiao/memovox/backend/internal/capture"
	"github.com/kimhsiao/memovox/backend/internal/config"
	"github.com/kimhsiao/memovox/backend/internal/db"
	"github.com/kimhsiao/memovox/backend/internal/extract"
	"github.com/kimhsiao/memovox/backend/internal/identity"
	"github.com/kimhsiao/memovox/backend/internal/logging"
	"github.com/kimhsiao/memovox/backend/internal/notify"
	"github.com/kimhsiao/memovox/backend/internal/reminder"
	"github.com/kimhsiao/memovox/backend/internal/remote"
	syncpkg "github.com/kimhsiao/memovox/backend/internal/sync"
	"github.com/kimhsiao/memovox/backend/internal/transcribe"
)

func main() {
	logging.Init(os.Stdout, logging.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Failed to load configuration", err, nil)
		os.Exit(1)
	}

	database, err := db.Open(cfg.DataDir)
	if err != nil {
		logging.Error("Failed to open database", err,
			map[string]interface{}{"data_dir": cfg.DataDir})
		os.Exit(1)
	}
	defer database.Close()

	repo := db.NewRepository(database.DB)
	defer repo.Close()

	// Collaborator clients
	remoteSvc := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteAPIKey)
	transcriber := transcribe.NewClient(cfg.TranscribeBaseURL, cfg.TranscribeAPIKey,
		cfg.TranscribePollInterval, cfg.TranscribeMaxWait)
	extractor := extract.NewClient(cfg.ExtractBaseURL, cfg.ExtractTimeout)
	owner := identity.NewProvider(cfg.DataDir)

	// Notification fan-out: the structured log plus any connected clients
	hub := NewWSHub()
	sink := notify.Multi{notify.LogNotifier{}, hub}

	// Reminder runners: in-process timers plus the persisted set that
	// survives restarts
	foreground := reminder.NewForegroundRunner(sink)
	defer foreground.Stop()
	background := reminder.NewBackgroundRunner(repo, sink)
	defer background.Stop()
	if err := background.Restore(); err != nil {
		logging.Warn("Failed to restore persisted reminders",
			map[string]interface{}{"error": err.Error()})
	}
	scheduler := reminder.NewScheduler(foreground, background)

	pipeline := capture.NewPipeline(transcriber, extractor, remoteSvc, repo, scheduler, owner)

	engine := syncpkg.NewEngine(repo, remoteSvc)
	monitor := syncpkg.NewMonitor(engine, remoteSvc, cfg.MonitorInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor.Start(ctx)
	defer monitor.Stop()

	// Drain anything left behind by the previous run
	go func() {
		startupCtx, cancelStartup := context.WithTimeout(ctx, 5*time.Minute)
		defer cancelStartup()
		if _, err := engine.SyncAll(startupCtx); err != nil {
			logging.Warn("Startup sync did not complete",
				map[string]interface{}{"error": err.Error()})
		}
	}()

	router := newRouter(pipeline, repo, remoteSvc, scheduler, owner, engine, monitor, hub)

	server := &http.Server{
		Addr:              "localhost:" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Memovox backend listening",
			map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Server failed", err, nil)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logging.Info("Shutting down", nil)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Shutdown did not finish cleanly",
			map[string]interface{}{"error": err.Error()})
	}
}

// newRouter wires the REST and WebSocket surface.
func newRouter(
	pipeline *capture.Pipeline,
	repo *db.Repository,
	remoteSvc remote.NoteService,
	scheduler *reminder.Scheduler,
	owner *identity.Provider,
	engine *syncpkg.Engine,
	monitor *syncpkg.Monitor,
	hub *WSHub,
) http.Handler {
	notesHandler := handlers.NewNotesHandler(pipeline, repo, remoteSvc, scheduler, owner)
	notesHandler.SetWebSocketHub(hub)

	syncHandler := handlers.NewSyncHandler(engine, monitor)
	syncHandler.SetWebSocketHub(hub)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		r.Route("/notes", func(r chi.Router) {
			r.Post("/", notesHandler.Create)
			r.Get("/", notesHandler.List)
			r.Get("/{id}/audio", notesHandler.GetAudio)
			r.Delete("/{id}", notesHandler.Delete)
		})

		r.Post("/sync", syncHandler.Trigger)
		r.Get("/sync/status", syncHandler.GetStatus)
	})

	r.Get("/ws", HandleWebSocket(hub))

	return r
}
