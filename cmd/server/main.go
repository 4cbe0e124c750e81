// Command server runs the Scripture Sync core: the Chapter Store, the
// Save Pipeline, and the Sync Protocol dispatcher behind a gin HTTP
// surface, plus the background maintenance timer of spec.md §5.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hhc/scripture-sync/internal/chapters"
	"hhc/scripture-sync/internal/config"
	"hhc/scripture-sync/internal/logger"
	"hhc/scripture-sync/internal/mail"
	"hhc/scripture-sync/internal/maintenance"
	"hhc/scripture-sync/internal/save"
	"hhc/scripture-sync/internal/server"
	"hhc/scripture-sync/internal/session"
	"hhc/scripture-sync/internal/store/sqlstore"
	"hhc/scripture-sync/internal/syncproto"
	"hhc/scripture-sync/internal/usfm"
)

// @title        Scripture Sync API
// @version      1.0
// @description  Client/server synchronization and three-way merge for collaborative USFM scripture editing.
// @license.name MIT
// @BasePath     /
func main() {
	logger.Init()
	appLogger := logger.GetAppLogger()
	appLogger.Info("Starting Scripture Sync Service...")

	cfg, err := config.Load()
	if err != nil {
		appLogger.Fatalf("Failed to load config: %v", err)
	}

	chapterStore, err := chapters.New(cfg.BiblesRoot)
	if err != nil {
		appLogger.Fatalf("Failed to open chapter store: %v", err)
	}

	db, err := sqlstore.Open(cfg.SqliteDB, nil)
	if err != nil {
		appLogger.Fatalf("Failed to open embedded store: %v", err)
	}
	defer db.Close()

	signer := session.NewTokenSigner(cfg.JWTSecret)
	sessions := session.New(db, signer, cfg.SessionLifetime, cfg.LoginCooldown, cfg.OpenInstallation, cfg.ClientPrepared)

	notifier := mail.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	thresholds := usfm.Thresholds{MaxLineCountDelta: cfg.MaxLineCountDelta, MaxLengthDelta: cfg.MaxLengthDelta}

	pipeline := save.New(chapterStore, db, save.IdentityConverter{}, notifier, thresholds)
	dispatcher := syncproto.New(chapterStore, db, notifier, thresholds)

	api := server.New(db, sessions, pipeline, dispatcher, cfg.SessionCookieName, cfg.RequireSecureTransport)
	router := api.RegisterRoutes()

	timer := startMaintenance(cfg, chapterStore, db, notifier)
	defer timer.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		appLogger.Infof("Server starting on port %s", cfg.ServerPort)
		appLogger.Infof("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}
	appLogger.Info("Server exiting")
}

// startMaintenance wires the named background tasks onto a one-second
// timer: optimize (revision retention), notify (nightly digests), an
// hourly sweep of expired sessions and, when the filesystem watcher over
// the Chapter Store root starts, an export-flag sweep driven by it.
func startMaintenance(cfg *config.Config, chapterStore *chapters.Store, db *sqlstore.Store, notifier mail.Notifier) *maintenance.Timer {
	appLogger := logger.GetAppLogger()

	tasks := []*maintenance.Task{
		maintenance.OptimizeTask(chapterStore, cfg.RetentionCount, time.Hour),
		maintenance.NotifyTask(db, notifier, 24*time.Hour),
		maintenance.SessionSweepTask(db, time.Hour),
	}

	if watcher, err := chapters.WatchRoot(cfg.BiblesRoot); err != nil {
		appLogger.Warnf("maintenance: reindex watcher unavailable: %v", err)
	} else {
		tasks = append(tasks, maintenance.ExportFlagSweepTask(watcher))
	}

	timer := maintenance.NewTimer(tasks...)
	timer.Start()
	return timer
}
