package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/shalaykin1/forknews/internal/adapter/driven/github"
	"github.com/shalaykin1/forknews/internal/adapter/driven/notify"
	sqliteadapter "github.com/shalaykin1/forknews/internal/adapter/driven/sqlite"
	httphandler "github.com/shalaykin1/forknews/internal/adapter/driving/http"
	"github.com/shalaykin1/forknews/internal/application"
	"github.com/shalaykin1/forknews/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
		"fetch_timeout", cfg.FetchTimeout,
		"max_concurrent", cfg.MaxConcurrent,
		"exact_timers", cfg.ExactTimers,
		"has_token", cfg.HasGitHubToken(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode) and migrate.
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DBPath)

	// 4. Wire driven adapters.
	repoStore := sqliteadapter.NewRepoStore(db)
	source := githubadapter.NewClient(cfg.GitHubToken)

	dispatcher := notify.NewDispatcher(notify.NewLogSender())
	if cfg.WebhookURL != "" {
		dispatcher.Register(notify.NewWebhookSender(cfg.WebhookURL))
		slog.Info("webhook notifications enabled")
	}

	// 5. Seed the default watch list on first launch.
	if cfg.SeedDefaults {
		if err := application.SeedDefaultRepositories(ctx, repoStore); err != nil {
			return err
		}
	}

	// 6. Create application services and start the polling scheduler.
	updates := application.NewUpdateService(source, repoStore)
	pollSvc := application.NewPollService(updates, repoStore, dispatcher, cfg.FetchTimeout, cfg.MaxConcurrent)

	scheduler, err := application.NewScheduler(pollSvc, cfg.PollInterval,
		&application.ExactWakeup{Enabled: cfg.ExactTimers},
		&application.InexactWakeup{Tolerance: cfg.PollInterval / 4},
	)
	if err != nil {
		return err
	}
	go scheduler.Start(ctx)

	// 7. Serve the REST API.
	apiHandler := httphandler.NewHandler(repoStore, updates, scheduler, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("forknews started",
		"listen_addr", cfg.ListenAddr,
		"poll_interval", cfg.PollInterval,
	)

	// 8. Wait for shutdown signal, then drain the HTTP server.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
