// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/othalahq/othala/internal/api"
	"github.com/othalahq/othala/internal/index"
	"github.com/othalahq/othala/internal/mcpserver"
	"github.com/othalahq/othala/internal/scanner"
	"github.com/othalahq/othala/internal/sse"
	"github.com/othalahq/othala/internal/storage"
	"github.com/othalahq/othala/internal/tagsvc"
	"github.com/othalahq/othala/internal/vocab"
)

// Option is a functional option for configuring the server run.
type Option func(*application)

type application struct {
	config *Config
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// Env bundles the components shared by every command: vault storage, the
// usage index, the vocabulary store and the tag service wired on top.
type Env struct {
	Config   *Config
	Logger   *slog.Logger
	Store    storage.Provider
	DB       *index.DB
	Vocab    *vocab.Store
	Svc      *tagsvc.Service
	ScanOpts scanner.Options
}

// NewEnv wires the core components from cfg. notify may be nil; when set
// it receives every event the tag service emits.
func NewEnv(cfg *Config, logger *slog.Logger, notify func(kind, ref string)) (*Env, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	vc, err := vocab.Load(cfg.SettingsPath())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}

	opts := scanner.Options{ListMarkers: cfg.Scan.ListMarkers}
	svc := tagsvc.NewService(store, vc, db, opts, logger, notify)

	return &Env{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		DB:       db,
		Vocab:    vc,
		Svc:      svc,
		ScanOpts: opts,
	}, nil
}

// Close releases the environment's resources.
func (e *Env) Close() error {
	return e.DB.Close()
}

// SyncIndex reconciles the usage cache with the vault. Failures are
// logged rather than returned: the watcher catches up on anything missed.
func (e *Env) SyncIndex() {
	if err := index.Sync(e.DB, e.Store, e.ScanOpts, e.Logger); err != nil {
		e.Logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
}

// NewLogger builds the structured JSON logger used by every command.
func NewLogger(level slog.Level, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := NewLogger(cfg.App.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("settings_path", cfg.SettingsPath()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker; all service and watcher events flow through it.
	broker := sse.NewBroker(2*time.Second, 25*time.Second)
	defer broker.Close()

	env, err := NewEnv(cfg, logger, broker.PublishChange)
	if err != nil {
		return err
	}
	defer env.Close()

	// Run initial sync.
	env.SyncIndex()

	apiRouter := api.NewRouter(env.Svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Vault.Path)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		if err := index.Watch(gCtx, env.DB, env.Store, cfg.Vault.Path, env.ScanOpts, logger, broker.PublishChange); err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP server on stdio. Logs go to stderr so stdout
// stays clean for the protocol.
func RunMCP(cfg *Config) error {
	logger := NewLogger(cfg.App.LogLevel, os.Stderr)
	slog.SetDefault(logger)

	env, err := NewEnv(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer env.Close()

	env.SyncIndex()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(env.Svc, env.Store).ServeStdio()
}
