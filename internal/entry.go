// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/daybook/internal/api"
	"github.com/starford/daybook/internal/index"
	"github.com/starford/daybook/internal/journal"
	"github.com/starford/daybook/internal/mcpserver"
	"github.com/starford/daybook/internal/sse"
	"github.com/starford/daybook/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// Journal bundles the opened storage, catalog and service for one journal.
type Journal struct {
	Store   *storage.FS
	DB      *index.DB
	Service *journal.Service
	Logger  *slog.Logger
	Config  *Config
}

// Close releases the catalog.
func (j *Journal) Close() error {
	return j.DB.Close()
}

// OpenJournal opens the configured journal: it ensures the directory exists,
// opens the SQLite catalog, brings it up to date, and wires the service.
func OpenJournal(_ context.Context, opts ...Option) (*Journal, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	cfg := app.config

	out := app.logOutput
	if out == nil {
		out = os.Stdout
	}
	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Debug("Configuration loaded",
		slog.String("journal_path", cfg.Journal.Path),
		slog.String("extension", cfg.Journal.Extension),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Journal.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Journal.Path,
		storage.WithExtension(cfg.Journal.Extension),
		storage.WithCompiledDir(cfg.Journal.CompiledDir))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if app.sync {
		if _, err := index.Sync(db, store, logger); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}

	svcOpts := []journal.Option{
		journal.WithLogger(logger),
		journal.WithIndexer(db),
		journal.WithExtension(cfg.Journal.Extension),
		journal.WithCompiledDir(cfg.Journal.CompiledDir),
	}
	if app.clock != nil {
		svcOpts = append(svcOpts, journal.WithClock(app.clock))
	}

	return &Journal{
		Store:   store,
		DB:      db,
		Service: journal.NewService(store, svcOpts...),
		Logger:  logger,
		Config:  cfg,
	}, nil
}

// Sync brings the catalog in line with the journal files.
func Sync(ctx context.Context, opts ...Option) (index.SyncStats, error) {
	j, err := OpenJournal(ctx, append(opts, WithoutSync())...)
	if err != nil {
		return index.SyncStats{}, err
	}
	defer j.Close()
	return index.Sync(j.DB, j.Store, j.Logger)
}

// RunMCP serves the journal tools over MCP stdio until stdin closes.
// Logs go to stderr so they do not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	j, err := OpenJournal(ctx, append(opts, WithLogOutput(os.Stderr))...)
	if err != nil {
		return err
	}
	defer j.Close()

	j.Logger.Info("MCP server starting", slog.String("journal_path", j.Config.Journal.Path))
	return mcpserver.New(j.Service, j.DB).ServeStdio()
}

// Run starts the HTTP server and the file watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	j, err := OpenJournal(ctx, opts...)
	if err != nil {
		return err
	}
	defer j.Close()

	cfg := j.Config
	logger := j.Logger

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.IndexThrottle, sse.WithKeepAlive(cfg.Events.KeepAlive))
	defer broker.Close()

	apiRouter := api.NewRouter(j.Service, j.DB, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := j.DB.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		return index.Watch(gCtx, j.DB, j.Store, j.Store.Root(), logger, func(kind, path string) {
			broker.PublishEntryEvent(kind, path)
		})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Shut down on signal or when another goroutine fails.
	g.Go(func() error {
		<-gCtx.Done()
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
