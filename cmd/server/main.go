package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lessonforge/lessonforge/internal/catalog"
	"github.com/lessonforge/lessonforge/internal/events"
	"github.com/lessonforge/lessonforge/internal/genapi"
	"github.com/lessonforge/lessonforge/internal/generator"
	"github.com/lessonforge/lessonforge/internal/notify"
	"github.com/lessonforge/lessonforge/internal/platform/cache"
	"github.com/lessonforge/lessonforge/internal/platform/config"
	"github.com/lessonforge/lessonforge/internal/platform/database"
	"github.com/lessonforge/lessonforge/internal/session"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		slog.Error("failed to load catalog", "error", err, "path", cfg.CatalogPath)
		os.Exit(1)
	}

	srvDeps, cleanup, err := buildDeps(ctx, cfg, cat)
	if err != nil {
		slog.Error("failed to build dependencies", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	mux := newMux(srvDeps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// buildDeps wires the session store, event logger, API clients and manager
// from configuration. The returned cleanup closes whatever was opened.
func buildDeps(ctx context.Context, cfg *config.Config, cat *catalog.Catalog) (*server, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var health []healthCheck

	var stores session.Factory = session.NewMemoryFactory()
	if cfg.Session.Backend == "redis" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connecting session cache: %w", err)
		}
		closers = append(closers, func() { c.Close() })
		stores = session.NewRedisFactory(c.Client, cfg.Session.TTL)
		health = append(health, healthCheck{name: "redis", check: c.HealthCheck})
		slog.Info("session store backend", "backend", "redis")
	} else {
		slog.Info("session store backend", "backend", "memory")
	}

	memEvents := events.NewMemoryLogger()
	var eventLog events.Logger = memEvents
	listEvents := func(context.Context) ([]events.Event, error) {
		return memEvents.Events(), nil
	}
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, database.Config{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("connecting database: %w", err)
		}
		closers = append(closers, db.Close)
		health = append(health, healthCheck{name: "postgres", check: db.HealthCheck})

		pg := events.NewPostgresLogger(db.Pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, cleanup, err
		}
		eventLog = pg
		listEvents = func(ctx context.Context) ([]events.Event, error) {
			return pg.Recent(ctx, 0)
		}
		slog.Info("event log backend", "backend", "postgres")
	}

	clientOpts := []genapi.Option{genapi.WithAPIKey(cfg.API.Key)}
	if !cfg.API.ValidateSchema {
		clientOpts = append(clientOpts, genapi.WithoutSchemaValidation())
	}
	api := genapi.NewClient(cfg.API.BaseURL, clientOpts...)

	manager := generator.NewManager(generator.ManagerConfig{
		API:           api,
		Stores:        stores,
		Events:        eventLog,
		SubmissionTTL: cfg.Generation.SubmissionTTL,
		DebounceQuiet: cfg.Generation.DebounceQuiet,
		BaseContext:   ctx,
	})

	return &server{
		catalog:    cat,
		manager:    manager,
		quiz:       api,
		bus:        notify.NewBus(),
		events:     eventLog,
		listEvents: listEvents,
		health:     health,
	}, cleanup, nil
}
