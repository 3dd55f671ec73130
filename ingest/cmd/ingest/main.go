package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quieteye/quieteye-stack/common/database"
	"github.com/quieteye/quieteye-stack/common/logging"
	"github.com/quieteye/quieteye-stack/common/messaging"
	"github.com/quieteye/quieteye-stack/ingest/internal/config"
	"github.com/quieteye/quieteye-stack/ingest/internal/handlers"
	"github.com/quieteye/quieteye-stack/ingest/internal/ratelimit"
	"github.com/quieteye/quieteye-stack/ingest/internal/repository"
	"github.com/quieteye/quieteye-stack/ingest/internal/server"
	"github.com/quieteye/quieteye-stack/ingest/internal/service"
	"github.com/quieteye/quieteye-stack/ingest/migrations"

	natsclient "github.com/quieteye/quieteye-stack/common/messaging/nats"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", logging.Error(err))
		os.Exit(1)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service(handlers.ServiceName))
	logging.SetDefault(logger)

	// Refuse to start rather than serve requests that can never be stored.
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", logging.Error(err))
		os.Exit(1)
	}

	slog.Info("Starting ingest service",
		slog.Int("port", cfg.Server.Port),
		slog.String("database_type", cfg.Database.Type),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	// Initialize event store
	repo, err := newRepository(cfg)
	if err != nil {
		slog.Error("Failed to initialize event store", logging.Error(err))
		os.Exit(1)
	}
	defer repo.Close()

	// Initialize rate limiter
	var rateLimiter ratelimit.RateLimiter = &ratelimit.NoOpRateLimiter{}
	switch {
	case !cfg.Ingestion.RateLimitEnabled:
		slog.Info("Rate limiting disabled in configuration")
	case !cfg.Redis.Enabled:
		slog.Warn("Rate limiting requested but Redis is disabled, continuing without rate limiting")
	default:
		limiter, err := ratelimit.NewRedisRateLimiter(
			cfg.Redis.URL,
			cfg.Ingestion.RateLimitRequests,
			cfg.Ingestion.RateLimitWindow,
		)
		if err != nil {
			slog.Warn("Failed to initialize Redis rate limiter, continuing without rate limiting", logging.Error(err))
		} else {
			rateLimiter = limiter
			slog.Info("Rate limiting enabled",
				slog.Int("requests", cfg.Ingestion.RateLimitRequests),
				slog.Duration("window", cfg.Ingestion.RateLimitWindow),
			)
		}
	}
	defer rateLimiter.Close()

	// Initialize event notifications
	var publisher messaging.Publisher = messaging.NoopPublisher{}
	if cfg.NATS.Enabled {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		client, err := natsclient.NewClient(natsCfg, logger.Logger)
		if err != nil {
			slog.Warn("Failed to connect to NATS, ingested-event notifications disabled",
				slog.String("url", cfg.NATS.URL),
				logging.Error(err),
			)
		} else {
			publisher = client
			slog.Info("Ingested-event notifications enabled", slog.String("url", cfg.NATS.URL))
		}
	}
	defer publisher.Close()

	// Initialize services
	ingestService := service.NewIngestService(repo,
		service.WithPublisher(publisher),
		service.WithLogger(logger),
	)
	queryService := service.NewQueryService(repo)
	healthProbe := service.NewHealthProbe(repo)

	// Initialize HTTP handlers
	handler := handlers.NewHandler(ingestService, queryService, healthProbe,
		handlers.WithRateLimiter(rateLimiter),
		handlers.WithMaxBodyBytes(cfg.Ingestion.MaxEventSize),
		handlers.WithLogger(logger),
	)
	router := server.NewRouter(handler, server.Options{
		Logger:      logger.Logger,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	// Create server with config values
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Ingest service listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Shutting down server", slog.String("signal", sig.String()))
	case err := <-serverErr:
		slog.Error("Server error", logging.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", logging.Error(err))
	}

	slog.Info("Server stopped")
}

// newRepository opens the configured event store, applying schema
// migrations first when the store is PostgreSQL.
func newRepository(cfg *config.Config) (repository.Repository, error) {
	if cfg.Database.Type == config.DatabaseMemory {
		slog.Warn("Using in-memory event store, events will not survive a restart")
		return repository.NewInMemoryRepository(), nil
	}

	if cfg.Database.Migrate {
		result, err := database.Migrate(migrations.FS, ".", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		slog.Info("Database schema ready",
			slog.Uint64("version", uint64(result.Version)),
			slog.Bool("changed", result.Changed),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.NewPostgresRepository(ctx, cfg.Database.URL, repository.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}
