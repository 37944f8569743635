package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/api"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/audit"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/config"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/database"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/document"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/face"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/quality"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/repository"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/service"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/session"
)

const (
	memoryCleanupInterval = time.Minute
	janitorInterval       = 5 * time.Minute
	shutdownTimeout       = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Badgecheck API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("provider", cfg.ProviderType),
		slog.String("verifier", cfg.VerifierType),
		slog.String("session_store", cfg.SessionStore),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auditLogger := audit.NewSlogLogger(logger)

	// Face providers
	detector, verifier, err := face.NewProviders(ctx, cfg, auditLogger)
	if err != nil {
		return fmt.Errorf("failed to create face providers: %w", err)
	}
	documentDetector, err := face.NewDocumentDetector(ctx, cfg, detector, auditLogger)
	if err != nil {
		return fmt.Errorf("failed to create document detector: %w", err)
	}

	evaluator := quality.NewEvaluator(detector, logger)

	rasterizer := document.NewFitzRasterizer(cfg.DocumentDPI, cfg.MaxDocumentPages)
	locatorCfg := document.DefaultLocatorConfig()
	locatorCfg.MaxPages = cfg.MaxDocumentPages
	locatorCfg.MaxBytes = cfg.MaxDocumentBytes
	locatorCfg.PageTimeout = cfg.PageDetectionTimeout
	locatorCfg.RequireScanned = cfg.RequireScannedDocument
	locator := document.NewLocator(documentDetector, rasterizer, rasterizer, locatorCfg, logger)

	// Database is optional with the memory and redis stores; it enables the attempt log
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = database.NewPgxPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		logger.Info("connected to database")
	}

	store, closeStore, err := newSessionStore(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []service.Option{
		service.WithThreshold(cfg.MatchThreshold),
		service.WithSessionTTL(cfg.SessionTTL),
		service.WithMaxImageBytes(cfg.MaxImageBytes),
		service.WithAuditLogger(auditLogger),
		service.WithProviderName(cfg.VerifierType),
	}

	var attempts handler.AttemptLister
	if pool != nil {
		repo := repository.NewMatchAttemptRepository(pool)
		opts = append(opts, service.WithMatchAttempts(repo))
		attempts = repo
	}

	badgeService := service.NewBadgeService(evaluator, locator, verifier, store, logger, opts...)

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Service:  badgeService,
		Attempts: attempts,
		Ready:    badgeService.Ready,
	}, api.Config{
		Badge: handler.BadgeConfig{
			MaxImageSize:    cfg.MaxImageBytes,
			MaxDocumentSize: cfg.MaxDocumentBytes,
			SessionTTL:      cfg.SessionTTL,
			SecureCookie:    cfg.IsProduction(),
		},
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
		SwaggerHost:     fmt.Sprintf("localhost:%d", cfg.Port),
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}

// newSessionStore builds the badge face store selected by SESSION_STORE. The
// returned func releases what the store started.
func newSessionStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (session.Store, func(), error) {
	switch cfg.SessionStore {
	case config.SessionStorePostgres:
		if pool == nil {
			return nil, nil, fmt.Errorf("postgres session store requires DATABASE_URL")
		}
		store := session.NewPostgresStore(pool)

		janitorCtx, cancel := context.WithCancel(ctx)
		go session.NewJanitor(store, logger, janitorInterval).Run(janitorCtx)
		return store, cancel, nil

	case config.SessionStoreRedis:
		client, err := session.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("connected to redis")
		return session.NewRedisStore(client), func() { _ = client.Close() }, nil

	default:
		store := session.NewMemoryStore(memoryCleanupInterval)
		return store, store.Stop, nil
	}
}
