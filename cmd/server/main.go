package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/bankmatch/internal/adapter/http"
	"github.com/iho/bankmatch/internal/adapter/http/handler"
	"github.com/iho/bankmatch/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/bankmatch/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/bankmatch/internal/adapter/repository/redis"
	"github.com/iho/bankmatch/internal/infrastructure/config"
	"github.com/iho/bankmatch/internal/infrastructure/eventpublisher"
	"github.com/iho/bankmatch/internal/infrastructure/logger"
	"github.com/iho/bankmatch/internal/infrastructure/metrics"
	"github.com/iho/bankmatch/internal/infrastructure/postgres"
	"github.com/iho/bankmatch/internal/infrastructure/redis"
	"github.com/iho/bankmatch/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	appLogger.Info().Msg("connected to postgres")

	if path := migrationsPath(); path != "" {
		if err := postgres.RunMigrations(cfg.DatabaseURL, path); err != nil {
			appLogger.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	appLogger.Info().Msg("connected to redis")

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	bankTxRepo := postgresRepo.NewBankTransactionRepository(pool)
	ledgerTxRepo := postgresRepo.NewLedgerTransactionRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(appLogger)

	m := metrics.New()
	matchCfg := cfg.MatchConfig()

	// Initialize use cases
	transactionUC := usecase.NewTransactionUseCase(ledgerTxRepo, cache, idGen, appLogger)
	bankTxUC := usecase.NewBankTransactionUseCase(bankTxRepo, cache, idGen, appLogger)
	matchUC := usecase.NewMatchUseCase(txManager, bankTxRepo, ledgerTxRepo, outboxRepo, idGen, matchCfg, m, appLogger).
		WithRetrier(retrier)
	candidateUC := usecase.NewCandidateUseCase(bankTxRepo, ledgerTxRepo, matchCfg, m)
	importUC := usecase.NewImportUseCase(txManager, bankTxRepo, outboxRepo, idGen, m, appLogger)
	reportUC := usecase.NewReportUseCase(bankTxRepo)

	// Initialize handlers
	transactionHandler := handler.NewTransactionHandler(transactionUC)
	bankTxHandler := handler.NewBankTransactionHandler(bankTxUC, importUC, reportUC)
	matchingHandler := handler.NewMatchingHandler(matchUC, candidateUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		TransactionHandler:     transactionHandler,
		BankTransactionHandler: bankTxHandler,
		MatchingHandler:        matchingHandler,
		HealthHandler:          healthHandler,
		IdempotencyStore:       idempotencyStore,
		RateLimiter:            middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Logger:                 appLogger,
	})

	// Outbox publisher: log events, then invalidate stale cached listings.
	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher: eventpublisher.NewCacheInvalidator(
			eventpublisher.NewLogPublisher(appLogger),
			cache,
		),
		Logger:    appLogger,
		BatchSize: cfg.OutboxBatchSize,
		Interval:  cfg.OutboxInterval,
	})

	publisherCtx, stopPublisher := context.WithCancel(ctx)
	defer stopPublisher()
	go func() {
		if err := publisher.Start(publisherCtx); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down server...")

	stopPublisher()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("server stopped")
}

// migrationsPath locates the migrations directory, empty when the
// binary runs without one and migrations are applied out of band.
func migrationsPath() string {
	if path := os.Getenv("MIGRATIONS_PATH"); path != "" {
		return path
	}

	for _, candidate := range []string{
		"internal/infrastructure/postgres/migrations",
		"migrations",
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}
