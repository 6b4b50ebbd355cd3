package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/bankmatch/internal/adapter/http/handler"
	"github.com/iho/bankmatch/internal/adapter/http/middleware"
	"github.com/iho/bankmatch/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	TransactionHandler     *handler.TransactionHandler
	BankTransactionHandler *handler.BankTransactionHandler
	MatchingHandler        *handler.MatchingHandler
	HealthHandler          *handler.HealthHandler
	IdempotencyStore       usecase.IdempotencyStore
	RateLimiter            *middleware.RateLimiter
	Logger                 zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recovery)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Ledger transactions
		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", cfg.TransactionHandler.Create)
			r.Get("/", cfg.TransactionHandler.List)
			r.Get("/{id}", cfg.TransactionHandler.Get)
			r.Put("/{id}", cfg.TransactionHandler.Update)
			r.Delete("/{id}", cfg.TransactionHandler.Delete)
		})

		// Bank transactions
		r.Route("/bank-transactions", func(r chi.Router) {
			r.Post("/", cfg.BankTransactionHandler.Create)
			r.Get("/", cfg.BankTransactionHandler.List)
			r.Post("/import", cfg.BankTransactionHandler.Import)
			r.Get("/report", cfg.BankTransactionHandler.Report)
			r.Get("/{id}", cfg.BankTransactionHandler.Get)
			r.Put("/{id}", cfg.BankTransactionHandler.Update)
			r.Delete("/{id}", cfg.BankTransactionHandler.Delete)
		})

		// Reconciliation
		r.Route("/matching", func(r chi.Router) {
			r.Get("/candidates/{side}/{id}", cfg.MatchingHandler.SuggestCandidates)
			r.Post("/confirm", cfg.MatchingHandler.ConfirmMatch)
			r.Post("/unmatch/bank/{id}", cfg.MatchingHandler.UnmatchByBank)
			r.Post("/unmatch/ledger/{id}", cfg.MatchingHandler.UnmatchByLedger)
			r.Post("/auto", cfg.MatchingHandler.AutoMatch)
		})
	})

	return r
}
