package usecase

import (
	"context"
	"time"

	"github.com/iho/bankmatch/internal/domain"
)

// LedgerTransactionRepository defines data access for ledger transactions.
// SetMatch and ClearMatch are conditional writes: they succeed only when
// the row is currently in the expected match state and return
// domain.ErrConflict otherwise.
type LedgerTransactionRepository interface {
	Create(ctx context.Context, txn *domain.LedgerTransaction) error
	GetByID(ctx context.Context, id string) (*domain.LedgerTransaction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.LedgerTransaction, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.LedgerTransaction, error)
	Update(ctx context.Context, txn *domain.LedgerTransaction) error
	Delete(ctx context.Context, id string) error
	SetMatch(ctx context.Context, tx Transaction, id, bankTxID string, matchedAt time.Time) error
	ClearMatch(ctx context.Context, tx Transaction, id string) error
}

// BankTransactionRepository defines data access for bank transactions.
type BankTransactionRepository interface {
	Create(ctx context.Context, txn *domain.BankTransaction) error
	CreateTx(ctx context.Context, tx Transaction, txn *domain.BankTransaction) error
	GetByID(ctx context.Context, id string) (*domain.BankTransaction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.BankTransaction, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.BankTransaction, error)
	Update(ctx context.Context, txn *domain.BankTransaction) error
	Delete(ctx context.Context, id string) error
	SetMatch(ctx context.Context, tx Transaction, id, ledgerTxID string, matchedAt time.Time) error
	ClearMatch(ctx context.Context, tx Transaction, id string) error
}

// OutboxRepository defines data access for change-notification events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier re-runs an operation that failed on a transient storage error.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Cache defines read-side caching for listings. DeletePrefix drops every
// key under a prefix; the event bus uses it for invalidation.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// IdempotencyInFlight is the placeholder value an IdempotencyStore
// writes while the first request with a key is still being handled.
const IdempotencyInFlight = "processing"

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
