package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankmatch/internal/domain"
)

// TransactionUseCase handles ledger transaction CRUD. It never touches
// match state; that is the coordinator's job.
type TransactionUseCase struct {
	repo   LedgerTransactionRepository
	cache  Cache
	idGen  IDGenerator
	logger zerolog.Logger
}

// NewTransactionUseCase creates a new TransactionUseCase. cache may be nil.
func NewTransactionUseCase(repo LedgerTransactionRepository, cache Cache, idGen IDGenerator, logger zerolog.Logger) *TransactionUseCase {
	return &TransactionUseCase{repo: repo, cache: cache, idGen: idGen, logger: logger}
}

// CreateTransactionInput represents input for creating a ledger transaction.
type CreateTransactionInput struct {
	Date     time.Time
	Category string
	Note     string
	Type     domain.TransactionType
	Amount   decimal.Decimal
}

// CreateTransaction creates a new, unmatched ledger transaction.
func (uc *TransactionUseCase) CreateTransaction(ctx context.Context, input CreateTransactionInput) (*domain.LedgerTransaction, error) {
	now := time.Now().UTC()

	txn := &domain.LedgerTransaction{
		ID:        uc.idGen.Generate(),
		Date:      input.Date,
		Amount:    input.Amount,
		Category:  input.Category,
		Note:      input.Note,
		Type:      input.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := txn.Validate(); err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, txn); err != nil {
		return nil, err
	}

	return txn, nil
}

// GetTransaction retrieves a ledger transaction by ID.
func (uc *TransactionUseCase) GetTransaction(ctx context.Context, id string) (*domain.LedgerTransaction, error) {
	return uc.repo.GetByID(ctx, id)
}

// ListTransactions lists ledger transactions, consulting the read-side
// cache for unmatched listings. Cache failures degrade to the store.
func (uc *TransactionUseCase) ListTransactions(ctx context.Context, filter domain.ListFilter) ([]*domain.LedgerTransaction, error) {
	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)

	key, cacheable := listingCacheKey("ledger", filter)
	if cacheable && uc.cache != nil {
		if raw, err := uc.cache.Get(ctx, key); err == nil {
			var cached []*domain.LedgerTransaction
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	txns, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	if cacheable && uc.cache != nil {
		if raw, err := json.Marshal(txns); err == nil {
			if err := uc.cache.Set(ctx, key, raw, listingCacheTTL); err != nil {
				uc.logger.Debug().Err(err).Str("key", key).Msg("listing cache set failed")
			}
		}
	}

	return txns, nil
}

// UpdateTransaction updates the CRUD-editable fields of a ledger
// transaction, preserving its match state untouched.
func (uc *TransactionUseCase) UpdateTransaction(ctx context.Context, id string, input CreateTransactionInput) (*domain.LedgerTransaction, error) {
	txn, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	txn.Date = input.Date
	txn.Amount = input.Amount
	txn.Category = input.Category
	txn.Note = input.Note
	txn.Type = input.Type
	txn.UpdatedAt = time.Now().UTC()

	if err := txn.Validate(); err != nil {
		return nil, err
	}

	if err := uc.repo.Update(ctx, txn); err != nil {
		return nil, err
	}

	return txn, nil
}

// DeleteTransaction removes a ledger transaction.
func (uc *TransactionUseCase) DeleteTransaction(ctx context.Context, id string) error {
	return uc.repo.Delete(ctx, id)
}

// listingCacheKey builds a cache key for a listing, or reports the
// listing as uncacheable. Only unmatched listings are cached; they are
// the hot read path of the reconciliation screen and the only listings
// the event bus knows how to invalidate.
func listingCacheKey(side string, filter domain.ListFilter) (string, bool) {
	if filter.MatchState != domain.MatchStateUnmatched {
		return "", false
	}

	return fmt.Sprintf("%s%s:%s:%s:%d:%d",
		unmatchedCachePrefix, side, filter.Bucket.Kind, filter.Bucket.Key(), filter.Limit, filter.Offset), true
}
