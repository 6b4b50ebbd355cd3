package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankmatch/internal/domain"
)

// BankTransactionUseCase handles bank transaction CRUD. Imported rows
// come in through ImportUseCase; this covers manual entry and listing.
type BankTransactionUseCase struct {
	repo   BankTransactionRepository
	cache  Cache
	idGen  IDGenerator
	logger zerolog.Logger
}

// NewBankTransactionUseCase creates a new BankTransactionUseCase. cache may be nil.
func NewBankTransactionUseCase(repo BankTransactionRepository, cache Cache, idGen IDGenerator, logger zerolog.Logger) *BankTransactionUseCase {
	return &BankTransactionUseCase{repo: repo, cache: cache, idGen: idGen, logger: logger}
}

// CreateBankTransactionInput represents input for manual bank transaction entry.
type CreateBankTransactionInput struct {
	Date          time.Time
	Description   string
	BankName      string
	AccountNumber string
	Amount        decimal.Decimal
}

// CreateBankTransaction creates a new, unmatched bank transaction.
func (uc *BankTransactionUseCase) CreateBankTransaction(ctx context.Context, input CreateBankTransactionInput) (*domain.BankTransaction, error) {
	now := time.Now().UTC()

	txn := &domain.BankTransaction{
		ID:            uc.idGen.Generate(),
		Date:          input.Date,
		Amount:        input.Amount,
		Description:   input.Description,
		BankName:      input.BankName,
		AccountNumber: input.AccountNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := txn.Validate(); err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, txn); err != nil {
		return nil, err
	}

	return txn, nil
}

// GetBankTransaction retrieves a bank transaction by ID.
func (uc *BankTransactionUseCase) GetBankTransaction(ctx context.Context, id string) (*domain.BankTransaction, error) {
	return uc.repo.GetByID(ctx, id)
}

// ListBankTransactions lists bank transactions, consulting the
// read-side cache for unmatched listings.
func (uc *BankTransactionUseCase) ListBankTransactions(ctx context.Context, filter domain.ListFilter) ([]*domain.BankTransaction, error) {
	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)

	key, cacheable := listingCacheKey("bank", filter)
	if cacheable && uc.cache != nil {
		if raw, err := uc.cache.Get(ctx, key); err == nil {
			var cached []*domain.BankTransaction
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

// UpdateBankTransaction updates the CRUD-editable fields of a bank
// transaction, preserving its match state untouched.
func (uc *BankTransactionUseCase) UpdateBankTransaction(ctx context.Context, id string, input CreateBankTransactionInput) (*domain.BankTransaction, error) {
	txn, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	txn.Date = input.Date
	txn.Amount = input.Amount
	txn.Description = input.Description
	txn.BankName = input.BankName
	txn.AccountNumber = input.AccountNumber
	txn.UpdatedAt = time.Now().UTC()

	if err := txn.Validate(); err != nil {
		return nil, err
	}

	if err := uc.repo.Update(ctx, txn); err != nil {
		return nil, err
	}

	return txn, nil
}

// DeleteBankTransaction removes a bank transaction.
func (uc *BankTransactionUseCase) DeleteBankTransaction(ctx context.Context, id string) error {
	return uc.repo.Delete(ctx, id)
}
