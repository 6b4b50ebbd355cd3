package usecase

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankmatch/internal/domain"
	"github.com/iho/bankmatch/internal/infrastructure/metrics"
)

// csvDateFormats are tried in order when parsing statement dates.
var csvDateFormats = []string{"2006-01-02", "01/02/2006", "02.01.2006"}

// ImportUseCase turns an uploaded bank statement CSV into unmatched
// bank transactions, created atomically: a statement either imports
// whole or not at all.
//
// Expected layout: a header row, then date, description, amount
// columns. Amounts may carry thousands separators and an explicit sign.
type ImportUseCase struct {
	txManager  TransactionManager
	bankRepo   BankTransactionRepository
	outboxRepo OutboxRepository
	idGen      IDGenerator
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewImportUseCase creates a new ImportUseCase. metrics may be nil.
func NewImportUseCase(
	txManager TransactionManager,
	bankRepo BankTransactionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *ImportUseCase {
	return &ImportUseCase{
		txManager:  txManager,
		bankRepo:   bankRepo,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		metrics:    m,
		logger:     logger,
	}
}

// ImportResult reports one completed import.
type ImportResult struct {
	Transactions []*domain.BankTransaction
	Imported     int
}

// Import parses the CSV and persists every row as an unmatched bank
// transaction in a single database transaction.
func (uc *ImportUseCase) Import(ctx context.Context, r io.Reader, bankName, accountNumber string) (*ImportResult, error) {
	txns, err := uc.parse(r, bankName, accountNumber)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.ImportFailures.Inc()
		}

		return nil, err
	}

	if len(txns) == 0 {
		return &ImportResult{Transactions: []*domain.BankTransaction{}}, nil
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for _, txn := range txns {
		if err := uc.bankRepo.CreateTx(ctx, tx, txn); err != nil {
			return nil, err
		}
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   txns[0].ID,
		AggregateType: domain.AggregateTypeImport,
		EventType:     domain.EventTypeImportFinished,
		Payload: map[string]any{
			"bank_name": bankName,
			"count":     len(txns),
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ImportedTransactions.Add(float64(len(txns)))
	}

	uc.logger.Info().
		Str("bank_name", bankName).
		Int("count", len(txns)).
		Msg("statement imported")

	return &ImportResult{Transactions: txns, Imported: len(txns)}, nil
}

func (uc *ImportUseCase) parse(r io.Reader, bankName, accountNumber string) ([]*domain.BankTransaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading statement CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	now := time.Now().UTC()

	txns := make([]*domain.BankTransaction, 0, len(records)-1)
	for i, rec := range records[1:] {
		txn, err := uc.parseRow(rec, bankName, accountNumber, now)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}

		txns = append(txns, txn)
	}

	return txns, nil
}

func (uc *ImportUseCase) parseRow(rec []string, bankName, accountNumber string, now time.Time) (*domain.BankTransaction, error) {
	if len(rec) < 3 {
		return nil, fmt.Errorf("expected at least 3 columns (date, description, amount), got %d", len(rec))
	}

	date, err := parseStatementDate(strings.TrimSpace(rec[0]))
	if err != nil {
		return nil, err
	}

	amount, err := parseStatementAmount(strings.TrimSpace(rec[2]))
	if err != nil {
		return nil, err
	}

	txn := &domain.BankTransaction{
		ID:            uc.idGen.Generate(),
		Date:          date,
		Amount:        amount,
		Description:   strings.TrimSpace(rec[1]),
		BankName:      bankName,
		AccountNumber: accountNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := txn.Validate(); err != nil {
		return nil, err
	}

	return txn, nil
}

func parseStatementDate(s string) (time.Time, error) {
	for _, layout := range csvDateFormats {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}

	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func parseStatementAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "+")

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unparseable amount %q", s)
	}

	return amount, nil
}
