package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bankmatch/internal/domain"
	"github.com/iho/bankmatch/internal/usecase"
)

const bankTxColumns = `id, date, amount, description, bank_name, account_number,
	matched, matched_ledger_tx_id, matched_at, created_at, updated_at`

// BankTransactionRepository implements usecase.BankTransactionRepository.
type BankTransactionRepository struct {
	pool *pgxpool.Pool
}

// NewBankTransactionRepository creates a new BankTransactionRepository.
func NewBankTransactionRepository(pool *pgxpool.Pool) *BankTransactionRepository {
	return &BankTransactionRepository{pool: pool}
}

// Create inserts a new bank transaction.
func (r *BankTransactionRepository) Create(ctx context.Context, txn *domain.BankTransaction) error {
	return r.create(ctx, r.pool, txn)
}

// CreateTx inserts a new bank transaction within a transaction. Statement
// imports use it to make a whole file land or fail together.
func (r *BankTransactionRepository) CreateTx(ctx context.Context, tx usecase.Transaction, txn *domain.BankTransaction) error {
	return r.create(ctx, txQuerier(tx), txn)
}

func (r *BankTransactionRepository) create(ctx context.Context, q querier, txn *domain.BankTransaction) error {
	query := `
		INSERT INTO bank_transactions (` + bankTxColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := q.Exec(ctx, query,
		txn.ID,
		timeToPgDate(txn.Date),
		decimalToNumeric(txn.Amount),
		txn.Description,
		txn.BankName,
		txn.AccountNumber,
		txn.Matched,
		txn.MatchedLedgerTxID,
		txn.MatchedAt,
		timeToPgTimestamptz(txn.CreatedAt),
		timeToPgTimestamptz(txn.UpdatedAt),
	)

	return err
}

// GetByID retrieves a bank transaction by ID.
func (r *BankTransactionRepository) GetByID(ctx context.Context, id string) (*domain.BankTransaction, error) {
	return r.getByID(ctx, r.pool, id, ``)
}

// GetByIDForUpdate retrieves a bank transaction with a FOR UPDATE lock.
func (r *BankTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.BankTransaction, error) {
	return r.getByID(ctx, txQuerier(tx), id, ` FOR UPDATE`)
}

func (r *BankTransactionRepository) getByID(ctx context.Context, q querier, id, suffix string) (*domain.BankTransaction, error) {
	query := `SELECT ` + bankTxColumns + ` FROM bank_transactions WHERE id = $1` + suffix

	txn, err := scanBankTx(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBankTransactionNotFound
		}

		return nil, err
	}

	return txn, nil
}

// List retrieves bank transactions matching the filter, ordered by date
// then id for stable pagination.
func (r *BankTransactionRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.BankTransaction, error) {
	query := `SELECT ` + bankTxColumns + ` FROM bank_transactions WHERE 1=1`
	args := []any{}

	query, args = bucketClause(query, args, filter.Bucket)
	query = matchStateClause(query, filter.MatchState)

	query += ` ORDER BY date, id`

	if filter.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(len(args)+1)
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(len(args)+1)
		args = append(args, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := []*domain.BankTransaction{}
	for rows.Next() {
		txn, err := scanBankTx(rows)
		if err != nil {
			return nil, err
		}

		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

// Update rewrites the CRUD-editable columns, leaving match columns to
// SetMatch and ClearMatch.
func (r *BankTransactionRepository) Update(ctx context.Context, txn *domain.BankTransaction) error {
	query := `
		UPDATE bank_transactions
		SET date = $2, amount = $3, description = $4, bank_name = $5, account_number = $6, updated_at = $7
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		txn.ID,
		timeToPgDate(txn.Date),
		decimalToNumeric(txn.Amount),
		txn.Description,
		txn.BankName,
		txn.AccountNumber,
		timeToPgTimestamptz(txn.UpdatedAt),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrBankTransactionNotFound
	}

	return nil
}

// Delete removes a bank transaction.
func (r *BankTransactionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bank_transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrBankTransactionNotFound
	}

	return nil
}

// SetMatch claims the bank transaction for a ledger counterpart via a
// compare-and-set on the matched flag.
func (r *BankTransactionRepository) SetMatch(ctx context.Context, tx usecase.Transaction, id, ledgerTxID string, matchedAt time.Time) error {
	query := `
		UPDATE bank_transactions
		SET matched = TRUE, matched_ledger_tx_id = $2, matched_at = $3, updated_at = $3
		WHERE id = $1 AND matched = FALSE
	`

	tag, err := txQuerier(tx).Exec(ctx, query, id, ledgerTxID, timeToPgTimestamptz(matchedAt))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}

	return nil
}

// ClearMatch releases the bank transaction's match.
func (r *BankTransactionRepository) ClearMatch(ctx context.Context, tx usecase.Transaction, id string) error {
	query := `
		UPDATE bank_transactions
		SET matched = FALSE, matched_ledger_tx_id = NULL, matched_at = NULL, updated_at = $2
		WHERE id = $1 AND matched = TRUE
	`

	tag, err := txQuerier(tx).Exec(ctx, query, id, timeToPgTimestamptz(time.Now().UTC()))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}

	return nil
}

func scanBankTx(row pgx.Row) (*domain.BankTransaction, error) {
	var (
		txn       domain.BankTransaction
		date      pgtype.Date
		amount    pgtype.Numeric
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&txn.ID,
		&date,
		&amount,
		&txn.Description,
		&txn.BankName,
		&txn.AccountNumber,
		&txn.Matched,
		&txn.MatchedLedgerTxID,
		&txn.MatchedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Date = date.Time
	txn.Amount = numericToDecimal(amount)
	txn.CreatedAt = createdAt.Time
	txn.UpdatedAt = updatedAt.Time

	return &txn, nil
}
