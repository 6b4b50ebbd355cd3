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

const ledgerTxColumns = `id, date, amount, type, category, note,
	matched, matched_bank_tx_id, matched_at, created_at, updated_at`

// LedgerTransactionRepository implements usecase.LedgerTransactionRepository.
type LedgerTransactionRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerTransactionRepository creates a new LedgerTransactionRepository.
func NewLedgerTransactionRepository(pool *pgxpool.Pool) *LedgerTransactionRepository {
	return &LedgerTransactionRepository{pool: pool}
}

// Create inserts a new ledger transaction.
func (r *LedgerTransactionRepository) Create(ctx context.Context, txn *domain.LedgerTransaction) error {
	query := `
		INSERT INTO transactions (` + ledgerTxColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		txn.ID,
		timeToPgDate(txn.Date),
		decimalToNumeric(txn.Amount),
		string(txn.Type),
		txn.Category,
		txn.Note,
		txn.Matched,
		txn.MatchedBankTxID,
		txn.MatchedAt,
		timeToPgTimestamptz(txn.CreatedAt),
		timeToPgTimestamptz(txn.UpdatedAt),
	)

	return err
}

// GetByID retrieves a ledger transaction by ID.
func (r *LedgerTransactionRepository) GetByID(ctx context.Context, id string) (*domain.LedgerTransaction, error) {
	return r.getByID(ctx, r.pool, id, ``)
}

// GetByIDForUpdate retrieves a ledger transaction with a FOR UPDATE lock.
func (r *LedgerTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.LedgerTransaction, error) {
	return r.getByID(ctx, txQuerier(tx), id, ` FOR UPDATE`)
}

func (r *LedgerTransactionRepository) getByID(ctx context.Context, q querier, id, suffix string) (*domain.LedgerTransaction, error) {
	query := `SELECT ` + ledgerTxColumns + ` FROM transactions WHERE id = $1` + suffix

	txn, err := scanLedgerTx(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return txn, nil
}

// List retrieves ledger transactions matching the filter, ordered by
// date then id for stable pagination.
func (r *LedgerTransactionRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.LedgerTransaction, error) {
	query := `SELECT ` + ledgerTxColumns + ` FROM transactions WHERE 1=1`
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

	txns := []*domain.LedgerTransaction{}
	for rows.Next() {
		txn, err := scanLedgerTx(rows)
		if err != nil {
			return nil, err
		}

		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

// Update rewrites the CRUD-editable columns. Match columns are owned by
// SetMatch and ClearMatch and never touched here.
func (r *LedgerTransactionRepository) Update(ctx context.Context, txn *domain.LedgerTransaction) error {
	query := `
		UPDATE transactions
		SET date = $2, amount = $3, type = $4, category = $5, note = $6, updated_at = $7
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		txn.ID,
		timeToPgDate(txn.Date),
		decimalToNumeric(txn.Amount),
		string(txn.Type),
		txn.Category,
		txn.Note,
		timeToPgTimestamptz(txn.UpdatedAt),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// Delete removes a ledger transaction.
func (r *LedgerTransactionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// SetMatch claims the transaction for a bank counterpart. The matched
// guard makes the update a compare-and-set: zero rows affected means
// another writer claimed the row first.
func (r *LedgerTransactionRepository) SetMatch(ctx context.Context, tx usecase.Transaction, id, bankTxID string, matchedAt time.Time) error {
	query := `
		UPDATE transactions
		SET matched = TRUE, matched_bank_tx_id = $2, matched_at = $3, updated_at = $3
		WHERE id = $1 AND matched = FALSE
	`

	tag, err := txQuerier(tx).Exec(ctx, query, id, bankTxID, timeToPgTimestamptz(matchedAt))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}

	return nil
}

// ClearMatch releases the transaction's match. Zero rows affected means
// the row was not matched anymore.
func (r *LedgerTransactionRepository) ClearMatch(ctx context.Context, tx usecase.Transaction, id string) error {
	query := `
		UPDATE transactions
		SET matched = FALSE, matched_bank_tx_id = NULL, matched_at = NULL, updated_at = $2
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

func scanLedgerTx(row pgx.Row) (*domain.LedgerTransaction, error) {
	var (
		txn       domain.LedgerTransaction
		txnType   string
		date      pgtype.Date
		amount    pgtype.Numeric
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&txn.ID,
		&date,
		&amount,
		&txnType,
		&txn.Category,
		&txn.Note,
		&txn.Matched,
		&txn.MatchedBankTxID,
		&txn.MatchedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Type = domain.TransactionType(txnType)
	txn.Date = date.Time
	txn.Amount = numericToDecimal(amount)
	txn.CreatedAt = createdAt.Time
	txn.UpdatedAt = updatedAt.Time

	return &txn, nil
}
