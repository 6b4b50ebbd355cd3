package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/bankmatch/internal/domain"
	"github.com/iho/bankmatch/internal/usecase"
)

// querier is the subset of pgx shared by pools and transactions, so a
// repository method can run against either.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func txQuerier(tx usecase.Transaction) querier {
	return tx.(*Tx).PgxTx()
}

// bucketClause appends a half-open date-range predicate for the filter's
// bucket, returning the extended query and args.
func bucketClause(query string, args []any, bucket domain.Bucket) (string, []any) {
	if bucket.Kind == domain.BucketNone {
		return query, args
	}

	query += ` AND date >= $` + strconv.Itoa(len(args)+1)
	args = append(args, timeToPgDate(bucket.Start))

	query += ` AND date < $` + strconv.Itoa(len(args)+1)
	args = append(args, timeToPgDate(bucket.End))

	return query, args
}

// matchStateClause appends a matched predicate unless every state is wanted.
func matchStateClause(query string, state domain.MatchState) string {
	switch state {
	case domain.MatchStateMatched:
		return query + ` AND matched = TRUE`
	case domain.MatchStateUnmatched:
		return query + ` AND matched = FALSE`
	default:
		return query
	}
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func timeToPgDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: true}
}
