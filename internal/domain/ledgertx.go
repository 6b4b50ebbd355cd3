package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger transaction.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// ParseTransactionType validates and normalizes a transaction type string.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TransactionTypeIncome:
		return TransactionTypeIncome, nil
	case TransactionTypeExpense:
		return TransactionTypeExpense, nil
	default:
		return "", ErrInvalidTransactionType
	}
}

// LedgerTransaction is a manually tracked income/expense record.
// Amount is always a positive magnitude; Type carries the direction.
// Matched and MatchedBankTxID are mutated only by the match coordinator.
type LedgerTransaction struct {
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Date            time.Time
	MatchedAt       *time.Time
	MatchedBankTxID *string
	ID              string
	Category        string
	Note            string
	Type            TransactionType
	Amount          decimal.Decimal
	Matched         bool
}

// Validate checks the CRUD-editable fields.
func (t *LedgerTransaction) Validate() error {
	if _, err := ParseTransactionType(string(t.Type)); err != nil {
		return err
	}

	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	return nil
}

// Magnitude returns the amount used for matching comparisons.
func (t *LedgerTransaction) Magnitude() decimal.Decimal {
	return t.Amount.Abs()
}
