package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction is a record sourced from a bank statement import or
// manual entry. Amount keeps the sign reported by the bank; matching
// compares by magnitude, never by raw sign.
// Matched and MatchedLedgerTxID are mutated only by the match coordinator.
type BankTransaction struct {
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Date              time.Time
	MatchedAt         *time.Time
	MatchedLedgerTxID *string
	ID                string
	Description       string
	BankName          string
	AccountNumber     string
	Amount            decimal.Decimal
	Matched           bool
}

// Validate checks the CRUD-editable fields.
func (t *BankTransaction) Validate() error {
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}

	return nil
}

// Magnitude returns the amount used for matching comparisons.
func (t *BankTransaction) Magnitude() decimal.Decimal {
	return t.Amount.Abs()
}
