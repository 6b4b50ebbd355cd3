package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side names one of the two record pools.
type Side string

const (
	SideBank   Side = "bank"
	SideLedger Side = "ledger"
)

// ParseSide validates a side string.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBank:
		return SideBank, nil
	case SideLedger:
		return SideLedger, nil
	default:
		return "", ErrInvalidSide
	}
}

// MatchState is the reconciliation state of a record.
type MatchState string

const (
	MatchStateUnmatched MatchState = "unmatched"
	MatchStateMatched   MatchState = "matched"
)

// ParseMatchState validates a match state string.
func ParseMatchState(s string) (MatchState, error) {
	switch MatchState(s) {
	case MatchStateUnmatched:
		return MatchStateUnmatched, nil
	case MatchStateMatched:
		return MatchStateMatched, nil
	default:
		return "", ErrInvalidMatchState
	}
}

// MatchConfig holds the tunable matching policy.
type MatchConfig struct {
	// AmountTolerance is the absolute difference, in currency units,
	// still considered the same amount.
	AmountTolerance decimal.Decimal
	// DateWindowDays is the maximum date distance, in days, for a legal pairing.
	DateWindowDays int
	// MaxCandidates caps the suggestion list.
	MaxCandidates int
	// Scoring weights. They are expected to sum to 1.
	AmountWeight      float64
	DateWeight        float64
	DescriptionWeight float64
}

// DefaultMatchConfig returns the policy used when nothing is configured.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		AmountTolerance:   decimal.NewFromFloat(0.01),
		DateWindowDays:    5,
		MaxCandidates:     10,
		AmountWeight:      0.5,
		DateWeight:        0.35,
		DescriptionWeight: 0.15,
	}
}

// Match is a confirmed, exclusive pairing between one bank transaction
// and one ledger transaction. It is assembled from the two rows, not
// stored on its own.
type Match struct {
	MatchedAt           time.Time
	Date                time.Time
	BankTransactionID   string
	LedgerTransactionID string
	Amount              decimal.Decimal
}

// ValidateMatch decides whether pairing bank and ledger is legal right
// now. It is pure; the coordinator calls it immediately before a commit,
// on records read under lock.
func ValidateMatch(bank *BankTransaction, ledger *LedgerTransaction, cfg MatchConfig) error {
	if bank == nil {
		return ErrBankTransactionNotFound
	}

	if ledger == nil {
		return ErrTransactionNotFound
	}

	if bank.Matched {
		return fmt.Errorf("%w: bank transaction %s", ErrAlreadyMatched, bank.ID)
	}

	if ledger.Matched {
		return fmt.Errorf("%w: transaction %s", ErrAlreadyMatched, ledger.ID)
	}

	// Sign conventions differ between the two stores, so compare magnitudes.
	diff := bank.Magnitude().Sub(ledger.Magnitude()).Abs()
	if diff.GreaterThan(cfg.AmountTolerance) {
		return fmt.Errorf("%w: bank %s vs ledger %s", ErrAmountMismatch, bank.Magnitude(), ledger.Magnitude())
	}

	if d := DaysApart(bank.Date, ledger.Date); d > cfg.DateWindowDays {
		return fmt.Errorf("%w: %d days apart, window is %d", ErrDateOutOfRange, d, cfg.DateWindowDays)
	}

	return nil
}

// NewMatch assembles the Match realized by a confirmed pairing.
func NewMatch(bank *BankTransaction, ledger *LedgerTransaction, matchedAt time.Time) *Match {
	return &Match{
		BankTransactionID:   bank.ID,
		LedgerTransactionID: ledger.ID,
		Amount:              bank.Magnitude(),
		Date:                bank.Date,
		MatchedAt:           matchedAt,
	}
}

// DaysApart returns the absolute calendar-day distance between two dates.
// Time-of-day is ignored.
func DaysApart(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	d := int(ad.Sub(bd).Hours() / 24)
	if d < 0 {
		d = -d
	}

	return d
}
