package domain

import "errors"

var (
	// Lookup errors
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrBankTransactionNotFound = errors.New("bank transaction not found")

	// Matching errors
	ErrAlreadyMatched = errors.New("already matched")
	ErrNotMatched     = errors.New("not matched")
	ErrAmountMismatch = errors.New("amounts do not agree within tolerance")
	ErrDateOutOfRange = errors.New("dates differ beyond the configured window")

	// Storage errors
	ErrConflict = errors.New("concurrent update conflict")

	// Input validation errors
	ErrInvalidTransactionType = errors.New("transaction type must be income or expense")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidBucket          = errors.New("invalid bucket filter")
	ErrInvalidMatchState      = errors.New("match state must be matched or unmatched")
	ErrInvalidSide            = errors.New("side must be bank or ledger")
)
