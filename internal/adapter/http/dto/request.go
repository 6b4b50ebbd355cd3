package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankmatch/internal/domain"
	"github.com/iho/bankmatch/internal/usecase"
)

const dateLayout = "2006-01-02"

// CreateTransactionRequest represents a request to create a ledger transaction.
type CreateTransactionRequest struct {
	Date     string          `json:"date"`
	Type     string          `json:"type"`
	Category string          `json:"category,omitempty"`
	Note     string          `json:"note,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransactionRequest) ToUseCaseInput() (usecase.CreateTransactionInput, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return usecase.CreateTransactionInput{}, err
	}

	txnType, err := domain.ParseTransactionType(r.Type)
	if err != nil {
		return usecase.CreateTransactionInput{}, err
	}

	return usecase.CreateTransactionInput{
		Date:     date,
		Category: r.Category,
		Note:     r.Note,
		Type:     txnType,
		Amount:   r.Amount,
	}, nil
}

// CreateBankTransactionRequest represents a request to record a bank transaction.
type CreateBankTransactionRequest struct {
	Date          string          `json:"date"`
	Description   string          `json:"description,omitempty"`
	BankName      string          `json:"bank_name,omitempty"`
	AccountNumber string          `json:"account_number,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateBankTransactionRequest) ToUseCaseInput() (usecase.CreateBankTransactionInput, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return usecase.CreateBankTransactionInput{}, err
	}

	return usecase.CreateBankTransactionInput{
		Date:          date,
		Description:   r.Description,
		BankName:      r.BankName,
		AccountNumber: r.AccountNumber,
		Amount:        r.Amount,
	}, nil
}

// ConfirmMatchRequest represents a request to confirm a match.
type ConfirmMatchRequest struct {
	BankTransactionID string `json:"bank_transaction_id"`
	TransactionID     string `json:"transaction_id"`
}

// ListFilterFromQuery builds a domain.ListFilter from the common listing
// query parameters.
func ListFilterFromQuery(filterType, filterValue, matchState string, limit, offset int) (domain.ListFilter, error) {
	bucket, err := domain.ParseBucket(domain.BucketKind(filterType), filterValue)
	if err != nil {
		return domain.ListFilter{}, err
	}

	var state domain.MatchState
	if matchState != "" {
		state, err = domain.ParseMatchState(matchState)
		if err != nil {
			return domain.ListFilter{}, err
		}
	}

	return domain.ListFilter{
		Bucket:     bucket,
		MatchState: state,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}

	return d, nil
}
