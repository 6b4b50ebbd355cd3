package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankmatch/internal/domain"
	"github.com/iho/bankmatch/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// TransactionResponse represents a ledger transaction in API responses.
type TransactionResponse struct {
	ID              string          `json:"id"`
	Date            string          `json:"date"`
	Type            string          `json:"type"`
	Category        string          `json:"category,omitempty"`
	Note            string          `json:"note,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Matched         bool            `json:"matched"`
	MatchedBankTxID *string         `json:"matched_bank_transaction_id,omitempty"`
	MatchedAt       *time.Time      `json:"matched_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TransactionFromDomain converts a domain ledger transaction to a response.
func TransactionFromDomain(t *domain.LedgerTransaction) *TransactionResponse {
	return &TransactionResponse{
		ID:              t.ID,
		Date:            t.Date.Format(dateLayout),
		Type:            string(t.Type),
		Category:        t.Category,
		Note:            t.Note,
		Amount:          t.Amount,
		Matched:         t.Matched,
		MatchedBankTxID: t.MatchedBankTxID,
		MatchedAt:       t.MatchedAt,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// TransactionsFromDomain converts domain ledger transactions to responses.
func TransactionsFromDomain(txns []*domain.LedgerTransaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// ListTransactionsResponse wraps a ledger transaction listing.
type ListTransactionsResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Total        int                    `json:"total"`
}

// BankTransactionResponse represents a bank transaction in API responses.
type BankTransactionResponse struct {
	ID                string          `json:"id"`
	Date              string          `json:"date"`
	Description       string          `json:"description,omitempty"`
	BankName          string          `json:"bank_name,omitempty"`
	AccountNumber     string          `json:"account_number,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Matched           bool            `json:"matched"`
	MatchedLedgerTxID *string         `json:"matched_transaction_id,omitempty"`
	MatchedAt         *time.Time      `json:"matched_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// BankTransactionFromDomain converts a domain bank transaction to a response.
func BankTransactionFromDomain(t *domain.BankTransaction) *BankTransactionResponse {
	return &BankTransactionResponse{
		ID:                t.ID,
		Date:              t.Date.Format(dateLayout),
		Description:       t.Description,
		BankName:          t.BankName,
		AccountNumber:     t.AccountNumber,
		Amount:            t.Amount,
		Matched:           t.Matched,
		MatchedLedgerTxID: t.MatchedLedgerTxID,
		MatchedAt:         t.MatchedAt,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

// BankTransactionsFromDomain converts domain bank transactions to responses.
func BankTransactionsFromDomain(txns []*domain.BankTransaction) []*BankTransactionResponse {
	result := make([]*BankTransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = BankTransactionFromDomain(t)
	}
	return result
}

// ListBankTransactionsResponse wraps a bank transaction listing.
type ListBankTransactionsResponse struct {
	BankTransactions []*BankTransactionResponse `json:"bank_transactions"`
	Total            int                        `json:"total"`
}

// MatchResponse represents a confirmed match in API responses.
type MatchResponse struct {
	BankTransactionID string          `json:"bank_transaction_id"`
	TransactionID     string          `json:"transaction_id"`
	Amount            decimal.Decimal `json:"amount"`
	Date              string          `json:"date"`
	MatchedAt         time.Time       `json:"matched_at"`
}

// MatchFromDomain converts a domain match to a response.
func MatchFromDomain(m *domain.Match) *MatchResponse {
	return &MatchResponse{
		BankTransactionID: m.BankTransactionID,
		TransactionID:     m.LedgerTransactionID,
		Amount:            m.Amount,
		Date:              m.Date.Format(dateLayout),
		MatchedAt:         m.MatchedAt,
	}
}

// CandidateResponse represents one scored suggestion.
type CandidateResponse struct {
	BankTransaction *BankTransactionResponse `json:"bank_transaction,omitempty"`
	Transaction     *TransactionResponse     `json:"transaction,omitempty"`
	Score           float64                  `json:"score"`
	Reasons         []string                 `json:"reasons"`
}

// CandidatesFromDomain converts scored candidates to responses. The
// reference side is omitted; only counterparts are serialized.
func CandidatesFromDomain(candidates []domain.Candidate, side domain.Side) []*CandidateResponse {
	result := make([]*CandidateResponse, len(candidates))
	for i, c := range candidates {
		resp := &CandidateResponse{
			Score:   c.Score,
			Reasons: c.Reasons,
		}

		// For a bank reference the counterpart is the ledger side, and
		// the other way around.
		if side == domain.SideBank {
			resp.Transaction = TransactionFromDomain(c.Ledger)
		} else {
			resp.BankTransaction = BankTransactionFromDomain(c.Bank)
		}

		result[i] = resp
	}
	return result
}

// ListCandidatesResponse wraps a candidate listing.
type ListCandidatesResponse struct {
	Candidates []*CandidateResponse `json:"candidates"`
	Total      int                  `json:"total"`
}

// AutoMatchResponse reports one auto-match pass.
type AutoMatchResponse struct {
	Confirmed []*MatchResponse `json:"confirmed"`
	Scanned   int              `json:"scanned"`
	Ambiguous int              `json:"ambiguous"`
}

// AutoMatchFromResult converts an auto-match result to a response.
func AutoMatchFromResult(result *usecase.AutoMatchResult) *AutoMatchResponse {
	confirmed := make([]*MatchResponse, len(result.Confirmed))
	for i, m := range result.Confirmed {
		confirmed[i] = MatchFromDomain(m)
	}

	return &AutoMatchResponse{
		Confirmed: confirmed,
		Scanned:   result.Scanned,
		Ambiguous: result.Ambiguous,
	}
}

// ImportResponse reports one completed statement import.
type ImportResponse struct {
	Imported         int                        `json:"imported"`
	BankTransactions []*BankTransactionResponse `json:"bank_transactions"`
}

// ImportFromResult converts an import result to a response.
func ImportFromResult(result *usecase.ImportResult) *ImportResponse {
	return &ImportResponse{
		Imported:         result.Imported,
		BankTransactions: BankTransactionsFromDomain(result.Transactions),
	}
}
