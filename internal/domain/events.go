package domain

import "time"

// Event types
const (
	EventTypeMatchConfirmed = "match.confirmed"
	EventTypeMatchReleased  = "match.released"
	EventTypeImportFinished = "bank_transactions.imported"
)

// Aggregate types
const (
	AggregateTypeMatch  = "match"
	AggregateTypeImport = "import"
)

// OutboxEvent is a change notification written in the same transaction
// as the state change it describes, then published asynchronously.
type OutboxEvent struct {
	CreatedAt     time.Time
	PublishedAt   *time.Time
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	Published     bool
}

// MatchConfirmedEvent payload
type MatchConfirmedEvent struct {
	BankTransactionID   string `json:"bank_transaction_id"`
	LedgerTransactionID string `json:"transaction_id"`
	Amount              string `json:"amount"`
	Date                string `json:"date"`
}

// MatchReleasedEvent payload
type MatchReleasedEvent struct {
	BankTransactionID   string `json:"bank_transaction_id"`
	LedgerTransactionID string `json:"transaction_id"`
}

// ImportFinishedEvent payload
type ImportFinishedEvent struct {
	BankName string `json:"bank_name"`
	Count    int    `json:"count"`
}
