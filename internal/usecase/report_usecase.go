package usecase

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/iho/bankmatch/internal/domain"
)

// ReportUseCase renders the unmatched-bank-transaction report. The
// core's contract with reporting is just "list of unmatched bank
// transactions"; this writes them as CSV.
type ReportUseCase struct {
	bankRepo BankTransactionRepository
}

// NewReportUseCase creates a new ReportUseCase.
func NewReportUseCase(bankRepo BankTransactionRepository) *ReportUseCase {
	return &ReportUseCase{bankRepo: bankRepo}
}

var reportHeader = []string{"id", "date", "description", "amount", "bank_name", "account_number"}

// WriteUnmatchedCSV writes unmatched bank transactions inside the
// bucket to w. Returns the number of data rows written.
func (uc *ReportUseCase) WriteUnmatchedCSV(ctx context.Context, w io.Writer, bucket domain.Bucket) (int, error) {
	txns, err := uc.bankRepo.List(ctx, domain.ListFilter{
		Bucket:     bucket,
		MatchState: domain.MatchStateUnmatched,
		Limit:      domain.MaxPageSize,
	})
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(reportHeader); err != nil {
		return 0, err
	}

	for _, txn := range txns {
		row := []string{
			txn.ID,
			txn.Date.Format("2006-01-02"),
			txn.Description,
			txn.Amount.String(),
			txn.BankName,
			txn.AccountNumber,
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("writing unmatched report: %w", err)
	}

	return len(txns), nil
}
