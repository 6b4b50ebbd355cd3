package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/iho/bankmatch/internal/domain"
	"github.com/iho/bankmatch/internal/usecase"
	"github.com/iho/bankmatch/internal/usecase/mocks"
)

type importFixture struct {
	bankRepo   *mocks.MockBankTransactionRepository
	outboxRepo *mocks.MockOutboxRepository
	uc         *usecase.ImportUseCase
}

func newImportFixture() *importFixture {
	f := &importFixture{
		bankRepo:   mocks.NewMockBankTransactionRepository(),
		outboxRepo: mocks.NewMockOutboxRepository(),
	}
	f.uc = usecase.NewImportUseCase(
		mocks.NewMockTransactionManager(), f.bankRepo, f.outboxRepo,
		mocks.NewMockIDGenerator(), nil, zerolog.Nop(),
	)

	return f
}

func TestImportUseCase_Import(t *testing.T) {
	f := newImportFixture()

	statement := strings.Join([]string{
		"Date,Description,Amount",
		"2024-03-11,CARD PURCHASE ACME SUPPLIES,-42.00",
		`03/12/2024,"PAYROLL, MARCH","+1,500.00"`,
		"12.03.2024,ATM WITHDRAWAL,-60.00",
	}, "\n")

	result, err := f.uc.Import(context.Background(), strings.NewReader(statement), "First National", "1234")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if result.Imported != 3 {
		t.Fatalf("expected 3 imported rows, got %d", result.Imported)
	}

	stored := f.bankRepo.Snapshot()
	if len(stored) != 3 {
		t.Fatalf("expected 3 stored rows, got %d", len(stored))
	}
	for _, txn := range stored {
		if txn.Matched {
			t.Errorf("imported row %s must start unmatched", txn.ID)
		}
		if txn.BankName != "First National" || txn.AccountNumber != "1234" {
			t.Errorf("row %s missing statement metadata: %+v", txn.ID, txn)
		}
	}

	// Every supported date layout lands on the same day.
	var onMarch12 int
	for _, txn := range stored {
		if txn.Date.Equal(day(2024, 3, 12)) {
			onMarch12++
		}
	}
	if onMarch12 != 2 {
		t.Errorf("expected 2 rows on 2024-03-12, got %d", onMarch12)
	}

	// Quoted thousands separators and the plus sign are stripped.
	var foundPayroll bool
	for _, txn := range stored {
		if txn.Description == "PAYROLL, MARCH" {
			foundPayroll = true
			if txn.Amount.String() != "1500" {
				t.Errorf("payroll amount: expected 1500, got %s", txn.Amount)
			}
		}
	}
	if !foundPayroll {
		t.Error("quoted description row missing")
	}

	events := f.outboxRepo.Events()
	if len(events) != 1 || events[0].EventType != domain.EventTypeImportFinished {
		t.Errorf("expected one import-finished event, got %+v", events)
	}
}

func TestImportUseCase_BadRowFailsWholeImport(t *testing.T) {
	f := newImportFixture()

	statement := strings.Join([]string{
		"Date,Description,Amount",
		"2024-03-11,GOOD ROW,-42.00",
		"not-a-date,BAD ROW,-10.00",
		"2024-03-13,ANOTHER GOOD ROW,-5.00",
	}, "\n")

	_, err := f.uc.Import(context.Background(), strings.NewReader(statement), "First National", "1234")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "row 3") {
		t.Errorf("error should name the offending row: %v", err)
	}

	if got := len(f.bankRepo.Snapshot()); got != 0 {
		t.Errorf("failed import must store nothing, got %d rows", got)
	}
}

func TestImportUseCase_UnparseableAmount(t *testing.T) {
	f := newImportFixture()

	statement := "Date,Description,Amount\n2024-03-11,ROW,abc\n"

	if _, err := f.uc.Import(context.Background(), strings.NewReader(statement), "b", "a"); err == nil {
		t.Fatal("expected amount parse error")
	}
}

func TestImportUseCase_ZeroAmountRowRejected(t *testing.T) {
	f := newImportFixture()

	statement := "Date,Description,Amount\n2024-03-11,ROW,0.00\n"

	if _, err := f.uc.Import(context.Background(), strings.NewReader(statement), "b", "a"); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("expected invalid amount, got %v", err)
	}
}

func TestImportUseCase_HeaderOnlyStatement(t *testing.T) {
	f := newImportFixture()

	result, err := f.uc.Import(context.Background(), strings.NewReader("Date,Description,Amount\n"), "b", "a")
	if err != nil {
		t.Fatalf("header-only import: %v", err)
	}
	if result.Imported != 0 || len(result.Transactions) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
	if got := len(f.outboxRepo.Events()); got != 0 {
		t.Errorf("empty import must not emit events, got %d", got)
	}
}

func TestImportUseCase_StorageFailureRollsBackEarlierRows(t *testing.T) {
	f := newImportFixture()

	boom := errors.New("insert failed")
	f.outboxRepo.CreateFunc = func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
		return boom
	}

	statement := strings.Join([]string{
		"Date,Description,Amount",
		"2024-03-11,ROW ONE,-42.00",
		"2024-03-12,ROW TWO,-10.00",
	}, "\n")

	if _, err := f.uc.Import(context.Background(), strings.NewReader(statement), "b", "a"); !errors.Is(err, boom) {
		t.Fatalf("expected storage error, got %v", err)
	}

	if got := len(f.bankRepo.Snapshot()); got != 0 {
		t.Errorf("partial import must roll back, got %d rows", got)
	}
}
