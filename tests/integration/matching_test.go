package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankmatch/internal/adapter/repository/postgres"
	"github.com/iho/bankmatch/internal/domain"
	"github.com/iho/bankmatch/internal/usecase"
	"github.com/iho/bankmatch/tests/testutil"
)

func newMatchUseCase(testDB *testutil.TestDB) *usecase.MatchUseCase {
	pool := testDB.Pool
	txManager := postgres.NewTxManager(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	idGen := postgres.NewULIDGenerator()
	retrier := postgres.NewRetrier(zerolog.Nop())

	return usecase.NewMatchUseCase(
		txManager,
		testDB.BankTxRepo,
		testDB.LedgerRepo,
		outboxRepo,
		idGen,
		domain.DefaultMatchConfig(),
		nil,
		zerolog.Nop(),
	).WithRetrier(retrier)
}

func TestConfirmAndUnmatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()

	matchUC := newMatchUseCase(testDB)
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("confirm pairs both rows", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		bank := testDB.CreateTestBankTransaction(ctx, date, decimal.NewFromFloat(-42.50), "COFFEE SHOP")
		ledger := testDB.CreateTestLedgerTransaction(ctx, date, decimal.NewFromFloat(42.50), domain.TransactionTypeExpense, "food")

		match, err := matchUC.ConfirmMatch(ctx, bank.ID, ledger.ID)
		if err != nil {
			t.Fatalf("failed to confirm match: %v", err)
		}

		if match.BankTransactionID != bank.ID || match.LedgerTransactionID != ledger.ID {
			t.Errorf("match references wrong rows: %+v", match)
		}

		gotBank, err := testDB.BankTxRepo.GetByID(ctx, bank.ID)
		if err != nil {
			t.Fatalf("failed to reload bank transaction: %v", err)
		}
		if !gotBank.Matched || gotBank.MatchedLedgerTxID == nil || *gotBank.MatchedLedgerTxID != ledger.ID {
			t.Errorf("bank row not marked matched: %+v", gotBank)
		}

		gotLedger, err := testDB.LedgerRepo.GetByID(ctx, ledger.ID)
		if err != nil {
			t.Fatalf("failed to reload ledger transaction: %v", err)
		}
		if !gotLedger.Matched || gotLedger.MatchedBankTxID == nil || *gotLedger.MatchedBankTxID != bank.ID {
			t.Errorf("ledger row not marked matched: %+v", gotLedger)
		}
	})

	t.Run("second confirm is rejected", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		bank := testDB.CreateTestBankTransaction(ctx, date, decimal.NewFromFloat(-42.50), "COFFEE SHOP")
		ledger := testDB.CreateTestLedgerTransaction(ctx, date, decimal.NewFromFloat(42.50), domain.TransactionTypeExpense, "food")
		other := testDB.CreateTestLedgerTransaction(ctx, date, decimal.NewFromFloat(42.50), domain.TransactionTypeExpense, "food")

		if _, err := matchUC.ConfirmMatch(ctx, bank.ID, ledger.ID); err != nil {
			t.Fatalf("failed to confirm match: %v", err)
		}

		_, err := matchUC.ConfirmMatch(ctx, bank.ID, other.ID)
		if !errors.Is(err, domain.ErrAlreadyMatched) {
			t.Errorf("expected ErrAlreadyMatched, got %v", err)
		}
	})

	t.Run("amount outside tolerance is rejected", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		bank := testDB.CreateTestBankTransaction(ctx, date, decimal.NewFromFloat(-42.50), "COFFEE SHOP")
		ledger := testDB.CreateTestLedgerTransaction(ctx, date, decimal.NewFromFloat(43.00), domain.TransactionTypeExpense, "food")

		_, err := matchUC.ConfirmMatch(ctx, bank.ID, ledger.ID)
		if !errors.Is(err, domain.ErrAmountMismatch) {
			t.Errorf("expected ErrAmountMismatch, got %v", err)
		}
	})

	t.Run("date outside window is rejected", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		bank := testDB.CreateTestBankTransaction(ctx, date, decimal.NewFromFloat(-42.50), "COFFEE SHOP")
		ledger := testDB.CreateTestLedgerTransaction(ctx, date.AddDate(0, 0, 7), decimal.NewFromFloat(42.50), domain.TransactionTypeExpense, "food")

		_, err := matchUC.ConfirmMatch(ctx, bank.ID, ledger.ID)
		if !errors.Is(err, domain.ErrDateOutOfRange) {
			t.Errorf("expected ErrDateOutOfRange, got %v", err)
		}
	})

	t.Run("unmatch by bank releases both rows", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		bank := testDB.CreateTestBankTransaction(ctx, date, decimal.NewFromFloat(-42.50), "COFFEE SHOP")
		ledger := testDB.CreateTestLedgerTransaction(ctx, date, decimal.NewFromFloat(42.50), domain.TransactionTypeExpense, "food")

		if _, err := matchUC.ConfirmMatch(ctx, bank.ID, ledger.ID); err != nil {
			t.Fatalf("failed to confirm match: %v", err)
		}

		if err := matchUC.UnmatchByBank(ctx, bank.ID); err != nil {
			t.Fatalf("failed to unmatch: %v", err)
		}

		gotBank, _ := testDB.BankTxRepo.GetByID(ctx, bank.ID)
		gotLedger, _ := testDB.LedgerRepo.GetByID(ctx, ledger.ID)

		if gotBank.Matched || gotBank.MatchedLedgerTxID != nil {
			t.Errorf("bank row still matched after release: %+v", gotBank)
		}
		if gotLedger.Matched || gotLedger.MatchedBankTxID != nil {
			t.Errorf("ledger row still matched after release: %+v", gotLedger)
		}
	})

	t.Run("unmatch by ledger on unmatched row fails", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		ledger := testDB.CreateTestLedgerTransaction(ctx, date, decimal.NewFromFloat(42.50), domain.TransactionTypeExpense, "food")

		err := matchUC.UnmatchByLedger(ctx, ledger.ID)
		if !errors.Is(err, domain.ErrNotMatched) {
			t.Errorf("expected ErrNotMatched, got %v", err)
		}
	})

	t.Run("released pair can be rematched", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		bank := testDB.CreateTestBankTransaction(ctx, date, decimal.NewFromFloat(-42.50), "COFFEE SHOP")
		ledger := testDB.CreateTestLedgerTransaction(ctx, date, decimal.NewFromFloat(42.50), domain.TransactionTypeExpense, "food")

		if _, err := matchUC.ConfirmMatch(ctx, bank.ID, ledger.ID); err != nil {
			t.Fatalf("failed to confirm match: %v", err)
		}
		if err := matchUC.UnmatchByLedger(ctx, ledger.ID); err != nil {
			t.Fatalf("failed to unmatch: %v", err)
		}
		if _, err := matchUC.ConfirmMatch(ctx, bank.ID, ledger.ID); err != nil {
			t.Fatalf("failed to rematch released pair: %v", err)
		}
	})
}

func TestCandidateSuggestions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()

	candidateUC := usecase.NewCandidateUseCase(
		testDB.BankTxRepo,
		testDB.LedgerRepo,
		domain.DefaultMatchConfig(),
		nil,
	)

	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	testDB.TruncateAll(ctx)

	bank := testDB.CreateTestBankTransaction(ctx, date, decimal.NewFromFloat(-42.50), "COFFEE SHOP")

	// Exact amount and date should outrank a same-amount row two days off,
	// and the off-tolerance row should not appear at all.
	exact := testDB.CreateTestLedgerTransaction(ctx, date, decimal.NewFromFloat(42.50), domain.TransactionTypeExpense, "coffee shop")
	near := testDB.CreateTestLedgerTransaction(ctx, date.AddDate(0, 0, 2), decimal.NewFromFloat(42.50), domain.TransactionTypeExpense, "food")
	testDB.CreateTestLedgerTransaction(ctx, date, decimal.NewFromFloat(99.00), domain.TransactionTypeExpense, "rent")

	candidates, err := candidateUC.SuggestCandidates(ctx, domain.SideBank, bank.ID)
	if err != nil {
		t.Fatalf("failed to suggest candidates: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	if candidates[0].Ledger == nil || candidates[0].Ledger.ID != exact.ID {
		t.Errorf("expected exact pair ranked first, got %+v", candidates[0])
	}
	if candidates[1].Ledger == nil || candidates[1].Ledger.ID != near.ID {
		t.Errorf("expected near pair ranked second, got %+v", candidates[1])
	}
	if candidates[0].Score <= candidates[1].Score {
		t.Errorf("scores not descending: %f then %f", candidates[0].Score, candidates[1].Score)
	}
}

func TestAutoMatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()

	matchUC := newMatchUseCase(testDB)
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	testDB.TruncateAll(ctx)

	// One unambiguous exact pair.
	pairBank := testDB.CreateTestBankTransaction(ctx, date, decimal.NewFromFloat(-42.50), "COFFEE SHOP")
	pairLedger := testDB.CreateTestLedgerTransaction(ctx, date, decimal.NewFromFloat(42.50), domain.TransactionTypeExpense, "food")

	// Two bank rows competing for one ledger row stay untouched.
	testDB.CreateTestBankTransaction(ctx, date, decimal.NewFromFloat(-10.00), "DUPE A")
	testDB.CreateTestBankTransaction(ctx, date, decimal.NewFromFloat(-10.00), "DUPE B")
	ambiguous := testDB.CreateTestLedgerTransaction(ctx, date, decimal.NewFromFloat(10.00), domain.TransactionTypeExpense, "misc")

	result, err := matchUC.AutoMatch(ctx)
	if err != nil {
		t.Fatalf("auto-match failed: %v", err)
	}

	if len(result.Confirmed) != 1 {
		t.Fatalf("expected 1 confirmed pair, got %d", len(result.Confirmed))
	}
	if result.Confirmed[0].BankTransactionID != pairBank.ID || result.Confirmed[0].LedgerTransactionID != pairLedger.ID {
		t.Errorf("auto-match confirmed wrong pair: %+v", result.Confirmed[0])
	}
	if result.Ambiguous == 0 {
		t.Error("expected the duplicate-amount group to be reported ambiguous")
	}

	gotAmbiguous, _ := testDB.LedgerRepo.GetByID(ctx, ambiguous.ID)
	if gotAmbiguous.Matched {
		t.Error("ambiguous ledger row should stay unmatched")
	}
}
