package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bankmatch/internal/domain"
	"github.com/iho/bankmatch/internal/infrastructure/metrics"
)

// MatchUseCase is the match coordinator: the only code path allowed to
// mutate match state. Confirm and Unmatch run as one database
// transaction spanning both records, with row locks taken in a fixed
// order (bank row first, then ledger row) so racing operations
// serialize instead of deadlocking.
type MatchUseCase struct {
	txManager  TransactionManager
	bankRepo   BankTransactionRepository
	ledgerRepo LedgerTransactionRepository
	outboxRepo OutboxRepository
	idGen      IDGenerator
	retrier    Retrier
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	cfg        domain.MatchConfig
}

// NewMatchUseCase creates a new MatchUseCase. metrics may be nil.
func NewMatchUseCase(
	txManager TransactionManager,
	bankRepo BankTransactionRepository,
	ledgerRepo LedgerTransactionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	cfg domain.MatchConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *MatchUseCase {
	return &MatchUseCase{
		txManager:  txManager,
		bankRepo:   bankRepo,
		ledgerRepo: ledgerRepo,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
	}
}

// WithRetrier enables re-running attempts that die on transient
// database errors, deadlocks and serialization failures. Conflict
// handling is unaffected.
func (uc *MatchUseCase) WithRetrier(r Retrier) *MatchUseCase {
	uc.retrier = r
	return uc
}

func (uc *MatchUseCase) withRetry(ctx context.Context, operation func() error) error {
	if uc.retrier == nil {
		return operation()
	}
	return uc.retrier.Retry(ctx, operation)
}

// ConfirmMatch validates and commits the pairing of one bank transaction
// with one ledger transaction. On a storage conflict (race lost) the
// whole attempt is re-run once: state is re-read and re-validated, so
// the loser reports AlreadyMatched rather than replaying the write.
func (uc *MatchUseCase) ConfirmMatch(ctx context.Context, bankTxID, ledgerTxID string) (*domain.Match, error) {
	match, err := uc.confirmAttempt(ctx, bankTxID, ledgerTxID)
	if errors.Is(err, domain.ErrConflict) {
		uc.countRetry()
		match, err = uc.confirmAttempt(ctx, bankTxID, ledgerTxID)
	}

	if err != nil {
		uc.countRejection(err)
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.MatchesConfirmed.Inc()
	}

	uc.logger.Info().
		Str("bank_transaction_id", bankTxID).
		Str("transaction_id", ledgerTxID).
		Str("amount", match.Amount.String()).
		Msg("match confirmed")

	return match, nil
}

func (uc *MatchUseCase) confirmAttempt(ctx context.Context, bankTxID, ledgerTxID string) (*domain.Match, error) {
	var match *domain.Match
	err := uc.withRetry(ctx, func() error {
		var err error
		match, err = uc.confirmOnce(ctx, bankTxID, ledgerTxID)
		return err
	})
	return match, err
}

func (uc *MatchUseCase) confirmOnce(ctx context.Context, bankTxID, ledgerTxID string) (*domain.Match, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Canonical lock order: bank row before ledger row.
	bank, err := uc.bankRepo.GetByIDForUpdate(ctx, tx, bankTxID)
	if err != nil {
		return nil, err
	}

	ledger, err := uc.ledgerRepo.GetByIDForUpdate(ctx, tx, ledgerTxID)
	if err != nil {
		return nil, err
	}

	// Always re-validate under lock; candidate state may be stale.
	if err := domain.ValidateMatch(bank, ledger, uc.cfg); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if err := uc.bankRepo.SetMatch(ctx, tx, bank.ID, ledger.ID, now); err != nil {
		return nil, err
	}

	if err := uc.ledgerRepo.SetMatch(ctx, tx, ledger.ID, bank.ID, now); err != nil {
		return nil, err
	}

	match := domain.NewMatch(bank, ledger, now)

	event := uc.newEvent(domain.EventTypeMatchConfirmed, domain.AggregateTypeMatch, bank.ID, map[string]any{
		"bank_transaction_id": bank.ID,
		"transaction_id":      ledger.ID,
		"amount":              match.Amount.String(),
		"date":                match.Date.Format("2006-01-02"),
	})
	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return match, nil
}

// UnmatchByBank releases the match the given bank transaction belongs
// to, clearing both sides atomically. A counterpart deleted out-of-band
// still gets its reference cleared, not treated as fatal.
func (uc *MatchUseCase) UnmatchByBank(ctx context.Context, bankTxID string) error {
	err := uc.withRetry(ctx, func() error { return uc.unmatchByBankOnce(ctx, bankTxID) })
	if errors.Is(err, domain.ErrConflict) {
		uc.countRetry()
		err = uc.withRetry(ctx, func() error { return uc.unmatchByBankOnce(ctx, bankTxID) })
	}

	if err != nil {
		return err
	}

	uc.countRelease(bankTxID, "bank")

	return nil
}

func (uc *MatchUseCase) unmatchByBankOnce(ctx context.Context, bankTxID string) error {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	bank, err := uc.bankRepo.GetByIDForUpdate(ctx, tx, bankTxID)
	if err != nil {
		return err
	}

	if !bank.Matched || bank.MatchedLedgerTxID == nil {
		return domain.ErrNotMatched
	}

	ledgerTxID := *bank.MatchedLedgerTxID

	if err := uc.bankRepo.ClearMatch(ctx, tx, bank.ID); err != nil {
		return err
	}

	ledger, err := uc.ledgerRepo.GetByIDForUpdate(ctx, tx, ledgerTxID)

	switch {
	case errors.Is(err, domain.ErrTransactionNotFound):
		// Counterpart deleted out-of-band; clear the orphaned reference.
		uc.logger.Warn().
			Str("bank_transaction_id", bank.ID).
			Str("transaction_id", ledgerTxID).
			Msg("unmatch: counterpart transaction missing, clearing orphaned reference")

	case err != nil:
		return err

	case ledger.Matched && ledger.MatchedBankTxID != nil && *ledger.MatchedBankTxID == bank.ID:
		if err := uc.ledgerRepo.ClearMatch(ctx, tx, ledger.ID); err != nil {
			return err
		}

	case ledger.Matched:
		// Back-reference points elsewhere after an out-of-band edit.
		// The counterpart keeps its pairing; only this side is released.
		uc.logger.Warn().
			Str("bank_transaction_id", bank.ID).
			Str("transaction_id", ledger.ID).
			Msg("unmatch: counterpart belongs to a different pairing, leaving it untouched")
	}

	event := uc.newEvent(domain.EventTypeMatchReleased, domain.AggregateTypeMatch, bank.ID, map[string]any{
		"bank_transaction_id": bank.ID,
		"transaction_id":      ledgerTxID,
	})
	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UnmatchByLedger releases the match the given ledger transaction
// belongs to. The counterpart id is read first without a lock so that
// locks are still taken in the canonical bank-then-ledger order; the
// pairing is re-verified under lock.
func (uc *MatchUseCase) UnmatchByLedger(ctx context.Context, ledgerTxID string) error {
	err := uc.withRetry(ctx, func() error { return uc.unmatchByLedgerOnce(ctx, ledgerTxID) })
	if errors.Is(err, domain.ErrConflict) {
		uc.countRetry()
		err = uc.withRetry(ctx, func() error { return uc.unmatchByLedgerOnce(ctx, ledgerTxID) })
	}

	if err != nil {
		return err
	}

	uc.countRelease(ledgerTxID, "ledger")

	return nil
}

func (uc *MatchUseCase) unmatchByLedgerOnce(ctx context.Context, ledgerTxID string) error {
	peek, err := uc.ledgerRepo.GetByID(ctx, ledgerTxID)
	if err != nil {
		return err
	}

	if !peek.Matched || peek.MatchedBankTxID == nil {
		return domain.ErrNotMatched
	}

	bankTxID := *peek.MatchedBankTxID

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	bank, err := uc.bankRepo.GetByIDForUpdate(ctx, tx, bankTxID)
	orphaned := errors.Is(err, domain.ErrBankTransactionNotFound)
	if err != nil && !orphaned {
		return err
	}

	ledger, err := uc.ledgerRepo.GetByIDForUpdate(ctx, tx, ledgerTxID)
	if err != nil {
		return err
	}

	if !ledger.Matched || ledger.MatchedBankTxID == nil {
		return domain.ErrNotMatched
	}

	if *ledger.MatchedBankTxID != bankTxID {
		// Pairing changed between the unlocked peek and the lock.
		return domain.ErrConflict
	}

	if err := uc.ledgerRepo.ClearMatch(ctx, tx, ledger.ID); err != nil {
		return err
	}

	if orphaned {
		uc.logger.Warn().
			Str("transaction_id", ledger.ID).
			Str("bank_transaction_id", bankTxID).
			Msg("unmatch: counterpart bank transaction missing, clearing orphaned reference")
	} else if bank.Matched {
		if err := uc.bankRepo.ClearMatch(ctx, tx, bank.ID); err != nil {
			return err
		}
	}

	event := uc.newEvent(domain.EventTypeMatchReleased, domain.AggregateTypeMatch, bankTxID, map[string]any{
		"bank_transaction_id": bankTxID,
		"transaction_id":      ledger.ID,
	})
	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AutoMatchResult reports one auto-match pass.
type AutoMatchResult struct {
	Confirmed []*domain.Match
	Scanned   int
	Ambiguous int
}

// AutoMatch confirms every unmatched pair that agrees exactly on date
// and magnitude, as long as the pairing is unambiguous: a date+amount
// key claimed by more than one record on either side is left for manual
// review rather than guessed at.
func (uc *MatchUseCase) AutoMatch(ctx context.Context) (*AutoMatchResult, error) {
	banks, err := uc.bankRepo.List(ctx, domain.ListFilter{
		MatchState: domain.MatchStateUnmatched,
		Limit:      autoMatchPoolLimit,
	})
	if err != nil {
		return nil, err
	}

	ledgers, err := uc.ledgerRepo.List(ctx, domain.ListFilter{
		MatchState: domain.MatchStateUnmatched,
		Limit:      autoMatchPoolLimit,
	})
	if err != nil {
		return nil, err
	}

	bankByKey := make(map[string][]*domain.BankTransaction)
	for _, b := range banks {
		k := exactKey(b.Date, b.Magnitude().StringFixed(4))
		bankByKey[k] = append(bankByKey[k], b)
	}

	ledgerByKey := make(map[string][]*domain.LedgerTransaction)
	for _, l := range ledgers {
		k := exactKey(l.Date, l.Magnitude().StringFixed(4))
		ledgerByKey[k] = append(ledgerByKey[k], l)
	}

	result := &AutoMatchResult{Scanned: len(banks)}

	for key, bs := range bankByKey {
		ls, found := ledgerByKey[key]
		if !found {
			continue
		}

		if len(bs) != 1 || len(ls) != 1 {
			result.Ambiguous++
			if uc.metrics != nil {
				uc.metrics.AutoMatchAmbiguous.Inc()
			}

			continue
		}

		match, err := uc.ConfirmMatch(ctx, bs[0].ID, ls[0].ID)
		switch {
		case errors.Is(err, domain.ErrAlreadyMatched), errors.Is(err, domain.ErrConflict):
			// Raced a manual confirm; the pair is settled either way.
			continue
		case err != nil:
			return nil, err
		}

		result.Confirmed = append(result.Confirmed, match)
		if uc.metrics != nil {
			uc.metrics.AutoMatchConfirmed.Inc()
		}
	}

	uc.logger.Info().
		Int("scanned", result.Scanned).
		Int("confirmed", len(result.Confirmed)).
		Int("ambiguous", result.Ambiguous).
		Msg("auto-match pass finished")

	return result, nil
}

func exactKey(d time.Time, magnitude string) string {
	return d.Format("2006-01-02") + "|" + magnitude
}

func (uc *MatchUseCase) newEvent(eventType, aggregateType, aggregateID string, payload map[string]any) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}
}

func (uc *MatchUseCase) countRetry() {
	if uc.metrics != nil {
		uc.metrics.ConflictRetries.Inc()
	}
}

func (uc *MatchUseCase) countRelease(id, side string) {
	if uc.metrics != nil {
		uc.metrics.MatchesReleased.Inc()
	}

	uc.logger.Info().Str("id", id).Str("side", side).Msg("match released")
}

func (uc *MatchUseCase) countRejection(err error) {
	if uc.metrics == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrAlreadyMatched):
		uc.metrics.MatchRejections.WithLabelValues("already_matched").Inc()
	case errors.Is(err, domain.ErrAmountMismatch):
		uc.metrics.MatchRejections.WithLabelValues("amount_mismatch").Inc()
	case errors.Is(err, domain.ErrDateOutOfRange):
		uc.metrics.MatchRejections.WithLabelValues("date_out_of_range").Inc()
	case errors.Is(err, domain.ErrBankTransactionNotFound), errors.Is(err, domain.ErrTransactionNotFound):
		uc.metrics.MatchRejections.WithLabelValues("not_found").Inc()
	case errors.Is(err, domain.ErrConflict):
		uc.metrics.MatchRejections.WithLabelValues("conflict").Inc()
	default:
		uc.metrics.MatchRejections.WithLabelValues("other").Inc()
	}
}
