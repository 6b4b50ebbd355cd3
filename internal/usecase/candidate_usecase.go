package usecase

import (
	"context"
	"time"

	"github.com/iho/bankmatch/internal/domain"
	"github.com/iho/bankmatch/internal/infrastructure/metrics"
)

// CandidateUseCase is the candidate generator: a read-only ranking of
// plausible counterparts for one reference transaction. Results are
// recomputed per call and never cached; the validator is the authority
// at commit time.
type CandidateUseCase struct {
	bankRepo   BankTransactionRepository
	ledgerRepo LedgerTransactionRepository
	metrics    *metrics.Metrics
	cfg        domain.MatchConfig
}

// NewCandidateUseCase creates a new CandidateUseCase. metrics may be nil.
func NewCandidateUseCase(
	bankRepo BankTransactionRepository,
	ledgerRepo LedgerTransactionRepository,
	cfg domain.MatchConfig,
	m *metrics.Metrics,
) *CandidateUseCase {
	return &CandidateUseCase{
		bankRepo:   bankRepo,
		ledgerRepo: ledgerRepo,
		cfg:        cfg,
		metrics:    m,
	}
}

// SuggestCandidates ranks unmatched counterparts for the referenced
// transaction. An already-matched reference yields an empty list, not
// an error.
func (uc *CandidateUseCase) SuggestCandidates(ctx context.Context, side domain.Side, id string) ([]domain.Candidate, error) {
	start := time.Now()

	candidates, err := uc.suggest(ctx, side, id)
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.CandidateDuration.Observe(time.Since(start).Seconds())
		uc.metrics.CandidatesReturned.Observe(float64(len(candidates)))
	}

	return candidates, nil
}

func (uc *CandidateUseCase) suggest(ctx context.Context, side domain.Side, id string) ([]domain.Candidate, error) {
	pool := domain.ListFilter{
		MatchState: domain.MatchStateUnmatched,
		Limit:      candidatePoolLimit,
	}

	var candidates []domain.Candidate

	switch side {
	case domain.SideBank:
		bank, err := uc.bankRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if bank.Matched {
			return []domain.Candidate{}, nil
		}

		ledgers, err := uc.ledgerRepo.List(ctx, pool)
		if err != nil {
			return nil, err
		}

		for _, l := range ledgers {
			if c, ok := domain.ScoreCandidate(bank, l, uc.cfg); ok {
				candidates = append(candidates, c)
			}
		}

	case domain.SideLedger:
		ledger, err := uc.ledgerRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if ledger.Matched {
			return []domain.Candidate{}, nil
		}

		banks, err := uc.bankRepo.List(ctx, pool)
		if err != nil {
			return nil, err
		}

		for _, b := range banks {
			if c, ok := domain.ScoreCandidate(b, ledger, uc.cfg); ok {
				candidates = append(candidates, c)
			}
		}

	default:
		return nil, domain.ErrInvalidSide
	}

	return domain.RankCandidates(candidates, uc.cfg), nil
}
