package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Candidate is a scored, unconfirmed pairing suggestion. Candidates are
// transient: recomputed per request and never persisted.
type Candidate struct {
	Bank    *BankTransaction
	Ledger  *LedgerTransaction
	Reasons []string
	Score   float64
}

// ScoreCandidate scores one bank/ledger pairing. ok is false when the
// pairing fails a hard gate (amount outside tolerance, date outside the
// window, either side already matched) and must not be suggested at all.
func ScoreCandidate(bank *BankTransaction, ledger *LedgerTransaction, cfg MatchConfig) (c Candidate, ok bool) {
	if bank == nil || ledger == nil || bank.Matched || ledger.Matched {
		return Candidate{}, false
	}

	diff := bank.Magnitude().Sub(ledger.Magnitude()).Abs()
	if diff.GreaterThan(cfg.AmountTolerance) {
		return Candidate{}, false
	}

	days := DaysApart(bank.Date, ledger.Date)
	if days > cfg.DateWindowDays {
		return Candidate{}, false
	}

	c = Candidate{Bank: bank, Ledger: ledger}

	amountScore := 1.0
	if diff.IsZero() {
		c.Reasons = append(c.Reasons, "amount exact")
	} else {
		amountScore = 0.5
		c.Reasons = append(c.Reasons, fmt.Sprintf("amount within tolerance (off by %s)", diff))
	}

	// Exact date scores 1; each day inside the window shaves an equal step.
	dateScore := 1.0 - float64(days)/float64(cfg.DateWindowDays+1)
	if days == 0 {
		c.Reasons = append(c.Reasons, "same date")
	} else {
		c.Reasons = append(c.Reasons, fmt.Sprintf("%d day(s) apart", days))
	}

	descScore := TextSimilarity(bank.Description, ledger.Note)
	if descScore > 0 {
		c.Reasons = append(c.Reasons, fmt.Sprintf("description overlap %.2f", descScore))
	}

	c.Score = cfg.AmountWeight*amountScore + cfg.DateWeight*dateScore + cfg.DescriptionWeight*descScore

	return c, true
}

// RankCandidates orders candidates by descending score, breaking ties by
// nearest date and then lowest ledger id, lowest bank id. The result is
// capped at cfg.MaxCandidates.
func RankCandidates(candidates []Candidate, cfg MatchConfig) []Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}

		ad := DaysApart(a.Bank.Date, a.Ledger.Date)
		bd := DaysApart(b.Bank.Date, b.Ledger.Date)
		if ad != bd {
			return ad < bd
		}

		if a.Ledger.ID != b.Ledger.ID {
			return a.Ledger.ID < b.Ledger.ID
		}

		return a.Bank.ID < b.Bank.ID
	})

	if cfg.MaxCandidates > 0 && len(candidates) > cfg.MaxCandidates {
		candidates = candidates[:cfg.MaxCandidates]
	}

	return candidates
}

// TextSimilarity is a normalized token-overlap score in [0, 1].
// Case-insensitive, whitespace-collapsed; bank descriptions rarely equal
// ledger notes verbatim, so absence of overlap scores 0 rather than
// disqualifying the pairing.
func TextSimilarity(a, b string) float64 {
	at := tokenize(a)
	bt := tokenize(b)

	if len(at) == 0 || len(bt) == 0 {
		return 0
	}

	shared := 0
	for tok := range at {
		if bt[tok] {
			shared++
		}
	}

	smaller := len(at)
	if len(bt) < smaller {
		smaller = len(bt)
	}

	return float64(shared) / float64(smaller)
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,;:-_/()")
		if tok != "" {
			tokens[tok] = true
		}
	}

	return tokens
}
