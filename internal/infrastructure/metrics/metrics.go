package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the reconciliation engine.
type Metrics struct {
	// Matching metrics
	MatchesConfirmed prometheus.Counter
	MatchesReleased  prometheus.Counter
	MatchRejections  *prometheus.CounterVec
	ConflictRetries  prometheus.Counter

	// Candidate metrics
	CandidateDuration  prometheus.Histogram
	CandidatesReturned prometheus.Histogram

	// Auto-match metrics
	AutoMatchConfirmed prometheus.Counter
	AutoMatchAmbiguous prometheus.Counter

	// Import metrics
	ImportedTransactions prometheus.Counter
	ImportFailures       prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		MatchesConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankmatch_matches_confirmed_total",
			Help: "Total number of confirmed matches",
		}),
		MatchesReleased: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankmatch_matches_released_total",
			Help: "Total number of unmatch operations",
		}),
		MatchRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankmatch_match_rejections_total",
				Help: "Total number of rejected match attempts by reason",
			},
			[]string{"reason"},
		),
		ConflictRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankmatch_conflict_retries_total",
			Help: "Total number of coordinator retries after a storage conflict",
		}),
		CandidateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bankmatch_candidate_generation_seconds",
			Help:    "Duration of candidate generation",
			Buckets: prometheus.DefBuckets,
		}),
		CandidatesReturned: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bankmatch_candidates_returned",
			Help:    "Number of candidates returned per suggestion request",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		}),
		AutoMatchConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankmatch_automatch_confirmed_total",
			Help: "Total number of pairs confirmed by auto-match passes",
		}),
		AutoMatchAmbiguous: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankmatch_automatch_ambiguous_total",
			Help: "Total number of pairs skipped by auto-match as ambiguous",
		}),
		ImportedTransactions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankmatch_imported_transactions_total",
			Help: "Total number of bank transactions created by CSV import",
		}),
		ImportFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankmatch_import_failures_total",
			Help: "Total number of failed CSV imports",
		}),
	}
}
