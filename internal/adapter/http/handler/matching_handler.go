package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankmatch/internal/adapter/http/dto"
	"github.com/iho/bankmatch/internal/domain"
	"github.com/iho/bankmatch/internal/usecase"
)

// MatchingService confirms and releases matches between bank and
// ledger transactions.
type MatchingService interface {
	ConfirmMatch(ctx context.Context, bankTxID, ledgerTxID string) (*domain.Match, error)
	UnmatchByBank(ctx context.Context, bankTxID string) error
	UnmatchByLedger(ctx context.Context, ledgerTxID string) error
	AutoMatch(ctx context.Context) (*usecase.AutoMatchResult, error)
}

// CandidateService produces scored match suggestions.
type CandidateService interface {
	SuggestCandidates(ctx context.Context, side domain.Side, id string) ([]domain.Candidate, error)
}

// MatchingHandler handles reconciliation HTTP requests.
type MatchingHandler struct {
	matchUC     MatchingService
	candidateUC CandidateService
}

// NewMatchingHandler creates a new MatchingHandler.
func NewMatchingHandler(matchUC MatchingService, candidateUC CandidateService) *MatchingHandler {
	return &MatchingHandler{matchUC: matchUC, candidateUC: candidateUC}
}

// SuggestCandidates lists scored unmatched counterparts for one
// transaction. The response is purely advisory, nothing is mutated.
func (h *MatchingHandler) SuggestCandidates(w http.ResponseWriter, r *http.Request) {
	side, err := domain.ParseSide(chi.URLParam(r, "side"))
	if err != nil {
		writeError(w, mapDomainError(err), "invalid side", err.Error())
		return
	}

	id := chi.URLParam(r, "id")

	candidates, err := h.candidateUC.SuggestCandidates(r.Context(), side, id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to suggest candidates", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListCandidatesResponse{
		Candidates: dto.CandidatesFromDomain(candidates, side),
		Total:      len(candidates),
	})
}

// ConfirmMatch pairs a bank transaction with a ledger transaction.
func (h *MatchingHandler) ConfirmMatch(w http.ResponseWriter, r *http.Request) {
	var req dto.ConfirmMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if req.BankTransactionID == "" || req.TransactionID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body",
			"bank_transaction_id and transaction_id are required")
		return
	}

	match, err := h.matchUC.ConfirmMatch(r.Context(), req.BankTransactionID, req.TransactionID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to confirm match", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.MatchFromDomain(match))
}

// UnmatchByBank releases the match a bank transaction participates in.
func (h *MatchingHandler) UnmatchByBank(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.matchUC.UnmatchByBank(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), "failed to unmatch", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnmatchByLedger releases the match a ledger transaction participates in.
func (h *MatchingHandler) UnmatchByLedger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.matchUC.UnmatchByLedger(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), "failed to unmatch", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AutoMatch confirms every unambiguous exact amount-and-date pair.
func (h *MatchingHandler) AutoMatch(w http.ResponseWriter, r *http.Request) {
	result, err := h.matchUC.AutoMatch(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to auto-match", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AutoMatchFromResult(result))
}
