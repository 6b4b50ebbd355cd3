package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/iho/bankmatch/internal/adapter/http/dto"
	"github.com/iho/bankmatch/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes. Conflicts that
// survived the coordinator's retry surface as 409 so clients re-read
// instead of blindly replaying.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrBankTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyMatched),
		errors.Is(err, domain.ErrNotMatched),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, domain.ErrDateOutOfRange),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidTransactionType),
		errors.Is(err, domain.ErrInvalidBucket),
		errors.Is(err, domain.ErrInvalidMatchState),
		errors.Is(err, domain.ErrInvalidSide):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// listFilterFromRequest extracts the common listing filter parameters.
func listFilterFromRequest(r *http.Request) (domain.ListFilter, error) {
	q := r.URL.Query()

	return dto.ListFilterFromQuery(
		q.Get("filter_type"),
		q.Get("filter_value"),
		q.Get("match_state"),
		parseIntQuery(r, "limit", 0),
		parseIntQuery(r, "offset", 0),
	)
}
