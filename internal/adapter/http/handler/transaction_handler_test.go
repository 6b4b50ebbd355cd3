package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/bankmatch/internal/adapter/http/dto"
	"github.com/iho/bankmatch/internal/domain"
	"github.com/iho/bankmatch/internal/usecase"
)

func setChiURLParam(r *http.Request, key, value string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{
			Keys:   []string{key},
			Values: []string{value},
		},
	}))
}

func setChiURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := &chi.Context{}
	for k, v := range params {
		rctx.URLParams.Keys = append(rctx.URLParams.Keys, k)
		rctx.URLParams.Values = append(rctx.URLParams.Values, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type transactionServiceStub struct {
	createFn func(ctx context.Context, input usecase.CreateTransactionInput) (*domain.LedgerTransaction, error)
	getFn    func(ctx context.Context, id string) (*domain.LedgerTransaction, error)
	listFn   func(ctx context.Context, filter domain.ListFilter) ([]*domain.LedgerTransaction, error)
	updateFn func(ctx context.Context, id string, input usecase.CreateTransactionInput) (*domain.LedgerTransaction, error)
	deleteFn func(ctx context.Context, id string) error
}

func (s *transactionServiceStub) CreateTransaction(ctx context.Context, input usecase.CreateTransactionInput) (*domain.LedgerTransaction, error) {
	if s.createFn == nil {
		return nil, nil
	}
	return s.createFn(ctx, input)
}

func (s *transactionServiceStub) GetTransaction(ctx context.Context, id string) (*domain.LedgerTransaction, error) {
	if s.getFn == nil {
		return nil, nil
	}
	return s.getFn(ctx, id)
}

func (s *transactionServiceStub) ListTransactions(ctx context.Context, filter domain.ListFilter) ([]*domain.LedgerTransaction, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, filter)
}

func (s *transactionServiceStub) UpdateTransaction(ctx context.Context, id string, input usecase.CreateTransactionInput) (*domain.LedgerTransaction, error) {
	if s.updateFn == nil {
		return nil, nil
	}
	return s.updateFn(ctx, id, input)
}

func (s *transactionServiceStub) DeleteTransaction(ctx context.Context, id string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}

func TestTransactionHandler_Create_Success(t *testing.T) {
	txn := &domain.LedgerTransaction{
		ID:     "tx-1",
		Date:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Type:   domain.TransactionTypeExpense,
		Amount: decimal.NewFromInt(42),
	}
	var captured usecase.CreateTransactionInput

	handler := NewTransactionHandler(&transactionServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateTransactionInput) (*domain.LedgerTransaction, error) {
			captured = input
			return txn, nil
		},
	})

	body, _ := json.Marshal(dto.CreateTransactionRequest{
		Date:     "2024-03-10",
		Type:     "expense",
		Category: "groceries",
		Amount:   decimal.NewFromInt(42),
	})

	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	if captured.Category != "groceries" || captured.Type != domain.TransactionTypeExpense {
		t.Fatalf("expected input to match request, got %+v", captured)
	}

	var resp dto.TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "tx-1" {
		t.Fatalf("expected transaction ID tx-1, got %s", resp.ID)
	}
	if resp.Date != "2024-03-10" {
		t.Fatalf("expected plain date string, got %s", resp.Date)
	}
}

func TestTransactionHandler_Create_InvalidBody(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateTransactionInput) (*domain.LedgerTransaction, error) {
			t.Fatal("CreateTransaction should not be called")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewBufferString("{bad json"))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransactionHandler_Create_InvalidDate(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateTransactionInput) (*domain.LedgerTransaction, error) {
			t.Fatal("CreateTransaction should not be called on a bad date")
			return nil, nil
		},
	})

	body, _ := json.Marshal(dto.CreateTransactionRequest{
		Date:   "10.03.2024",
		Type:   "expense",
		Amount: decimal.NewFromInt(42),
	})
	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransactionHandler_Get(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.LedgerTransaction, error) {
			return &domain.LedgerTransaction{ID: id}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/transactions/tx-1", nil)
	req = setChiURLParam(req, "id", "tx-1")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTransactionHandler_Get_NotFound(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.LedgerTransaction, error) {
			return nil, domain.ErrTransactionNotFound
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/transactions/missing", nil)
	req = setChiURLParam(req, "id", "missing")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTransactionHandler_List_PassesFilter(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		listFn: func(ctx context.Context, filter domain.ListFilter) ([]*domain.LedgerTransaction, error) {
			if filter.Bucket.Kind != domain.BucketMonth {
				t.Fatalf("expected month bucket, got %q", filter.Bucket.Kind)
			}
			if filter.MatchState != domain.MatchStateUnmatched {
				t.Fatalf("expected unmatched filter, got %q", filter.MatchState)
			}
			if filter.Limit != 5 {
				t.Fatalf("expected limit 5, got %d", filter.Limit)
			}
			return []*domain.LedgerTransaction{{ID: "tx-1"}, {ID: "tx-2"}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet,
		"/transactions?filter_type=month&filter_value=2024-03&match_state=unmatched&limit=5", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.ListTransactionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected total 2, got %d", resp.Total)
	}
}

func TestTransactionHandler_List_InvalidBucket(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		listFn: func(ctx context.Context, filter domain.ListFilter) ([]*domain.LedgerTransaction, error) {
			t.Fatal("ListTransactions should not be called")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/transactions?filter_type=month&filter_value=bogus", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransactionHandler_Update(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		updateFn: func(ctx context.Context, id string, input usecase.CreateTransactionInput) (*domain.LedgerTransaction, error) {
			if id != "tx-1" {
				t.Fatalf("expected id tx-1, got %s", id)
			}
			return &domain.LedgerTransaction{ID: id, Note: input.Note}, nil
		},
	})

	body, _ := json.Marshal(dto.CreateTransactionRequest{
		Date:   "2024-03-10",
		Type:   "income",
		Note:   "updated",
		Amount: decimal.NewFromInt(10),
	})
	req := httptest.NewRequest(http.MethodPut, "/transactions/tx-1", bytes.NewReader(body))
	req = setChiURLParam(req, "id", "tx-1")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTransactionHandler_Delete(t *testing.T) {
	var deleted string

	handler := NewTransactionHandler(&transactionServiceStub{
		deleteFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/transactions/tx-1", nil)
	req = setChiURLParam(req, "id", "tx-1")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if deleted != "tx-1" {
		t.Fatalf("expected delete of tx-1, got %q", deleted)
	}
}
