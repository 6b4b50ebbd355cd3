package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankmatch/internal/adapter/http/dto"
	"github.com/iho/bankmatch/internal/domain"
	"github.com/iho/bankmatch/internal/usecase"
)

// maxImportSize caps the multipart form memory for statement uploads.
const maxImportSize = 32 << 20

// BankTransactionService defines the behavior needed by BankTransactionHandler.
type BankTransactionService interface {
	CreateBankTransaction(ctx context.Context, input usecase.CreateBankTransactionInput) (*domain.BankTransaction, error)
	GetBankTransaction(ctx context.Context, id string) (*domain.BankTransaction, error)
	ListBankTransactions(ctx context.Context, filter domain.ListFilter) ([]*domain.BankTransaction, error)
	UpdateBankTransaction(ctx context.Context, id string, input usecase.CreateBankTransactionInput) (*domain.BankTransaction, error)
	DeleteBankTransaction(ctx context.Context, id string) error
}

// ImportService ingests bank statement CSV files.
type ImportService interface {
	Import(ctx context.Context, r io.Reader, bankName, accountNumber string) (*usecase.ImportResult, error)
}

// ReportService writes unmatched bank activity as CSV.
type ReportService interface {
	WriteUnmatchedCSV(ctx context.Context, w io.Writer, bucket domain.Bucket) (int, error)
}

// BankTransactionHandler handles bank transaction HTTP requests.
type BankTransactionHandler struct {
	bankTxUC BankTransactionService
	importUC ImportService
	reportUC ReportService
}

// NewBankTransactionHandler creates a new BankTransactionHandler.
func NewBankTransactionHandler(bankTxUC BankTransactionService, importUC ImportService, reportUC ReportService) *BankTransactionHandler {
	return &BankTransactionHandler{
		bankTxUC: bankTxUC,
		importUC: importUC,
		reportUC: reportUC,
	}
}

// Create records a single bank transaction.
func (h *BankTransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBankTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bank transaction", err.Error())
		return
	}

	txn, err := h.bankTxUC.CreateBankTransaction(r.Context(), input)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create bank transaction", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.BankTransactionFromDomain(txn))
}

// Get retrieves a bank transaction by ID.
func (h *BankTransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	txn, err := h.bankTxUC.GetBankTransaction(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get bank transaction", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BankTransactionFromDomain(txn))
}

// List lists bank transactions with optional date-range and match state
// filters.
func (h *BankTransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter", err.Error())
		return
	}

	txns, err := h.bankTxUC.ListBankTransactions(r.Context(), filter)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list bank transactions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListBankTransactionsResponse{
		BankTransactions: dto.BankTransactionsFromDomain(txns),
		Total:            len(txns),
	})
}

// Update rewrites the editable fields of a bank transaction.
func (h *BankTransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.CreateBankTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bank transaction", err.Error())
		return
	}

	txn, err := h.bankTxUC.UpdateBankTransaction(r.Context(), id, input)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to update bank transaction", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BankTransactionFromDomain(txn))
}

// Delete removes a bank transaction.
func (h *BankTransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.bankTxUC.DeleteBankTransaction(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), "failed to delete bank transaction", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Import ingests a bank statement CSV uploaded as multipart form data.
// The whole file is stored atomically, a single bad row rejects the
// upload.
func (h *BankTransactionHandler) Import(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}

	file, _, err := r.FormFile("statement")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing statement file", err.Error())
		return
	}
	defer file.Close()

	bankName := r.FormValue("bank_name")
	accountNumber := r.FormValue("account_number")

	result, err := h.importUC.Import(r.Context(), file, bankName, accountNumber)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to import statement", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.ImportFromResult(result))
}

// Report streams unmatched bank transactions for a period as a CSV
// download.
func (h *BankTransactionHandler) Report(w http.ResponseWriter, r *http.Request) {
	bucket, err := domain.ParseBucket(
		domain.BucketKind(r.URL.Query().Get("filter_type")),
		r.URL.Query().Get("filter_value"),
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter", err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="unmatched-%s.csv"`, time.Now().Format("2006-01-02")))

	if _, err := h.reportUC.WriteUnmatchedCSV(r.Context(), w, bucket); err != nil {
		// Headers may already be flushed, nothing useful left to send.
		return
	}
}
