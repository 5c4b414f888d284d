package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-assistant/internal/api/middleware"
	"github.com/dvloznov/ledger-assistant/internal/domain"
	"github.com/dvloznov/ledger-assistant/internal/ledger"
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	store ledger.Store
	log   zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(store ledger.Store, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{store: store, log: log}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := domain.Filter{Category: strings.TrimSpace(query.Get("category"))}

	for param, dst := range map[string]**civil.Date{
		"date_start": &filter.DateStart,
		"date_end":   &filter.DateEnd,
	} {
		v := query.Get(param)
		if v == "" {
			continue
		}
		d, err := civil.ParseDate(v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid "+param+" format (expected YYYY-MM-DD)")
			return
		}
		*dst = &d
	}

	if v := query.Get("kind"); v != "" {
		kind, ok := domain.ParseKind(v)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "kind must be income or expense")
			return
		}
		filter.Kind = kind
	}

	transactions, err := h.store.Query(ctx, filter)
	if err != nil {
		h.writeStoreError(w, err, "Failed to list transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var draft domain.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.store.Add(r.Context(), draft)
	if err != nil {
		h.writeStoreError(w, err, "Failed to create transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// UpdateTransaction handles PATCH /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request, id string) {
	var patch domain.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		h.writeStoreError(w, err, "Failed to update transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "Failed to delete transaction")
		return
	}
	if !deleted {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeStoreError maps ledger errors onto HTTP statuses.
func (h *TransactionsHandler) writeStoreError(w http.ResponseWriter, err error, msg string) {
	var (
		verr *domain.ValidationError
		nf   *domain.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		middleware.WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "Invalid transaction",
			"fields": verr.Fields,
		})
	case errors.As(err, &nf):
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusServiceUnavailable, "Ledger is temporarily unavailable")
	default:
		h.log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}

// CategoriesHandler handles category-related endpoints.
type CategoriesHandler struct{}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler() *CategoriesHandler {
	return &CategoriesHandler{}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string][]string{
		"income":  domain.IncomeCategories,
		"expense": domain.ExpenseCategories,
	})
}
