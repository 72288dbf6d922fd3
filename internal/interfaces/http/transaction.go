package http

import (
	"net/http"
	"strconv"

	"finsync/internal/domain/account"
	"finsync/internal/domain/transaction"
)

type TransactionHandler struct {
	transactions   transaction.Repository
	accountService *account.Service
}

func NewTransactionHandler(transactions transaction.Repository, accountService *account.Service) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, accountService: accountService}
}

type TransactionListResponse struct {
	Transactions []*transaction.Transaction `json:"transactions"`
	Total        int64                      `json:"total"`
	Limit        int                        `json:"limit"`
	Offset       int                        `json:"offset"`
}

// HandleListTransactions pages through the caller's transactions,
// optionally narrowed by ?accountId=. GET /api/transactions/
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := transaction.ListFilter{AccountID: q.Get("accountId"), Limit: 50}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	if filter.AccountID != "" {
		if _, err := h.accountService.GetAccount(r.Context(), filter.AccountID, userID); err != nil {
			respondError(w, r, err)
			return
		}
	}

	txns, err := h.transactions.ListByUserID(r.Context(), userID, filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	total, err := h.transactions.CountByUserID(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if txns == nil {
		txns = []*transaction.Transaction{}
	}

	writeJSON(w, http.StatusOK, TransactionListResponse{
		Transactions: txns,
		Total:        total,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	})
}

// HandleGetTransaction returns one of the caller's transactions. GET /api/transactions/{id}
func (h *TransactionHandler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	txn, err := h.transactions.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if txn.UserID != userID {
		respondError(w, r, account.ErrForbidden)
		return
	}

	writeJSON(w, http.StatusOK, txn)
}
