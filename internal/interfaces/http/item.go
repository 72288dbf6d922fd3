package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"finsync/internal/domain/item"
	"finsync/internal/domain/openfinance"
)

// ItemLinker is satisfied by *openfinance.ItemLinkService.
type ItemLinker interface {
	LinkItem(ctx context.Context, publicToken string) (*openfinance.LinkResult, error)
}

// TransactionSyncer is satisfied by *openfinance.TransactionSyncService.
type TransactionSyncer interface {
	SyncTransactions(ctx context.Context, accessToken, itemID string) (*openfinance.TransactionSyncResult, error)
}

// AccountRefresher is satisfied by *openfinance.AccountSyncService.
type AccountRefresher interface {
	FetchAndStoreAccounts(ctx context.Context, accessToken string) (*openfinance.AccountSyncResult, error)
}

type ItemHandler struct {
	items        item.Repository
	linker       ItemLinker
	transactions TransactionSyncer
	accounts     AccountRefresher
	syncTimeout  time.Duration
}

// NewItemHandler creates the item handler. syncTimeout bounds one sync request; zero leaves it to the client.
func NewItemHandler(items item.Repository, linker ItemLinker, transactions TransactionSyncer, accounts AccountRefresher, syncTimeout time.Duration) *ItemHandler {
	return &ItemHandler{
		items:        items,
		linker:       linker,
		transactions: transactions,
		accounts:     accounts,
		syncTimeout:  syncTimeout,
	}
}

type LinkItemRequest struct {
	PublicToken string `json:"publicToken"`
}

// HandleLinkItem exchanges a link-widget public token and stores the new item. POST /api/items
func (h *ItemHandler) HandleLinkItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req LinkItemRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.PublicToken = strings.TrimSpace(req.PublicToken)
	if req.PublicToken == "" {
		writeError(w, http.StatusBadRequest, "publicToken is required")
		return
	}

	result, err := h.linker.LinkItem(r.Context(), req.PublicToken)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// HandleListItems returns the caller's linked items. GET /api/items
func (h *ItemHandler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	items, err := h.items.ListByUserID(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if items == nil {
		items = []*item.Item{}
	}

	writeJSON(w, http.StatusOK, items)
}

// HandleSyncItem runs an incremental transaction sync with the item's stored token. POST /api/items/{id}/sync
func (h *ItemHandler) HandleSyncItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	itemID := r.PathValue("id")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "item ID is required")
		return
	}

	ctx, cancel := h.withSyncTimeout(r.Context())
	defer cancel()

	result, err := h.transactions.SyncTransactions(ctx, "", itemID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleRefreshAccounts re-fetches the item's account snapshot. POST /api/items/{id}/accounts/refresh
func (h *ItemHandler) HandleRefreshAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	itemID := r.PathValue("id")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "item ID is required")
		return
	}

	it, err := h.items.GetByID(r.Context(), itemID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if it.UserID != userID {
		respondError(w, r, openfinance.ErrForbidden)
		return
	}

	ctx, cancel := h.withSyncTimeout(r.Context())
	defer cancel()

	result, err := h.accounts.FetchAndStoreAccounts(ctx, it.AccessToken)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *ItemHandler) withSyncTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.syncTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.syncTimeout)
}
