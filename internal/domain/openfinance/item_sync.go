package openfinance

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finsync/internal/domain/item"
	"finsync/internal/shared/identity"
	"finsync/internal/shared/logger"
)

// ItemSyncResult is the outcome of a full refresh of one item.
type ItemSyncResult struct {
	ItemID       string                 `json:"itemId"`
	UserID       int64                  `json:"userId"`
	Accounts     *AccountSyncResult     `json:"accounts,omitempty"`
	Transactions *TransactionSyncResult `json:"transactions,omitempty"`
	Err          error                  `json:"-"`
	Duration     time.Duration          `json:"duration"`
}

// ItemSyncService refreshes accounts and then transactions for whole items.
type ItemSyncService struct {
	items        item.Repository
	accounts     *AccountSyncService
	transactions *TransactionSyncService
	identity     identity.Resolver
	concurrency  int
}

// NewItemSyncService creates an item sync service. concurrency bounds SyncAllItems.
func NewItemSyncService(items item.Repository, accounts *AccountSyncService, transactions *TransactionSyncService, resolver identity.Resolver, concurrency int) *ItemSyncService {
	if resolver == nil {
		resolver = identity.ContextResolver{}
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ItemSyncService{
		items:        items,
		accounts:     accounts,
		transactions: transactions,
		identity:     resolver,
		concurrency:  concurrency,
	}
}

// SyncItem refreshes the item's accounts, then syncs its transactions, using the stored access token.
func (s *ItemSyncService) SyncItem(ctx context.Context, itemID string) (*ItemSyncResult, error) {
	start := time.Now()

	userID, err := s.identity.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, &SyncError{ItemID: itemID, Err: err}
	}
	if it.UserID != userID {
		return nil, &SyncError{ItemID: itemID, Err: ErrForbidden}
	}

	result := &ItemSyncResult{ItemID: itemID, UserID: userID}

	accounts, err := s.accounts.FetchAndStoreAccounts(ctx, it.AccessToken)
	if err != nil {
		return nil, &SyncError{ItemID: itemID, Err: fmt.Errorf("account refresh: %w", err)}
	}
	result.Accounts = accounts

	transactions, err := s.transactions.SyncTransactions(ctx, it.AccessToken, itemID)
	if err != nil {
		return nil, err
	}
	result.Transactions = transactions
	result.Duration = time.Since(start)

	return result, nil
}

// SyncAllItems syncs every stored item on behalf of its owner. Items are independent:
// one failure is recorded on its result and does not stop the others.
func (s *ItemSyncService) SyncAllItems(ctx context.Context) ([]*ItemSyncResult, error) {
	items, err := s.items.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	results := make([]*ItemSyncResult, len(items))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, it := range items {
		g.Go(func() error {
			start := time.Now()
			itemCtx := identity.WithUserID(ctx, it.UserID)

			res, err := s.SyncItem(itemCtx, it.ID)
			if err != nil {
				logger.FromContext(ctx).Error("item sync failed", "item_id", it.ID, "user_id", it.UserID, "error", err)
				res = &ItemSyncResult{ItemID: it.ID, UserID: it.UserID, Err: err}
			}
			res.Duration = time.Since(start)
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logger.FromContext(ctx).Info("synced all items", "items", len(items), "failed", failed)

	return results, nil
}
