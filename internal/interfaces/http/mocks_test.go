package http

import (
	"context"
	"net/http"

	"finsync/internal/domain/account"
	"finsync/internal/domain/item"
	"finsync/internal/domain/openfinance"
	"finsync/internal/domain/transaction"
	"finsync/internal/shared/identity"
)

type MockItemRepo struct {
	CreateFunc       func(ctx context.Context, params item.CreateParams) (*item.Item, error)
	GetByIDFunc      func(ctx context.Context, id string) (*item.Item, error)
	ListByUserIDFunc func(ctx context.Context, userID int64) ([]*item.Item, error)
	ListAllFunc      func(ctx context.Context) ([]*item.Item, error)
}

func (m *MockItemRepo) Create(ctx context.Context, params item.CreateParams) (*item.Item, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}

func (m *MockItemRepo) GetByID(ctx context.Context, id string) (*item.Item, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, item.ErrItemNotFound
}

func (m *MockItemRepo) ListByUserID(ctx context.Context, userID int64) ([]*item.Item, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockItemRepo) ListAll(ctx context.Context) ([]*item.Item, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return nil, nil
}

type MockAccountRepo struct {
	GetByIDFunc      func(ctx context.Context, id string) (*account.Account, error)
	ListByUserIDFunc func(ctx context.Context, userID int64) ([]*account.Account, error)
	ListByItemIDFunc func(ctx context.Context, itemID string) ([]*account.Account, error)
	UpsertFunc       func(ctx context.Context, params account.UpsertParams) (*account.Account, error)
	ExistsFunc       func(ctx context.Context, id string) (bool, error)
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id string) (*account.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, account.ErrAccountNotFound
}

func (m *MockAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*account.Account, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockAccountRepo) ListByItemID(ctx context.Context, itemID string) ([]*account.Account, error) {
	if m.ListByItemIDFunc != nil {
		return m.ListByItemIDFunc(ctx, itemID)
	}
	return nil, nil
}

func (m *MockAccountRepo) Upsert(ctx context.Context, params account.UpsertParams) (*account.Account, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	return nil, nil
}

func (m *MockAccountRepo) Exists(ctx context.Context, id string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, id)
	}
	return false, nil
}

type MockTransactionRepo struct {
	GetByIDFunc       func(ctx context.Context, id string) (*transaction.Transaction, error)
	ListByUserIDFunc  func(ctx context.Context, userID int64, filter transaction.ListFilter) ([]*transaction.Transaction, error)
	CountByUserIDFunc func(ctx context.Context, userID int64) (int64, error)
}

func (m *MockTransactionRepo) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, transaction.ErrTransactionNotFound
}

func (m *MockTransactionRepo) ListByUserID(ctx context.Context, userID int64, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID, filter)
	}
	return nil, nil
}

func (m *MockTransactionRepo) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	if m.CountByUserIDFunc != nil {
		return m.CountByUserIDFunc(ctx, userID)
	}
	return 0, nil
}

type MockLinker struct {
	LinkItemFunc func(ctx context.Context, publicToken string) (*openfinance.LinkResult, error)
}

func (m *MockLinker) LinkItem(ctx context.Context, publicToken string) (*openfinance.LinkResult, error) {
	if m.LinkItemFunc != nil {
		return m.LinkItemFunc(ctx, publicToken)
	}
	return &openfinance.LinkResult{}, nil
}

type MockTransactionSyncer struct {
	SyncTransactionsFunc func(ctx context.Context, accessToken, itemID string) (*openfinance.TransactionSyncResult, error)
}

func (m *MockTransactionSyncer) SyncTransactions(ctx context.Context, accessToken, itemID string) (*openfinance.TransactionSyncResult, error) {
	if m.SyncTransactionsFunc != nil {
		return m.SyncTransactionsFunc(ctx, accessToken, itemID)
	}
	return &openfinance.TransactionSyncResult{ItemID: itemID}, nil
}

type MockAccountRefresher struct {
	FetchAndStoreAccountsFunc func(ctx context.Context, accessToken string) (*openfinance.AccountSyncResult, error)
}

func (m *MockAccountRefresher) FetchAndStoreAccounts(ctx context.Context, accessToken string) (*openfinance.AccountSyncResult, error) {
	if m.FetchAndStoreAccountsFunc != nil {
		return m.FetchAndStoreAccountsFunc(ctx, accessToken)
	}
	return &openfinance.AccountSyncResult{}, nil
}

// asUser attaches the identity the auth middleware would set.
func asUser(r *http.Request, userID int64) *http.Request {
	return r.WithContext(identity.WithUserID(r.Context(), userID))
}
