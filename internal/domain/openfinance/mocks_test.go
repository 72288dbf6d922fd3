package openfinance

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/shopspring/decimal"

	"finsync/internal/domain/account"
	"finsync/internal/domain/item"
	"finsync/internal/domain/transaction"
	ofclient "finsync/internal/infrastructure/openfinance"
)

// MockClient implements ofclient.ClientInterface
type MockClient struct {
	FetchAccountSnapshotFunc  func(ctx context.Context, accessToken string) (*ofclient.AccountSnapshot, error)
	FetchTransactionDeltaFunc func(ctx context.Context, accessToken, cursor string) (*ofclient.TransactionDelta, error)
	ExchangePublicTokenFunc   func(ctx context.Context, publicToken string) (*ofclient.TokenExchange, error)
}

func (m *MockClient) FetchAccountSnapshot(ctx context.Context, accessToken string) (*ofclient.AccountSnapshot, error) {
	if m.FetchAccountSnapshotFunc != nil {
		return m.FetchAccountSnapshotFunc(ctx, accessToken)
	}
	return &ofclient.AccountSnapshot{}, nil
}

func (m *MockClient) FetchTransactionDelta(ctx context.Context, accessToken, cursor string) (*ofclient.TransactionDelta, error) {
	if m.FetchTransactionDeltaFunc != nil {
		return m.FetchTransactionDeltaFunc(ctx, accessToken, cursor)
	}
	return &ofclient.TransactionDelta{NextCursor: cursor}, nil
}

func (m *MockClient) ExchangePublicToken(ctx context.Context, publicToken string) (*ofclient.TokenExchange, error) {
	if m.ExchangePublicTokenFunc != nil {
		return m.ExchangePublicTokenFunc(ctx, publicToken)
	}
	return nil, errors.New("not implemented")
}

// pagedClient serves a fixed sequence of pages keyed by the cursor that requests them.
func pagedClient(pages map[string]*ofclient.TransactionDelta, calls *[]string) *MockClient {
	return &MockClient{
		FetchTransactionDeltaFunc: func(ctx context.Context, accessToken, cursor string) (*ofclient.TransactionDelta, error) {
			if calls != nil {
				*calls = append(*calls, cursor)
			}
			page, ok := pages[cursor]
			if !ok {
				return nil, errors.New("unexpected cursor " + cursor)
			}
			return page, nil
		},
	}
}

// MockItemRepo implements item.Repository
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
	return &item.Item{
		ID:              params.ID,
		UserID:          params.UserID,
		AccessToken:     params.AccessToken,
		InstitutionID:   params.InstitutionID,
		InstitutionName: params.InstitutionName,
	}, nil
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

// MockAccountRepo implements account.Repository
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
	return &account.Account{ID: params.ID}, nil
}

func (m *MockAccountRepo) Exists(ctx context.Context, id string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, id)
	}
	return false, nil
}

// memStore is an in-memory SyncStore that commits a delta only when every step succeeds.
type memStore struct {
	mu           sync.Mutex
	transactions map[string]transaction.UpsertParams
	cursors      map[string]*string
	failStep     string
	applyCalls   int
}

func newMemStore(itemIDs ...string) *memStore {
	s := &memStore{
		transactions: make(map[string]transaction.UpsertParams),
		cursors:      make(map[string]*string),
	}
	for _, id := range itemIDs {
		s.cursors[id] = nil
	}
	return s
}

func (s *memStore) ApplyTransactionDelta(
	ctx context.Context,
	userID int64,
	itemID string,
	upserts []transaction.UpsertParams,
	removedIDs []string,
	nextCursor string,
) (*ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyCalls++

	staged := maps.Clone(s.transactions)
	for _, u := range upserts {
		staged[u.ID] = u
	}
	if s.failStep == StepUpsert {
		return nil, &StorageWriteError{Step: StepUpsert, Err: errors.New("simulated upsert failure")}
	}

	var deleted int64
	for _, id := range removedIDs {
		if _, ok := staged[id]; ok {
			delete(staged, id)
			deleted++
		}
	}
	if s.failStep == StepDelete {
		return nil, &StorageWriteError{Step: StepDelete, Err: errors.New("simulated delete failure")}
	}

	if _, ok := s.cursors[itemID]; !ok {
		return nil, &StorageWriteError{Step: StepCursor, Err: item.ErrItemNotFound}
	}
	if s.failStep == StepCursor {
		return nil, &StorageWriteError{Step: StepCursor, Err: errors.New("simulated cursor failure")}
	}

	s.transactions = staged
	c := nextCursor
	s.cursors[itemID] = &c
	return &ApplyResult{Upserted: int64(len(upserts)), Deleted: deleted}, nil
}

func (s *memStore) cursor(itemID string) *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursors[itemID]
}

func (s *memStore) ids() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.transactions))
	for id := range s.transactions {
		out[id] = true
	}
	return out
}

// itemsBackedBy returns an item repo whose items read their cursor from store.
func itemsBackedBy(store *memStore, items ...*item.Item) *MockItemRepo {
	byID := make(map[string]*item.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return &MockItemRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*item.Item, error) {
			it, ok := byID[id]
			if !ok {
				return nil, item.ErrItemNotFound
			}
			cp := *it
			cp.Cursor = store.cursor(id)
			return &cp, nil
		},
		ListAllFunc: func(ctx context.Context) ([]*item.Item, error) {
			out := make([]*item.Item, 0, len(items))
			for _, it := range items {
				cp := *it
				out = append(out, &cp)
			}
			return out, nil
		},
	}
}

func apiTx(id string, amount string) ofclient.Transaction {
	return ofclient.Transaction{
		TransactionID:  id,
		AccountID:      "acc-1",
		Amount:         decimal.RequireFromString(amount),
		Date:           "2026-03-01",
		Name:           "tx " + id,
		PaymentChannel: "online",
	}
}

func strPtr(s string) *string { return &s }
