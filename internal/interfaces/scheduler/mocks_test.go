package scheduler

import (
	"context"
	"sync"

	"finsync/internal/domain/item"
	"finsync/internal/domain/openfinance"
)

type MockJob struct {
	ExecuteFunc func(ctx context.Context) error
	user        string
}

func (m *MockJob) Execute(ctx context.Context) error {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx)
	}
	return nil
}

func (m *MockJob) UserID() string      { return m.user }
func (m *MockJob) Description() string { return "mock job for " + m.user }

type MockItemSyncer struct {
	SyncItemFunc func(ctx context.Context, itemID string) (*openfinance.ItemSyncResult, error)

	mu    sync.Mutex
	calls []string
}

func (m *MockItemSyncer) SyncItem(ctx context.Context, itemID string) (*openfinance.ItemSyncResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, itemID)
	m.mu.Unlock()

	if m.SyncItemFunc != nil {
		return m.SyncItemFunc(ctx, itemID)
	}
	return &openfinance.ItemSyncResult{ItemID: itemID}, nil
}

type MockItemLister struct {
	ListAllFunc func(ctx context.Context) ([]*item.Item, error)
}

func (m *MockItemLister) ListAll(ctx context.Context) ([]*item.Item, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return nil, nil
}
