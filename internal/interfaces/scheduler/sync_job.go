package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"finsync/internal/domain/item"
	"finsync/internal/domain/openfinance"
	"finsync/internal/shared/identity"
	"finsync/internal/shared/logger"
)

// ItemSyncer is satisfied by *openfinance.ItemSyncService.
type ItemSyncer interface {
	SyncItem(ctx context.Context, itemID string) (*openfinance.ItemSyncResult, error)
}

// ItemLister is satisfied by item.Repository.
type ItemLister interface {
	ListAll(ctx context.Context) ([]*item.Item, error)
}

// ItemSyncJob refreshes accounts and then transactions for one item, acting as its owner.
type ItemSyncJob struct {
	itemID string
	userID int64
	syncer ItemSyncer
}

func NewItemSyncJob(itemID string, userID int64, syncer ItemSyncer) *ItemSyncJob {
	return &ItemSyncJob{itemID: itemID, userID: userID, syncer: syncer}
}

func (j *ItemSyncJob) Execute(ctx context.Context) error {
	ctx = identity.WithUserID(ctx, j.userID)
	log := logger.FromContext(ctx).With(slog.String("item_id", j.itemID), slog.Int64("user_id", j.userID))

	result, err := j.syncer.SyncItem(ctx, j.itemID)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	attrs := []any{}
	if result.Accounts != nil {
		attrs = append(attrs, slog.Int("accounts_created", result.Accounts.Created), slog.Int("accounts_updated", result.Accounts.Updated))
	}
	if result.Transactions != nil {
		attrs = append(attrs,
			slog.Int("pages", result.Transactions.Pages),
			slog.Int64("upserted", result.Transactions.Upserted),
			slog.Int64("deleted", result.Transactions.Deleted),
		)
	}
	log.Info("item sync completed", attrs...)

	return nil
}

func (j *ItemSyncJob) UserID() string {
	return strconv.FormatInt(j.userID, 10)
}

func (j *ItemSyncJob) Description() string {
	return fmt.Sprintf("Item sync for %s", j.itemID)
}

// ItemSyncJobs returns a job provider that emits one ItemSyncJob per stored item.
func ItemSyncJobs(items ItemLister, syncer ItemSyncer) func(context.Context) ([]Job, error) {
	return func(ctx context.Context) ([]Job, error) {
		all, err := items.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list items: %w", err)
		}

		jobs := make([]Job, 0, len(all))
		for _, it := range all {
			jobs = append(jobs, NewItemSyncJob(it.ID, it.UserID, syncer))
		}
		return jobs, nil
	}
}
