package openfinance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"finsync/internal/domain/item"
	"finsync/internal/domain/transaction"
	ofclient "finsync/internal/infrastructure/openfinance"
	"finsync/internal/shared/identity"
	"finsync/internal/shared/keylock"
	"finsync/internal/shared/logger"
)

// ApplyResult reports what one delta application changed.
type ApplyResult struct {
	Upserted int64
	Deleted  int64
}

// SyncStore applies a merged delta and advances the item cursor as one unit.
// Implementations must leave the stored cursor untouched when any step fails,
// and report failures as *StorageWriteError.
type SyncStore interface {
	ApplyTransactionDelta(
		ctx context.Context,
		userID int64,
		itemID string,
		upserts []transaction.UpsertParams,
		removedIDs []string,
		nextCursor string,
	) (*ApplyResult, error)
}

// TransactionSyncResult contains the results of a transaction sync operation
type TransactionSyncResult struct {
	ItemID   string `json:"itemId"`
	Pages    int    `json:"pages"`
	Added    int    `json:"added"`
	Modified int    `json:"modified"`
	Removed  int    `json:"removed"`
	Upserted int64  `json:"upserted"`
	Deleted  int64  `json:"deleted"`
	Cursor   string `json:"-"`
	Message  string `json:"message"`
}

// TransactionSyncOptions tunes the sync loop.
type TransactionSyncOptions struct {
	// MaxPages caps pages per invocation. Zero disables the cap.
	MaxPages        int
	DefaultCurrency string
}

// TransactionSyncService reconciles an item's transactions with the aggregator
type TransactionSyncService struct {
	client          ofclient.ClientInterface
	items           item.Repository
	store           SyncStore
	locker          keylock.Locker
	identity        identity.Resolver
	maxPages        int
	defaultCurrency string
}

// NewTransactionSyncService creates a new transaction sync service
func NewTransactionSyncService(
	client ofclient.ClientInterface,
	items item.Repository,
	store SyncStore,
	locker keylock.Locker,
	resolver identity.Resolver,
	opts TransactionSyncOptions,
) *TransactionSyncService {
	if locker == nil {
		locker = keylock.New()
	}
	if resolver == nil {
		resolver = identity.ContextResolver{}
	}
	return &TransactionSyncService{
		client:          client,
		items:           items,
		store:           store,
		locker:          locker,
		identity:        resolver,
		maxPages:        opts.MaxPages,
		defaultCurrency: opts.DefaultCurrency,
	}
}

// SyncTransactions pages through the item's transaction delta from its stored cursor,
// merges every page and applies the result together with the new cursor.
// An empty accessToken uses the token stored on the item.
// Nothing is written unless every page was fetched.
func (s *TransactionSyncService) SyncTransactions(ctx context.Context, accessToken, itemID string) (*TransactionSyncResult, error) {
	start := time.Now()
	status := statusRejected
	defer func() {
		attrs := metric.WithAttributes(attribute.String("status", status))
		syncTotal.Add(ctx, 1, attrs)
		syncDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	userID, err := s.identity.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).With("item_id", itemID, "user_id", userID)

	unlock, err := s.locker.Lock(ctx, itemID)
	if err != nil {
		return nil, &SyncError{ItemID: itemID, Err: fmt.Errorf("failed to acquire item lock: %w", err)}
	}
	defer unlock()

	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, &SyncError{ItemID: itemID, Err: err}
	}
	if it.UserID != userID {
		return nil, &SyncError{ItemID: itemID, Err: ErrForbidden}
	}

	if accessToken == "" {
		accessToken = it.AccessToken
	}
	if accessToken == "" {
		return nil, &SyncError{ItemID: itemID, Err: ErrMissingAccessToken}
	}

	acc, cursor, pages, err := s.fetchDelta(ctx, accessToken, userID, it.CursorValue())
	syncPages.Record(ctx, int64(pages))
	if err != nil {
		log.Warn("transaction sync aborted before apply", "pages", pages, "error", err)
		status = statusUpstreamError
		return nil, &SyncError{ItemID: itemID, Err: err}
	}

	upserts := acc.Upserts()
	removedIDs := acc.RemovedIDs()

	applied, err := s.store.ApplyTransactionDelta(ctx, userID, itemID, upserts, removedIDs, cursor)
	if err != nil {
		var swe *StorageWriteError
		if !errors.As(err, &swe) {
			err = &StorageWriteError{Step: StepCommit, Err: err}
		}
		log.Error("failed to apply transaction delta", "pages", pages, "error", err)
		status = statusStorageError
		return nil, &SyncError{ItemID: itemID, Err: err}
	}

	result := &TransactionSyncResult{
		ItemID:   itemID,
		Pages:    pages,
		Added:    acc.added,
		Modified: acc.modified,
		Removed:  len(removedIDs),
		Upserted: applied.Upserted,
		Deleted:  applied.Deleted,
		Cursor:   cursor,
	}
	result.Message = fmt.Sprintf("Synced item %s: %d upserted, %d removed across %d page(s)",
		itemID, result.Upserted, result.Deleted, pages)

	status = statusSuccess
	log.Info("transaction sync complete",
		"pages", pages,
		"added", result.Added,
		"modified", result.Modified,
		"removed", result.Removed,
		"duration", time.Since(start))

	return result, nil
}

// fetchDelta runs the pagination loop. It returns the merged delta, the last page's cursor and the number of pages fetched.
func (s *TransactionSyncService) fetchDelta(ctx context.Context, accessToken string, userID int64, cursor string) (*deltaAccumulator, string, int, error) {
	acc := newDeltaAccumulator(userID, s.defaultCurrency)
	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, "", pages, &UpstreamFetchError{Stage: StageTransactionPage, Page: pages + 1, Err: err}
		}
		if s.maxPages > 0 && pages >= s.maxPages {
			return nil, "", pages, fmt.Errorf("%w (%d)", ErrPageLimitExceeded, s.maxPages)
		}

		page, err := s.client.FetchTransactionDelta(ctx, accessToken, cursor)
		pages++
		if err != nil {
			return nil, "", pages, &UpstreamFetchError{Stage: StageTransactionPage, Page: pages, Err: err}
		}
		if err := acc.addPage(page); err != nil {
			return nil, "", pages, &UpstreamFetchError{Stage: StageTransactionPage, Page: pages, Err: err}
		}

		cursor = page.NextCursor
		if !page.HasMore {
			return acc, cursor, pages, nil
		}
	}
}
