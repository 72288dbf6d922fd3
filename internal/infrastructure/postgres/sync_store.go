package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"finsync/internal/domain/item"
	"finsync/internal/domain/openfinance"
	"finsync/internal/domain/transaction"
)

// SyncStore writes a merged transaction delta and the item's new cursor in one database transaction.
type SyncStore struct {
	db *DB
}

var _ openfinance.SyncStore = (*SyncStore)(nil)

func NewSyncStore(db *DB) *SyncStore {
	return &SyncStore{db: db}
}

const upsertTransactionQuery = `
	INSERT INTO transactions (id, item_id, account_id, user_id, amount, authorized_at, posted_at,
	                          category_primary, category_detailed, name, merchant_name,
	                          payment_channel, iso_currency_code, pending)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO UPDATE SET
		item_id = EXCLUDED.item_id,
		account_id = EXCLUDED.account_id,
		user_id = EXCLUDED.user_id,
		amount = EXCLUDED.amount,
		authorized_at = EXCLUDED.authorized_at,
		posted_at = EXCLUDED.posted_at,
		category_primary = EXCLUDED.category_primary,
		category_detailed = EXCLUDED.category_detailed,
		name = EXCLUDED.name,
		merchant_name = EXCLUDED.merchant_name,
		payment_channel = EXCLUDED.payment_channel,
		iso_currency_code = EXCLUDED.iso_currency_code,
		pending = EXCLUDED.pending,
		updated_at = CURRENT_TIMESTAMP`

const deleteTransactionsQuery = `DELETE FROM transactions WHERE item_id = $1 AND id = ANY($2)`

const advanceCursorQuery = `
	UPDATE items
	SET sync_cursor = $1, last_synced_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
	WHERE id = $2 AND user_id = $3`

// ApplyTransactionDelta upserts, deletes and advances the cursor, in that order.
// Any failure rolls the whole unit back and is returned as *openfinance.StorageWriteError.
func (s *SyncStore) ApplyTransactionDelta(
	ctx context.Context,
	userID int64,
	itemID string,
	upserts []transaction.UpsertParams,
	removedIDs []string,
	nextCursor string,
) (*openfinance.ApplyResult, error) {
	tx, ctx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &openfinance.StorageWriteError{Step: openfinance.StepCommit, Err: err}
	}
	defer tx.Rollback()

	result := &openfinance.ApplyResult{}

	for _, u := range upserts {
		if err := u.Validate(); err != nil {
			return nil, &openfinance.StorageWriteError{Step: openfinance.StepUpsert, Err: fmt.Errorf("transaction %s: %w", u.ID, err)}
		}
		_, err := tx.ExecContext(ctx, upsertTransactionQuery,
			u.ID, itemID, u.AccountID, userID, u.Amount, nullTime(u.AuthorizedAt), nullTime(u.PostedAt),
			u.CategoryPrimary, u.CategoryDetailed, u.Name, u.MerchantName,
			u.PaymentChannel, u.Currency, u.Pending,
		)
		if err != nil {
			return nil, &openfinance.StorageWriteError{Step: openfinance.StepUpsert, Err: fmt.Errorf("transaction %s: %w", u.ID, err)}
		}
		result.Upserted++
	}

	if len(removedIDs) > 0 {
		res, err := tx.ExecContext(ctx, deleteTransactionsQuery, itemID, pq.Array(removedIDs))
		if err != nil {
			return nil, &openfinance.StorageWriteError{Step: openfinance.StepDelete, Err: err}
		}
		deleted, err := res.RowsAffected()
		if err != nil {
			return nil, &openfinance.StorageWriteError{Step: openfinance.StepDelete, Err: err}
		}
		result.Deleted = deleted
	}

	res, err := tx.ExecContext(ctx, advanceCursorQuery, nextCursor, itemID, userID)
	if err != nil {
		return nil, &openfinance.StorageWriteError{Step: openfinance.StepCursor, Err: err}
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, &openfinance.StorageWriteError{Step: openfinance.StepCursor, Err: err}
	}
	if rows == 0 {
		return nil, &openfinance.StorageWriteError{Step: openfinance.StepCursor, Err: item.ErrItemNotFound}
	}

	if err := tx.Commit(); err != nil {
		return nil, &openfinance.StorageWriteError{Step: openfinance.StepCommit, Err: fmt.Errorf("failed to commit: %w", err)}
	}

	return result, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
