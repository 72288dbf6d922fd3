package transaction

import "context"

// Repository defines read access to synchronized transactions.
// Writes go through the sync store so they share the cursor's database transaction.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Transaction, error)
	ListByUserID(ctx context.Context, userID int64, filter ListFilter) ([]*Transaction, error)
	CountByUserID(ctx context.Context, userID int64) (int64, error)
}
