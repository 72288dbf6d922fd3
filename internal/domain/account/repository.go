package account

import "context"

// Repository defines the interface for account data access
// This interface is defined in the domain layer, but implemented in the infrastructure layer
type Repository interface {
	// GetByID retrieves an account by its ID
	GetByID(ctx context.Context, id string) (*Account, error)

	// ListByUserID retrieves all accounts for a specific user
	ListByUserID(ctx context.Context, userID int64) ([]*Account, error)

	// ListByItemID retrieves all accounts under one item
	ListByItemID(ctx context.Context, itemID string) ([]*Account, error)

	// Upsert creates or updates an account based on its ID
	Upsert(ctx context.Context, params UpsertParams) (*Account, error)

	// Exists checks if an account with the given ID exists
	Exists(ctx context.Context, id string) (bool, error)
}
