package account

import (
	"context"
	"errors"
)

// Service contains the business logic for account operations
type Service struct {
	repo            Repository
	defaultCurrency string
}

// NewService creates a new account service. defaultCurrency fills in accounts
// the provider reports without an ISO currency code.
func NewService(repo Repository, defaultCurrency string) *Service {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &Service{repo: repo, defaultCurrency: defaultCurrency}
}

// GetAccount retrieves an account by ID and verifies user ownership
func (s *Service) GetAccount(ctx context.Context, accountID string, userID int64) (*Account, error) {
	acc, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if acc.UserID != userID {
		return nil, ErrForbidden
	}

	return acc, nil
}

// ListAccountsByUserID retrieves all accounts for a specific user
func (s *Service) ListAccountsByUserID(ctx context.Context, userID int64) ([]*Account, error) {
	if userID <= 0 {
		return nil, errors.New("valid user ID is required")
	}

	return s.repo.ListByUserID(ctx, userID)
}

// ListAccountsByItemID retrieves the accounts of one item
func (s *Service) ListAccountsByItemID(ctx context.Context, itemID string) ([]*Account, error) {
	return s.repo.ListByItemID(ctx, itemID)
}

// UpsertAccount creates or updates an account with validation
func (s *Service) UpsertAccount(ctx context.Context, params UpsertParams) (*Account, error) {
	if params.Currency == "" {
		params.Currency = s.defaultCurrency
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	return s.repo.Upsert(ctx, params)
}

// AccountExists checks if an account exists
func (s *Service) AccountExists(ctx context.Context, accountID string) (bool, error) {
	return s.repo.Exists(ctx, accountID)
}
