package transaction

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// Transaction is one provider transaction. ID is the provider's transaction_id and the upsert key.
type Transaction struct {
	ID               string          `json:"id"`
	AccountID        string          `json:"accountId"`
	UserID           int64           `json:"userId"`
	Amount           decimal.Decimal `json:"amount"`
	AuthorizedAt     *time.Time      `json:"authorizedAt,omitempty"`
	PostedAt         *time.Time      `json:"postedAt,omitempty"`
	CategoryPrimary  *string         `json:"categoryPrimary,omitempty"`
	CategoryDetailed *string         `json:"categoryDetailed,omitempty"`
	Name             string          `json:"name"`
	MerchantName     *string         `json:"merchantName,omitempty"`
	PaymentChannel   string          `json:"paymentChannel"`
	Currency         string          `json:"currency"`
	Pending          bool            `json:"pending"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// DisplayName prefers the merchant name over the raw description.
func (t *Transaction) DisplayName() string {
	if t.MerchantName != nil && *t.MerchantName != "" {
		return *t.MerchantName
	}
	return t.Name
}

// ListFilter narrows a user's transaction listing.
type ListFilter struct {
	AccountID string
	Limit     int
	Offset    int
}

// UpsertParams is one row of an added or modified delta, keyed on ID.
type UpsertParams struct {
	ID               string
	AccountID        string
	UserID           int64
	Amount           decimal.Decimal
	AuthorizedAt     *time.Time
	PostedAt         *time.Time
	CategoryPrimary  *string
	CategoryDetailed *string
	Name             string
	MerchantName     *string
	PaymentChannel   string
	Currency         string
	Pending          bool
}

// Validate validates the upsert parameters
func (p UpsertParams) Validate() error {
	if p.ID == "" {
		return errors.New("transaction ID is required")
	}
	if p.AccountID == "" {
		return errors.New("account ID is required")
	}
	if p.UserID <= 0 {
		return errors.New("valid user ID is required")
	}
	return nil
}
