package account

import (
	"errors"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	// Account types reported by the aggregator
	accountTypes = map[string]struct{}{
		"depository": {},
		"credit":     {},
		"loan":       {},
		"investment": {},
		"brokerage":  {},
		"other":      {},
	}
)

// maxCurrencyCodeLen bounds unofficial codes (crypto tickers and the like).
const maxCurrencyCodeLen = 16

// Domain errors
var (
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrAccountNotFound    = errors.New("account not found")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidCurrency    = errors.New("valid currency code is required")
)

// Account is one financial account under an item.
type Account struct {
	ID               string              `json:"id"`
	ItemID           string              `json:"itemId"`
	UserID           int64               `json:"userId"`
	Name             string              `json:"name"`
	OfficialName     *string             `json:"officialName,omitempty"`
	Mask             *string             `json:"mask,omitempty"`
	Type             string              `json:"type"`
	Subtype          *string             `json:"subtype,omitempty"`
	AvailableBalance decimal.NullDecimal `json:"availableBalance"`
	CurrentBalance   decimal.NullDecimal `json:"currentBalance"`
	Currency         string              `json:"currency"`
	InstitutionName  string              `json:"institutionName"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// UpsertParams carries one account snapshot; the row is keyed on ID.
type UpsertParams struct {
	ID               string
	ItemID           string
	UserID           int64
	Name             string
	OfficialName     *string
	Mask             *string
	Type             string
	Subtype          *string
	AvailableBalance decimal.NullDecimal
	CurrentBalance   decimal.NullDecimal
	Currency         string
	InstitutionName  string
}

// Validate validates the upsert parameters
func (p UpsertParams) Validate() error {
	if p.ID == "" {
		return errors.New("account ID is required for upsert")
	}
	if p.ItemID == "" {
		return errors.New("item ID is required for upsert")
	}
	if p.UserID <= 0 {
		return errors.New("valid user ID is required for upsert")
	}
	if p.Name == "" {
		return errors.New("account name is required")
	}
	if !IsValidAccountType(p.Type) {
		return ErrInvalidAccountType
	}
	if !IsValidCurrency(p.Currency) {
		return ErrInvalidCurrency
	}
	return nil
}

// IsValidAccountType checks if the provided account type is valid.
func IsValidAccountType(t string) bool {
	_, ok := accountTypes[t]
	return ok
}

// IsValidCurrency reports whether c can be stored as a currency code. ISO 4217
// codes pass, and so do provider-specific unofficial codes: any non-empty token
// without whitespace, up to maxCurrencyCodeLen bytes.
func IsValidCurrency(c string) bool {
	if c == "" || len(c) > maxCurrencyCodeLen {
		return false
	}
	for _, r := range c {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
