package openfinance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountSnapshot is the /accounts/get response.
type AccountSnapshot struct {
	Accounts  []Account `json:"accounts"`
	Item      ItemInfo  `json:"item"`
	RequestID string    `json:"request_id"`
}

// ItemInfo describes the institution connection the accounts belong to.
type ItemInfo struct {
	ItemID          string  `json:"item_id"`
	InstitutionID   *string `json:"institution_id"`
	InstitutionName *string `json:"institution_name"`
}

// Account is one account in a snapshot.
type Account struct {
	AccountID    string   `json:"account_id"`
	Balances     Balances `json:"balances"`
	Name         string   `json:"name"`
	OfficialName *string  `json:"official_name"`
	Mask         *string  `json:"mask"`
	Type         string   `json:"type"`
	Subtype      *string  `json:"subtype"`
}

// Balances are nullable; credit accounts often report no available balance.
type Balances struct {
	Available              decimal.NullDecimal `json:"available"`
	Current                decimal.NullDecimal `json:"current"`
	ISOCurrencyCode        *string             `json:"iso_currency_code"`
	UnofficialCurrencyCode *string             `json:"unofficial_currency_code"`
}

// Currency returns the ISO code, falling back to the unofficial code, or "" when
// the provider reports neither.
func (b Balances) Currency() string {
	if b.ISOCurrencyCode != nil {
		return *b.ISOCurrencyCode
	}
	if b.UnofficialCurrencyCode != nil {
		return *b.UnofficialCurrencyCode
	}
	return ""
}

// TransactionDelta is one page of the /transactions/sync response.
type TransactionDelta struct {
	Added      []Transaction        `json:"added"`
	Modified   []Transaction        `json:"modified"`
	Removed    []RemovedTransaction `json:"removed"`
	NextCursor string               `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
	RequestID  string               `json:"request_id"`
}

// RemovedTransaction identifies a transaction the provider no longer reports.
type RemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
}

// Transaction is one transaction in the added or modified set.
type Transaction struct {
	TransactionID           string                   `json:"transaction_id"`
	AccountID               string                   `json:"account_id"`
	Amount                  decimal.Decimal          `json:"amount"`
	ISOCurrencyCode         *string                  `json:"iso_currency_code"`
	UnofficialCurrencyCode  *string                  `json:"unofficial_currency_code"`
	Date                    string                   `json:"date"`
	Datetime                *string                  `json:"datetime"`
	AuthorizedDate          *string                  `json:"authorized_date"`
	AuthorizedDatetime      *string                  `json:"authorized_datetime"`
	Name                    string                   `json:"name"`
	MerchantName            *string                  `json:"merchant_name"`
	PaymentChannel          string                   `json:"payment_channel"`
	Pending                 bool                     `json:"pending"`
	PersonalFinanceCategory *PersonalFinanceCategory `json:"personal_finance_category"`
}

// PersonalFinanceCategory is the provider's two-level category.
type PersonalFinanceCategory struct {
	Primary  string `json:"primary"`
	Detailed string `json:"detailed"`
}

// TokenExchange is the /item/public_token/exchange response.
type TokenExchange struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id"`
}

// Currency returns the ISO code, falling back to the unofficial code.
func (t *Transaction) Currency() string {
	if t.ISOCurrencyCode != nil && *t.ISOCurrencyCode != "" {
		return *t.ISOCurrencyCode
	}
	if t.UnofficialCurrencyCode != nil {
		return *t.UnofficialCurrencyCode
	}
	return ""
}

// GetPostedAt returns datetime when present, otherwise the posting date at UTC midnight.
func (t *Transaction) GetPostedAt() (*time.Time, error) {
	return parseDateOrDatetime(t.Datetime, &t.Date, "date")
}

// GetAuthorizedAt returns authorized_datetime when present, otherwise authorized_date.
func (t *Transaction) GetAuthorizedAt() (*time.Time, error) {
	return parseDateOrDatetime(t.AuthorizedDatetime, t.AuthorizedDate, "authorized_date")
}

func parseDateOrDatetime(datetime, date *string, field string) (*time.Time, error) {
	if datetime != nil && *datetime != "" {
		parsed, err := time.Parse(time.RFC3339, *datetime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s time '%s': %w", field, *datetime, err)
		}
		return &parsed, nil
	}
	if date == nil || *date == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", *date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s '%s': %w", field, *date, err)
	}
	return &parsed, nil
}

// ErrorResponse is the provider's error body.
type ErrorResponse struct {
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message"`
	RequestID      string `json:"request_id"`
}
