package openfinance

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned when the item belongs to another user.
	ErrForbidden = errors.New("item belongs to another user")
	// ErrPageLimitExceeded is returned when the provider keeps reporting more pages past the configured cap.
	ErrPageLimitExceeded = errors.New("transaction sync exceeded page limit")
	// ErrMissingAccessToken is returned when neither the caller nor the stored item supplies a credential.
	ErrMissingAccessToken = errors.New("item has no access token")
)

// Fetch stages
const (
	StageAccountSnapshot = "account_snapshot"
	StageTransactionPage = "transaction_page"
	StageTokenExchange   = "token_exchange"
)

// Storage steps
const (
	StepUpsert        = "upsert"
	StepDelete        = "delete"
	StepCursor        = "cursor"
	StepCommit        = "commit"
	StepAccountUpsert = "account_upsert"
	StepItemCreate    = "item_create"
)

// UpstreamFetchError reports a failed aggregator call. Page is 1-based and only set for transaction pages.
type UpstreamFetchError struct {
	Stage string
	Page  int
	Err   error
}

func (e *UpstreamFetchError) Error() string {
	if e.Stage == StageTransactionPage {
		return fmt.Sprintf("upstream fetch failed at %s %d: %v", e.Stage, e.Page, e.Err)
	}
	return fmt.Sprintf("upstream fetch failed at %s: %v", e.Stage, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// StorageWriteError reports a failed write and the step it failed at.
type StorageWriteError struct {
	Step string
	Err  error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("storage write failed at %s: %v", e.Step, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// SyncError wraps any failure of a whole sync invocation for one item.
type SyncError struct {
	ItemID string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed for item %s: %v", e.ItemID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
