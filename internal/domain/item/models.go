// Package item models a linked institution connection.
package item

import (
	"context"
	"errors"
	"time"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrItemExists   = errors.New("item already linked")
)

// Item is one institution connection. Cursor is nil until the first successful transaction sync.
type Item struct {
	ID              string     `json:"id"`
	UserID          int64      `json:"userId"`
	AccessToken     string     `json:"-"`
	InstitutionID   string     `json:"institutionId"`
	InstitutionName string     `json:"institutionName"`
	Cursor          *string    `json:"-"`
	LastSyncedAt    *time.Time `json:"lastSyncedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// CursorValue returns the stored cursor, or "" before the first sync.
func (i *Item) CursorValue() string {
	if i == nil || i.Cursor == nil {
		return ""
	}
	return *i.Cursor
}

type CreateParams struct {
	ID              string
	UserID          int64
	AccessToken     string
	InstitutionID   string
	InstitutionName string
}

func (p CreateParams) Validate() error {
	if p.ID == "" {
		return errors.New("item ID is required")
	}
	if p.UserID <= 0 {
		return errors.New("valid user ID is required")
	}
	if p.AccessToken == "" {
		return errors.New("access token is required")
	}
	return nil
}

// Repository defines data access for items. The cursor column is written only by the sync store.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Item, error)
	ListAll(ctx context.Context) ([]*Item, error)
}
