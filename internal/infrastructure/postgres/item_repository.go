package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finsync/internal/domain/item"
	"finsync/internal/infrastructure/crypto"
)

// ItemRepository implements item.Repository. Access tokens are sealed before they reach the table
// and opened only when an item is read back.
type ItemRepository struct {
	db        *DB
	encryptor *crypto.Encryptor
}

var _ item.Repository = (*ItemRepository)(nil)

func NewItemRepository(db *DB, encryptor *crypto.Encryptor) *ItemRepository {
	return &ItemRepository{db: db, encryptor: encryptor}
}

const itemColumns = `id, user_id, access_token, institution_id, institution_name, sync_cursor, last_synced_at, created_at, updated_at`

func (r *ItemRepository) scanItem(row rowScanner) (*item.Item, error) {
	var it item.Item
	var sealed string
	var cursor sql.NullString
	var lastSynced sql.NullTime

	err := row.Scan(
		&it.ID, &it.UserID, &sealed, &it.InstitutionID, &it.InstitutionName,
		&cursor, &lastSynced, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	token, err := r.encryptor.Decrypt(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token for item %s: %w", it.ID, err)
	}
	it.AccessToken = token
	it.Cursor = stringPtr(cursor)
	it.LastSyncedAt = timePtr(lastSynced)

	return &it, nil
}

// Create stores a newly linked item. Linking an item ID that already exists returns item.ErrItemExists.
func (r *ItemRepository) Create(ctx context.Context, params item.CreateParams) (*item.Item, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	sealed, err := r.encryptor.Encrypt(params.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	query := `
		INSERT INTO items (id, user_id, access_token, institution_id, institution_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + itemColumns

	it, err := r.scanItem(r.db.QueryRowContext(
		ctx, query,
		params.ID, params.UserID, sealed, params.InstitutionID, params.InstitutionName,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, item.ErrItemExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return it, nil
}

// GetByID retrieves an item by its ID
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*item.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	it, err := r.scanItem(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, item.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return it, nil
}

// ListByUserID retrieves all items linked by a user
func (r *ItemRepository) ListByUserID(ctx context.Context, userID int64) ([]*item.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE user_id = $1 ORDER BY created_at`
	return r.list(ctx, query, userID)
}

// ListAll retrieves every item, oldest sync first
func (r *ItemRepository) ListAll(ctx context.Context) ([]*item.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items ORDER BY last_synced_at NULLS FIRST, id`
	return r.list(ctx, query)
}

func (r *ItemRepository) list(ctx context.Context, query string, args ...any) ([]*item.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*item.Item
	for rows.Next() {
		it, err := r.scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}
