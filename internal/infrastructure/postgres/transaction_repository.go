package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"finsync/internal/domain/transaction"
)

const (
	defaultTransactionLimit = 100
	maxTransactionLimit     = 500
)

// TransactionRepository implements transaction.Repository for PostgreSQL
type TransactionRepository struct {
	db *DB
}

var _ transaction.Repository = (*TransactionRepository)(nil)

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, account_id, user_id, amount, authorized_at, posted_at, category_primary, category_detailed,
		name, merchant_name, payment_channel, iso_currency_code, pending, created_at, updated_at`

func scanTransaction(row rowScanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	var authorizedAt, postedAt sql.NullTime
	var categoryPrimary, categoryDetailed, merchantName sql.NullString

	err := row.Scan(
		&tx.ID, &tx.AccountID, &tx.UserID, &tx.Amount, &authorizedAt, &postedAt,
		&categoryPrimary, &categoryDetailed, &tx.Name, &merchantName, &tx.PaymentChannel,
		&tx.Currency, &tx.Pending, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.AuthorizedAt = timePtr(authorizedAt)
	tx.PostedAt = timePtr(postedAt)
	tx.CategoryPrimary = stringPtr(categoryPrimary)
	tx.CategoryDetailed = stringPtr(categoryDetailed)
	tx.MerchantName = stringPtr(merchantName)
	return &tx, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transaction.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// ListByUserID lists a user's transactions, newest posting first.
func (r *TransactionRepository) ListByUserID(ctx context.Context, userID int64, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1`
	args := []any{userID}

	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		query += ` AND account_id = $` + strconv.Itoa(len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	offset := max(filter.Offset, 0)

	args = append(args, limit, offset)
	query += ` ORDER BY posted_at DESC NULLS LAST, id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

func (r *TransactionRepository) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
