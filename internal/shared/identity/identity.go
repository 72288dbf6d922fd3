// Package identity carries the authenticated user's ID through a request or job.
package identity

import (
	"context"
	"errors"
)

// ErrAuthenticationRequired is returned when no user identity can be resolved.
var ErrAuthenticationRequired = errors.New("authentication required")

type ctxKey struct{}

// WithUserID returns a copy of ctx attributed to userID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the user ID carried by ctx.
func UserID(ctx context.Context) (int64, error) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	if !ok || id <= 0 {
		return 0, ErrAuthenticationRequired
	}
	return id, nil
}

// Resolver resolves the current user for write paths.
type Resolver interface {
	Resolve(ctx context.Context) (int64, error)
}

// ContextResolver reads the user ID placed in the context by the auth middleware or a job.
type ContextResolver struct{}

func (ContextResolver) Resolve(ctx context.Context) (int64, error) {
	return UserID(ctx)
}
