package openfinance

import (
	"context"
)

// ClientInterface is the aggregator capability the sync services consume.
// Any provider that satisfies it is interchangeable.
type ClientInterface interface {
	FetchAccountSnapshot(ctx context.Context, accessToken string) (*AccountSnapshot, error)
	// FetchTransactionDelta returns one page of changes after cursor. An empty cursor starts from the beginning.
	FetchTransactionDelta(ctx context.Context, accessToken, cursor string) (*TransactionDelta, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*TokenExchange, error)
}
