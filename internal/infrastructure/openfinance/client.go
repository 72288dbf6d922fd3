package openfinance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout       = 60 * time.Second
	defaultPageSize      = 250
	accountsPath         = "/accounts/get"
	transactionsSyncPath = "/transactions/sync"
	tokenExchangePath    = "/item/public_token/exchange"
)

// Client handles communication with the aggregator API
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	clientID   string
	secret     string
	pageSize   int
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL           string
	ClientID          string
	Secret            string
	Timeout           time.Duration
	RequestsPerSecond float64
	PageSize          int
	Transport         http.RoundTripper
}

// NewClient creates a new aggregator API client
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = max(1, int(opts.RequestsPerSecond))
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		limiter:  rate.NewLimiter(limit, burst),
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		clientID: opts.ClientID,
		secret:   opts.Secret,
		pageSize: pageSize,
	}
}

// ProviderError is returned for any non-2xx response.
type ProviderError struct {
	StatusCode int
	ErrorType  string
	ErrorCode  string
	Message    string
	RequestID  string
}

func (e *ProviderError) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s - %s", e.StatusCode, e.ErrorCode, e.Message)
}

// IsLoginRequired reports whether the user must re-authenticate with the institution.
func (e *ProviderError) IsLoginRequired() bool {
	return e.ErrorCode == "ITEM_LOGIN_REQUIRED"
}

// IsRetryable reports whether the same request may succeed later.
func (e *ProviderError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// AsProviderError unwraps err to a *ProviderError if it is one.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

type credentials struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

type accountsRequest struct {
	credentials
	AccessToken string `json:"access_token"`
}

type transactionsSyncRequest struct {
	credentials
	AccessToken string `json:"access_token"`
	Cursor      string `json:"cursor,omitempty"`
	Count       int    `json:"count,omitempty"`
}

type tokenExchangeRequest struct {
	credentials
	PublicToken string `json:"public_token"`
}

// FetchAccountSnapshot fetches the current accounts and balances for an item.
func (c *Client) FetchAccountSnapshot(ctx context.Context, accessToken string) (*AccountSnapshot, error) {
	var snapshot AccountSnapshot
	body := accountsRequest{credentials: c.credentials(), AccessToken: accessToken}
	if err := c.post(ctx, accountsPath, body, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// FetchTransactionDelta fetches one page of transaction changes after cursor.
func (c *Client) FetchTransactionDelta(ctx context.Context, accessToken, cursor string) (*TransactionDelta, error) {
	var delta TransactionDelta
	body := transactionsSyncRequest{
		credentials: c.credentials(),
		AccessToken: accessToken,
		Cursor:      cursor,
		Count:       c.pageSize,
	}
	if err := c.post(ctx, transactionsSyncPath, body, &delta); err != nil {
		return nil, err
	}
	return &delta, nil
}

// ExchangePublicToken trades the link widget's public token for a long-lived access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*TokenExchange, error) {
	var exchange TokenExchange
	body := tokenExchangeRequest{credentials: c.credentials(), PublicToken: publicToken}
	if err := c.post(ctx, tokenExchangePath, body, &exchange); err != nil {
		return nil, err
	}
	if exchange.AccessToken == "" || exchange.ItemID == "" {
		return nil, fmt.Errorf("token exchange returned an incomplete response")
	}
	return &exchange, nil
}

func (c *Client) credentials() credentials {
	return credentials{ClientID: c.clientID, Secret: c.secret}
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.ErrorCode == "" {
			return &ProviderError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return &ProviderError{
			StatusCode: resp.StatusCode,
			ErrorType:  errResp.ErrorType,
			ErrorCode:  errResp.ErrorCode,
			Message:    errResp.ErrorMessage,
			RequestID:  errResp.RequestID,
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
