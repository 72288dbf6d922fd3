package openfinance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{
		BaseURL:  server.URL,
		ClientID: "client-id",
		Secret:   "secret",
		PageSize: 100,
	})
}

func TestFetchTransactionDelta(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != transactionsSyncPath {
			t.Errorf("path = %s, want %s", r.URL.Path, transactionsSyncPath)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"added": [{"transaction_id": "t1", "account_id": "a1", "amount": 12.34, "date": "2026-03-01", "name": "Coffee", "pending": false}],
			"modified": [],
			"removed": [{"transaction_id": "t0"}],
			"next_cursor": "c2",
			"has_more": true
		}`))
	})

	delta, err := client.FetchTransactionDelta(context.Background(), "access-1", "c1")
	if err != nil {
		t.Fatalf("FetchTransactionDelta() error = %v", err)
	}

	if got["access_token"] != "access-1" || got["cursor"] != "c1" || got["client_id"] != "client-id" {
		t.Errorf("unexpected request body: %v", got)
	}
	if got["count"] != float64(100) {
		t.Errorf("count = %v, want 100", got["count"])
	}
	if len(delta.Added) != 1 || delta.Added[0].TransactionID != "t1" {
		t.Fatalf("Added = %+v", delta.Added)
	}
	if !delta.Added[0].Amount.Equal(decimal.RequireFromString("12.34")) {
		t.Errorf("Amount = %s, want 12.34", delta.Added[0].Amount)
	}
	if len(delta.Removed) != 1 || delta.Removed[0].TransactionID != "t0" {
		t.Errorf("Removed = %+v", delta.Removed)
	}
	if delta.NextCursor != "c2" || !delta.HasMore {
		t.Errorf("NextCursor = %q, HasMore = %v", delta.NextCursor, delta.HasMore)
	}
}

func TestFetchTransactionDelta_OmitsEmptyCursor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["cursor"]; ok {
			t.Errorf("cursor should be omitted on first sync, got %v", body["cursor"])
		}
		w.Write([]byte(`{"added":[],"modified":[],"removed":[],"next_cursor":"c1","has_more":false}`))
	})

	if _, err := client.FetchTransactionDelta(context.Background(), "access-1", ""); err != nil {
		t.Fatalf("FetchTransactionDelta() error = %v", err)
	}
}

func TestFetchAccountSnapshot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"accounts": [{
				"account_id": "a1",
				"balances": {"available": null, "current": 410.5, "iso_currency_code": "USD"},
				"name": "Plaid Credit Card",
				"mask": "3333",
				"type": "credit",
				"subtype": "credit card"
			}],
			"item": {"item_id": "item-1", "institution_id": "ins_109508", "institution_name": "First Platypus Bank"}
		}`))
	})

	snapshot, err := client.FetchAccountSnapshot(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("FetchAccountSnapshot() error = %v", err)
	}
	if len(snapshot.Accounts) != 1 {
		t.Fatalf("len(Accounts) = %d, want 1", len(snapshot.Accounts))
	}
	acc := snapshot.Accounts[0]
	if acc.Balances.Available.Valid {
		t.Error("Available should be null")
	}
	if !acc.Balances.Current.Valid || !acc.Balances.Current.Decimal.Equal(decimal.RequireFromString("410.5")) {
		t.Errorf("Current = %+v, want 410.5", acc.Balances.Current)
	}
	if acc.Balances.Currency() != "USD" {
		t.Errorf("Currency() = %q, want USD", acc.Balances.Currency())
	}
	if snapshot.Item.InstitutionName == nil || *snapshot.Item.InstitutionName != "First Platypus Bank" {
		t.Errorf("InstitutionName = %v", snapshot.Item.InstitutionName)
	}
}

func TestExchangePublicToken(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"success", `{"access_token":"access-1","item_id":"item-1"}`, false},
		{"missing item id", `{"access_token":"access-1"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tokenExchangePath {
					t.Errorf("path = %s, want %s", r.URL.Path, tokenExchangePath)
				}
				w.Write([]byte(tt.body))
			})

			exchange, err := client.ExchangePublicToken(context.Background(), "public-1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExchangePublicToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && exchange.ItemID != "item-1" {
				t.Errorf("ItemID = %q, want item-1", exchange.ItemID)
			}
		})
	}
}

func TestClient_ProviderError(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantCode      string
		wantLogin     bool
		wantRetryable bool
	}{
		{
			name:      "login required",
			status:    http.StatusBadRequest,
			body:      `{"error_type":"ITEM_ERROR","error_code":"ITEM_LOGIN_REQUIRED","error_message":"login required"}`,
			wantCode:  "ITEM_LOGIN_REQUIRED",
			wantLogin: true,
		},
		{
			name:          "rate limited",
			status:        http.StatusTooManyRequests,
			body:          `{"error_type":"RATE_LIMIT_EXCEEDED","error_code":"RATE_LIMIT","error_message":"slow down"}`,
			wantCode:      "RATE_LIMIT",
			wantRetryable: true,
		},
		{
			name:          "non json body",
			status:        http.StatusBadGateway,
			body:          "bad gateway",
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.FetchAccountSnapshot(context.Background(), "access-1")
			pe, ok := AsProviderError(err)
			if !ok {
				t.Fatalf("expected *ProviderError, got %v", err)
			}
			if pe.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", pe.StatusCode, tt.status)
			}
			if pe.ErrorCode != tt.wantCode {
				t.Errorf("ErrorCode = %q, want %q", pe.ErrorCode, tt.wantCode)
			}
			if pe.IsLoginRequired() != tt.wantLogin {
				t.Errorf("IsLoginRequired() = %v, want %v", pe.IsLoginRequired(), tt.wantLogin)
			}
			if pe.IsRetryable() != tt.wantRetryable {
				t.Errorf("IsRetryable() = %v, want %v", pe.IsRetryable(), tt.wantRetryable)
			}
		})
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchTransactionDelta(ctx, "access-1", "")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestTransaction_Dates(t *testing.T) {
	datetime := "2026-03-01T14:30:00Z"
	authDate := "2026-02-28"

	tests := []struct {
		name           string
		tx             Transaction
		wantPosted     string
		wantAuthNil    bool
		wantAuthorized string
		wantErr        bool
	}{
		{
			name:        "date only",
			tx:          Transaction{Date: "2026-03-01"},
			wantPosted:  "2026-03-01T00:00:00Z",
			wantAuthNil: true,
		},
		{
			name:           "datetime wins over date",
			tx:             Transaction{Date: "2026-03-01", Datetime: &datetime, AuthorizedDate: &authDate},
			wantPosted:     "2026-03-01T14:30:00Z",
			wantAuthorized: "2026-02-28T00:00:00Z",
		},
		{
			name:    "bad date",
			tx:      Transaction{Date: "03/01/2026"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posted, err := tt.tx.GetPostedAt()
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetPostedAt() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := posted.Format(time.RFC3339); got != tt.wantPosted {
				t.Errorf("GetPostedAt() = %s, want %s", got, tt.wantPosted)
			}

			authorized, err := tt.tx.GetAuthorizedAt()
			if err != nil {
				t.Fatalf("GetAuthorizedAt() error = %v", err)
			}
			if tt.wantAuthNil {
				if authorized != nil {
					t.Errorf("GetAuthorizedAt() = %v, want nil", authorized)
				}
				return
			}
			if got := authorized.Format(time.RFC3339); got != tt.wantAuthorized {
				t.Errorf("GetAuthorizedAt() = %s, want %s", got, tt.wantAuthorized)
			}
		})
	}
}
