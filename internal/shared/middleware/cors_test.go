package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsOriginAllowed(t *testing.T) {
	tests := []struct {
		name         string
		origin       string
		allowedHosts []string
		want         bool
	}{
		{
			name:         "exact match with port",
			origin:       "https://app.finsync.dev:8443",
			allowedHosts: []string{"app.finsync.dev:8443"},
			want:         true,
		},
		{
			name:         "hostname match ignoring port",
			origin:       "https://app.finsync.dev:3000",
			allowedHosts: []string{"app.finsync.dev"},
			want:         true,
		},
		{
			name:         "no match",
			origin:       "https://phish.example",
			allowedHosts: []string{"app.finsync.dev"},
			want:         false,
		},
		{
			name:         "case insensitive",
			origin:       "https://App.FinSync.DEV",
			allowedHosts: []string{"app.finsync.dev"},
			want:         true,
		},
		{
			name:         "invalid origin URL",
			origin:       "://invalid",
			allowedHosts: []string{"app.finsync.dev"},
			want:         false,
		},
		{
			name:         "subdomain mismatch",
			origin:       "https://admin.app.finsync.dev",
			allowedHosts: []string{"app.finsync.dev"},
			want:         false,
		},
		{
			name:         "scheme without host",
			origin:       "null",
			allowedHosts: []string{"app.finsync.dev"},
			want:         false,
		},
		{
			name:         "localhost",
			origin:       "http://localhost:3000",
			allowedHosts: []string{"localhost"},
			want:         true,
		},
		{
			name:         "allowed host with whitespace",
			origin:       "https://app.finsync.dev",
			allowedHosts: []string{"  app.finsync.dev  "},
			want:         true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isOriginAllowed(tt.origin, tt.allowedHosts)
			if got != tt.want {
				t.Errorf("isOriginAllowed(%q, %v) = %v, want %v", tt.origin, tt.allowedHosts, got, tt.want)
			}
		})
	}
}

// syncRoute mounts the item sync endpoint behind CORS and reports whether it ran.
func syncRoute(allowedHosts []string, reached *bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/items/{id}/sync", func(w http.ResponseWriter, r *http.Request) {
		*reached = true
		w.WriteHeader(http.StatusOK)
	})
	return CORS(allowedHosts)(mux)
}

func TestCORS_ItemSyncRoute(t *testing.T) {
	const app = "https://app.finsync.dev"

	tests := []struct {
		name            string
		allowedHosts    []string
		method          string
		origin          string
		wantStatus      int
		wantReached     bool
		wantAllowOrigin string
		wantCredentials bool
	}{
		{
			name:            "allowed origin",
			allowedHosts:    []string{"app.finsync.dev"},
			method:          http.MethodPost,
			origin:          app,
			wantStatus:      http.StatusOK,
			wantReached:     true,
			wantAllowOrigin: app,
			wantCredentials: true,
		},
		{
			name:         "disallowed origin",
			allowedHosts: []string{"app.finsync.dev"},
			method:       http.MethodPost,
			origin:       "https://phish.example",
			wantStatus:   http.StatusForbidden,
		},
		{
			name:            "preflight from allowed origin",
			allowedHosts:    []string{"app.finsync.dev"},
			method:          http.MethodOptions,
			origin:          app,
			wantStatus:      http.StatusNoContent,
			wantAllowOrigin: app,
			wantCredentials: true,
		},
		{
			name:         "server to server call without origin",
			allowedHosts: []string{"app.finsync.dev"},
			method:       http.MethodPost,
			wantStatus:   http.StatusOK,
			wantReached:  true,
		},
		{
			name:            "open policy",
			method:          http.MethodPost,
			origin:          "https://anywhere.example",
			wantStatus:      http.StatusOK,
			wantReached:     true,
			wantAllowOrigin: "*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reached bool
			req := httptest.NewRequest(tt.method, "/api/items/item-1/sync", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()

			syncRoute(tt.allowedHosts, &reached).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if reached != tt.wantReached {
				t.Errorf("handler reached = %v, want %v", reached, tt.wantReached)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllowOrigin)
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials") == "true"; got != tt.wantCredentials {
				t.Errorf("Allow-Credentials set = %v, want %v", got, tt.wantCredentials)
			}
			if tt.wantCredentials && rr.Header().Get("Vary") != "Origin" {
				t.Errorf("Vary = %q, want Origin", rr.Header().Get("Vary"))
			}
			if tt.wantStatus != http.StatusForbidden && rr.Header().Get("Access-Control-Allow-Headers") != "Content-Type, Authorization" {
				t.Errorf("Allow-Headers = %q", rr.Header().Get("Access-Control-Allow-Headers"))
			}
		})
	}
}

func TestCORS_RejectionBody(t *testing.T) {
	var reached bool
	req := httptest.NewRequest(http.MethodPost, "/api/items/item-1/sync", nil)
	req.Header.Set("Origin", "https://phish.example")
	rr := httptest.NewRecorder()

	syncRoute([]string{"app.finsync.dev"}, &reached).ServeHTTP(rr, req)

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] != "origin not allowed" {
		t.Errorf("error = %q, want %q", body["error"], "origin not allowed")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("rejected response must not carry Allow-Origin")
	}
}
