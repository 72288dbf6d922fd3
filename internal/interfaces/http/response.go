package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"finsync/internal/domain/account"
	"finsync/internal/domain/item"
	"finsync/internal/domain/openfinance"
	"finsync/internal/domain/transaction"
	"finsync/internal/shared/identity"
	"finsync/internal/shared/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusForError maps domain errors to an HTTP status and a client-safe message.
func statusForError(err error) (int, string) {
	var upstream *openfinance.UpstreamFetchError

	switch {
	case errors.Is(err, identity.ErrAuthenticationRequired):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, openfinance.ErrForbidden), errors.Is(err, account.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, item.ErrItemNotFound):
		return http.StatusNotFound, item.ErrItemNotFound.Error()
	case errors.Is(err, account.ErrAccountNotFound):
		return http.StatusNotFound, account.ErrAccountNotFound.Error()
	case errors.Is(err, transaction.ErrTransactionNotFound):
		return http.StatusNotFound, transaction.ErrTransactionNotFound.Error()
	case errors.Is(err, item.ErrItemExists):
		return http.StatusConflict, item.ErrItemExists.Error()
	case errors.Is(err, openfinance.ErrMissingAccessToken):
		return http.StatusConflict, openfinance.ErrMissingAccessToken.Error()
	case errors.As(err, &upstream), errors.Is(err, openfinance.ErrPageLimitExceeded):
		return http.StatusBadGateway, "account aggregator request failed"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusForError(err)

	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.String("path", r.URL.Path), slog.Int("status", status), slog.Any("error", err))
	} else {
		log.Warn("request rejected", slog.String("path", r.URL.Path), slog.Int("status", status), slog.Any("error", err))
	}

	writeError(w, status, msg)
}

func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := identity.UserID(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return 0, false
	}
	return userID, true
}
