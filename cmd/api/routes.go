package main

import (
	"net/http"

	"finsync/internal/shared/config"
	"finsync/internal/shared/logger"
	"finsync/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", deps.HealthHandler.HandleHealth)

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT)
	protect := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMiddleware(h))
	}

	protect("POST /api/items", deps.ItemHandler.HandleLinkItem)
	protect("GET /api/items", deps.ItemHandler.HandleListItems)
	protect("POST /api/items/{id}/sync", deps.ItemHandler.HandleSyncItem)
	protect("POST /api/items/{id}/accounts/refresh", deps.ItemHandler.HandleRefreshAccounts)
	protect("GET /api/accounts/", deps.AccountHandler.HandleListAccounts)
	protect("GET /api/accounts/{id}", deps.AccountHandler.HandleGetAccount)
	protect("GET /api/transactions/", deps.TransactionHandler.HandleListTransactions)
	protect("GET /api/transactions/{id}", deps.TransactionHandler.HandleGetTransaction)

	// Apply global middleware
	handler := middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(middleware.SecureHeaders(mux)))

	if cfg.TLS.Enabled {
		handler = middleware.HSTS(handler)
		logger.L.Info("HSTS enabled")
	}

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(cfg.Telemetry.ServiceName)(handler)
	}

	return handler
}
