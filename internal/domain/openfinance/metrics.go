package openfinance

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	syncMeter       = otel.Meter("finsync/sync")
	syncDuration, _ = syncMeter.Float64Histogram("sync.duration", metric.WithDescription("Transaction sync duration in seconds"), metric.WithUnit("s"))
	syncPages, _    = syncMeter.Int64Histogram("sync.pages", metric.WithDescription("Delta pages fetched per transaction sync"))
	syncTotal, _    = syncMeter.Int64Counter("sync.total", metric.WithDescription("Total transaction syncs by status"))
	accountTotal, _ = syncMeter.Int64Counter("sync.accounts.total", metric.WithDescription("Accounts refreshed by result"))
)

// Sync statuses recorded on sync.total
const (
	statusSuccess       = "success"
	statusUpstreamError = "upstream_error"
	statusStorageError  = "storage_error"
	statusRejected      = "rejected"
)
