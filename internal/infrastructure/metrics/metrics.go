// Package metrics exposes the Prometheus instruments the HTTP edge and the
// sync scheduler report into.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEvents counts inbound webhook deliveries by topic and outcome.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_webhook_events_total",
		Help: "Inbound webhook deliveries by topic and outcome",
	}, []string{"topic", "status"})

	// SyncRuns counts bulk-fetch run segments by store, entity class and outcome.
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_bulk_runs_total",
		Help: "Bulk-fetch run segments by store, entity class and outcome",
	}, []string{"store", "type", "status"})

	// InventoryPushes counts outbound inventory writes by store.
	InventoryPushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_inventory_pushes_total",
		Help: "Outbound inventory level writes by store and outcome",
	}, []string{"store", "status"})

	// SyncRunDuration observes bulk-fetch run segment durations.
	SyncRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_bulk_run_duration_seconds",
		Help:    "Bulk-fetch run segment duration by entity class",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"type"})
)
