package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhook outcome counts, labeled by envelope status.
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plansink_webhooks_total",
			Help: "Total number of webhook deliveries received",
		},
		[]string{"trigger", "status"},
	)

	RowsAppendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plansink_rows_appended_total",
			Help: "Total rows appended to trigger datasets",
		},
		[]string{"trigger"},
	)

	DuplicatesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plansink_duplicates_skipped_total",
			Help: "Total webhook deliveries suppressed as duplicates",
		},
		[]string{"trigger"},
	)

	// Storage metrics
	StorageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plansink_storage_duration_seconds",
			Help:    "Duration of storage collaborator operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	AuditUploadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plansink_audit_upload_failures_total",
			Help: "Total failed audit record uploads (best-effort path)",
		},
	)

	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plansink_notification_failures_total",
			Help: "Total failed outcome notification deliveries",
		},
	)
)
