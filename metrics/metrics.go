package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRunsTotal counts synchronize calls by branch (open, reset, resume) and result
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assists_sync_runs_total",
			Help: "Total number of attendance synchronization runs",
		},
		[]string{"branch", "result"},
	)

	// SyncDuration tracks how long a synchronize call holds the writer lock
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assists_sync_duration_seconds",
			Help:    "Attendance synchronization duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"branch"},
	)

	// PagesFetched counts remote pages fetched by result
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assists_pages_fetched_total",
			Help: "Total number of remote attendance pages fetched",
		},
		[]string{"result"},
	)

	// RecordsUpserted counts attendance records written to storage
	RecordsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assists_records_upserted_total",
			Help: "Total number of attendance records upserted",
		},
	)

	// RecordsSkipped counts remote records that could not be converted
	RecordsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assists_records_skipped_total",
			Help: "Total number of malformed attendance records skipped",
		},
	)

	// PendingPages tracks pending pages of the latest epoch
	PendingPages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assists_pending_pages",
			Help: "Number of pages still pending in the latest sync epoch",
		},
	)

	// APIRequestRetries counts retried requests to the biometrics API
	APIRequestRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assists_api_request_retries_total",
			Help: "Total number of retried biometrics API requests",
		},
	)
)
