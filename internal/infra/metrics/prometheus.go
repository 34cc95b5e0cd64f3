package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "olhodeaguia_scans_total",
		Help: "Total number of video scans, by outcome (complete, partial, unreadable)",
	}, []string{"outcome"})

	ScanStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "olhodeaguia_scan_stage_duration_seconds",
		Help:    "Duration of each scan pipeline stage",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	ScanStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "olhodeaguia_scan_state_transitions_total",
		Help: "Scan pipeline state transitions, by target state",
	}, []string{"state"})

	FramesDecodedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "olhodeaguia_frames_decoded_total",
		Help: "Frames passed through the code decoder",
	})

	FramesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "olhodeaguia_frames_skipped_total",
		Help: "Frames the decoder failed on and that were treated as empty",
	})

	CodesFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "olhodeaguia_codes_found_total",
		Help: "Unique codes found across all scans",
	})

	CatalogLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "olhodeaguia_catalog_lookups_total",
		Help: "Catalog lookups, by result (found, not_found, error)",
	}, []string{"result"})

	ActiveScans = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "olhodeaguia_active_scans",
		Help: "Number of scans currently running",
	})

	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "olhodeaguia_jobs_processed_total",
		Help: "Total number of queued scan jobs processed, by status",
	}, []string{"status"})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "olhodeaguia_job_retry_total",
		Help: "Total number of scan job retries",
	}, []string{"attempt"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "olhodeaguia_http_requests_total",
		Help: "HTTP requests, by method, route and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "olhodeaguia_http_request_duration_seconds",
		Help:    "HTTP request latency, by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)
