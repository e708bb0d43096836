package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blipgate_requests_total",
		Help: "Inbound requests by method and response status",
	}, []string{"method", "status"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blipgate_latency_seconds",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "category"})

	UpstreamAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blipgate_upstream_attempts_total",
		Help: "Calls made to the upstream backend, including retries",
	}, []string{"method", "status"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blipgate_cache_lookups_total",
		Help: "Response cache lookups by result (hit, miss, bypass)",
	}, []string{"result"})

	ScreeningNotes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blipgate_screening_notes_total",
		Help: "Synthesized screening notes by outcome",
	}, []string{"outcome"})

	AuditEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blipgate_audit_events_total",
		Help: "Audit events by outcome (queued, dropped, delivered, failed, skipped)",
	}, []string{"outcome"})
)
