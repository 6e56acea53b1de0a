package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipments_transitions_total",
		Help: "Total number of accepted status transitions.",
	}, []string{"source", "status"})

	VersionConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipments_version_conflicts_total",
		Help: "Total number of transitions rejected by the version precondition.",
	})

	InvalidTransitionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipments_invalid_transitions_total",
		Help: "Total number of transitions rejected by the transition table.",
	})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipments_rate_limited_total",
		Help: "Total number of requests rejected by the sliding-window limiter.",
	}, []string{"action"})

	StuckFlagsRaisedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipments_stuck_flags_raised_total",
		Help: "Total number of stuck-shipment flags raised by the detector.",
	})

	CarrierSyncErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipments_carrier_sync_errors_total",
		Help: "Total number of per-shipment carrier sync failures.",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shipments_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "code"})
)
