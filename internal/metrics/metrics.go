// Package metrics declares the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantjournal_http_requests_total",
		Help: "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "plantjournal_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern and method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	MediaUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantjournal_media_uploads_total",
		Help: "Image uploads by backend and result (ok, rejected, canceled, failed).",
	}, []string{"backend", "result"})

	MediaBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "plantjournal_media_breaker_state",
		Help: "Media store circuit breaker state: 0 closed, 1 half-open, 2 open.",
	}, []string{"backend"})

	TimelineCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantjournal_timeline_cache_total",
		Help: "Timeline cache lookups by result (hit, miss).",
	}, []string{"result"})
)
