// Package metrics registers the gateway's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts handled gateway requests by route and status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitview_http_requests_total",
		Help: "Total HTTP requests handled by the gateway.",
	}, []string{"method", "path", "status"})

	// RequestDuration observes gateway request latency by route.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "splitview_http_request_duration_seconds",
		Help:    "Gateway request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// ViewCacheHits counts view-cache hits and misses by view name.
	ViewCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitview_view_cache_hits_total",
		Help: "View cache hits by view.",
	}, []string{"view"})

	ViewCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitview_view_cache_misses_total",
		Help: "View cache misses by view.",
	}, []string{"view"})
)
