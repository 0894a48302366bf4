// Package metrics exposes prometheus collectors for the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RequestsTotal counts handled gateway requests by endpoint and status code.
var RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "xc_gateway_requests_total",
	Help: "Total HTTP requests handled",
}, []string{"path", "status"})

// RequestDuration observes gateway request latency by endpoint.
var RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "xc_gateway_request_duration_seconds",
	Help:    "HTTP request latency",
	Buckets: prometheus.DefBuckets,
}, []string{"path"})

// UpstreamDuration observes upstream player_api call latency by action.
// The empty action (account info) is reported as "user_info".
var UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "xc_gateway_upstream_duration_seconds",
	Help:    "Upstream API call latency",
	Buckets: prometheus.DefBuckets,
}, []string{"action"})

// UpstreamErrors counts failed upstream calls by action and error kind.
var UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "xc_gateway_upstream_errors_total",
	Help: "Upstream API call failures",
}, []string{"action", "kind"})

// PlaylistEntries counts playlist entries emitted by playlist type.
var PlaylistEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "xc_gateway_playlist_entries_total",
	Help: "Playlist entries emitted",
}, []string{"type"})
