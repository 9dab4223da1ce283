package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notesync_http_requests_total",
		Help: "HTTP requests served, labeled by method, route and status",
	}, []string{"method", "path", "status"})

	// Sync endpoints run the sync inside the request, so the upper
	// buckets reach into minutes.
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notesync_http_request_duration_seconds",
		Help:    "HTTP request latency distribution",
		Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 10, 60, 300, 900},
	}, []string{"method", "path"})
)
