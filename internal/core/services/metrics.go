package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notesync_runs_total",
		Help: "Tenant sync runs, labeled by result",
	}, []string{"result"})

	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notesync_run_duration_seconds",
		Help:    "Duration distribution of tenant sync runs",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	})

	notesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notesync_notes_fetched_total",
		Help: "Note headers retrieved from the remote ERP",
	})
)
