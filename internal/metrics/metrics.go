// Package metrics exposes prometheus instrumentation for the import
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportRunsTotal counts executed import runs per feed.
	ImportRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidfeed_import_runs_total",
		Help: "Number of feed import runs executed.",
	}, []string{"feed_id"})

	// VideosImportedTotal counts successfully imported videos per feed.
	VideosImportedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidfeed_videos_imported_total",
		Help: "Number of videos successfully imported.",
	}, []string{"feed_id"})

	// ImportErrorsTotal counts import-level and item-level errors per
	// feed.
	ImportErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidfeed_import_errors_total",
		Help: "Number of errors recorded during feed imports.",
	}, []string{"feed_id"})

	// ImportRunDuration observes the wall-clock duration of import runs.
	ImportRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vidfeed_import_run_duration_seconds",
		Help:    "Duration of feed import runs.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)
