package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest and read-model metrics.
var (
	ingestFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reprech_ingest_files_total",
			Help: "Report files processed, by result and detected encoding.",
		},
		[]string{"result", "encoding"},
	)

	ingestRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reprech_ingest_rows_total",
			Help: "Parsed rows by merge outcome (added, duplicate, ignored).",
		},
		[]string{"outcome"},
	)

	mergeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reprech_merge_duration_seconds",
			Help:    "Duration of one merge transaction.",
			Buckets: prometheus.DefBuckets,
		},
	)

	summaryCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reprech_summary_cache_total",
			Help: "Summary cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)
)

func observeMerge(c MergeCounts) {
	ingestRowsTotal.WithLabelValues("added").Add(float64(c.Added))
	ingestRowsTotal.WithLabelValues("duplicate").Add(float64(c.Duplicates))
	ingestRowsTotal.WithLabelValues("ignored").Add(float64(c.Ignored))
}
