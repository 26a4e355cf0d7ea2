// Package metrics defines the Prometheus collectors used by the ingest
// pipeline and exposes an HTTP server for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for an ingest run.
type Metrics struct {
	LinesProcessedTotal     prometheus.Counter
	SentencesEmittedTotal   prometheus.Counter
	SentencesPersistedTotal prometheus.Counter
	BatchFlushesTotal       *prometheus.CounterVec
	BatchFlushDuration      prometheus.Histogram
	BatchSize               prometheus.Histogram
}

// New creates the collectors and registers them on reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LinesProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "corpus_lines_processed_total",
				Help: "Total number of input lines read and segmented.",
			},
		),
		SentencesEmittedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "corpus_sentences_emitted_total",
				Help: "Total number of valid sentences produced by the segmenter.",
			},
		),
		SentencesPersistedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "corpus_sentences_persisted_total",
				Help: "Total number of sentences inserted into the store.",
			},
		),
		BatchFlushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpus_batch_flushes_total",
				Help: "Total batch flush operations by status.",
			},
			[]string{"status"},
		),
		BatchFlushDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "corpus_batch_flush_duration_seconds",
				Help:    "Batch insert latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		BatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "corpus_batch_size",
				Help:    "Number of sentences carried by each flushed batch.",
				Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 5000},
			},
		),
	}

	reg.MustRegister(
		m.LinesProcessedTotal,
		m.SentencesEmittedTotal,
		m.SentencesPersistedTotal,
		m.BatchFlushesTotal,
		m.BatchFlushDuration,
		m.BatchSize,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
