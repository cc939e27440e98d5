// Package metrics exposes Prometheus collectors for the engine's
// asynchronous pipelines. Collectors are registered on the default
// registry and served by promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChunksSent counts chunk POSTs by final outcome (ok, error).
	ChunksSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pressflow_chunks_sent_total",
		Help: "Chunk uploads by outcome.",
	}, []string{"outcome"})

	// ChunkRetries counts per-chunk retry attempts.
	ChunkRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pressflow_chunk_retries_total",
		Help: "Chunk upload retry attempts.",
	})

	// Submissions counts consolidated webhook submissions by outcome.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pressflow_submissions_total",
		Help: "Consolidated webhook submissions by outcome.",
	}, []string{"outcome"})

	// SubmissionDuration observes end-to-end submission latency.
	SubmissionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pressflow_submission_duration_seconds",
		Help:    "End-to-end submission latency.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	// TitlePolls counts title endpoint fetches by outcome
	// (ok, error, fallback_cache, fallback_default).
	TitlePolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pressflow_title_polls_total",
		Help: "Title suggestion fetches by outcome.",
	}, []string{"outcome"})

	// Transitions counts workflow step transitions by result.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pressflow_transitions_total",
		Help: "Workflow transitions by result (accepted, rejected).",
	}, []string{"result"})
)
