// Package metrics defines the Prometheus collectors for the evaluation
// pipeline. Collectors register on the default registry and are served by
// promhttp at GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tender_eval"

// Job outcomes.
const (
	OutcomeCompleted    = "completed"
	OutcomeRetried      = "retried"
	OutcomeDeadLettered = "dead_lettered"
	OutcomeLeaseLost    = "lease_lost"
)

// Sources of upserted evaluations.
const (
	SourceBatch = "batch"
	SourceJob   = "job"
)

var (
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Evaluation jobs processed, by outcome.",
	}, []string{"outcome"})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Time spent processing a claimed job.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	EvaluationsUpserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluations_upserted_total",
		Help:      "Evaluation rows written, by source.",
	}, []string{"source"})

	EvaluationsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluations_pruned_total",
		Help:      "Stale evaluation rows deleted by cleanup.",
	})

	BatchRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batch_runs_total",
		Help:      "Batch runner invocations per organization, by mode.",
	}, []string{"mode"})
)
