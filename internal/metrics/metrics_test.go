package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobsTotal_CountsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(JobsTotal.WithLabelValues(OutcomeRetried))
	JobsTotal.WithLabelValues(OutcomeRetried).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(JobsTotal.WithLabelValues(OutcomeRetried)))
}

func TestCollectorsRegisteredOnDefaultRegistry(t *testing.T) {
	BatchRuns.WithLabelValues("full").Inc()
	EvaluationsUpserted.WithLabelValues(SourceJob).Add(3)

	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer,
		"tender_eval_batch_runs_total",
		"tender_eval_evaluations_upserted_total",
		"tender_eval_evaluations_pruned_total",
	)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 3)
}
