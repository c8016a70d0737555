package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
	"github.com/alexanderksmi/doffin-hunter/internal/resilience"
	"github.com/alexanderksmi/doffin-hunter/internal/store"
)

func staleEval(tender, profile string) model.Evaluation {
	return model.Evaluation{
		TenderID:                  tender,
		OrganizationID:            "org-1",
		LeadProfileID:             profile,
		CombinationType:           model.CombinationSolo,
		AllMinimumRequirementsMet: true,
		TotalScore:                9,
		CriteriaFingerprint:       "old",
	}
}

func evaluationsByProfile(t *testing.T, st *store.SQLiteStore) map[string][]string {
	t.Helper()
	evals, err := st.ListEvaluations(context.Background(), store.EvaluationFilter{OrganizationID: "org-1", Limit: 1000})
	require.NoError(t, err)
	out := map[string][]string{}
	for _, ev := range evals {
		out[ev.LeadProfileID] = append(out[ev.LeadProfileID], ev.TenderID)
	}
	return out
}

func TestWorker_ProcessesJobAndCleansUp(t *testing.T) {
	st := newTestStore(t)
	seedOrg(t, st)
	ctx := context.Background()

	_, err := st.UpsertEvaluations(ctx, []model.Evaluation{staleEval("t3", "own"), staleEval("t2", "gone")})
	require.NoError(t, err)

	job, err := Enqueue(ctx, st, "org-1", []string{"own", "partner", "gone"}, 5)
	require.NoError(t, err)

	clock := newTestClock()
	pub := &recordingPublisher{}
	w := NewWorker(st, pub, drainConfig(), WithClock(clock.Now))

	sum, err := w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Claimed: 1, Completed: 1}, sum)

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.LeaseToken)

	assert.Equal(t, map[string][]string{
		"own":     {"t1"},
		"partner": {"t2"},
	}, evaluationsByProfile(t, st))

	evs := pub.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, model.EventEvaluationStarted, evs[0].Type)
	assert.Equal(t, job.ID, evs[0].JobID)
	assert.Equal(t, model.EventEvaluationDone, evs[1].Type)
	assert.Equal(t, []string{"gone", "own", "partner"}, evs[1].AffectedProfileIDs)
	require.NotNil(t, evs[1].UpsertedCount)
	require.NotNil(t, evs[1].PrunedCount)
	assert.Equal(t, int64(2), *evs[1].UpsertedCount)
	assert.Equal(t, int64(2), *evs[1].PrunedCount)
}

func TestWorker_ReprocessingIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	seedOrg(t, st)
	ctx := context.Background()
	w := NewWorker(st, nil, drainConfig(), WithClock(newTestClock().Now))

	for range 2 {
		_, err := Enqueue(ctx, st, "org-1", []string{"own", "partner"}, 5)
		require.NoError(t, err)
		_, err = w.Run(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, map[string][]string{
		"own":     {"t1"},
		"partner": {"t2"},
	}, evaluationsByProfile(t, st))
}

func TestWorker_RetryBackoffAndDeadLetter(t *testing.T) {
	st := newTestStore(t)
	seedOrg(t, st)
	ctx := context.Background()

	job, err := Enqueue(ctx, st, "org-1", []string{"own"}, 5)
	require.NoError(t, err)

	clock := newTestClock()
	w := NewWorker(&failingStore{SQLiteStore: st}, nil, drainConfig(), WithClock(clock.Now))

	var failedAt time.Time
	for i := 1; i <= 3; i++ {
		failedAt = clock.Now()
		sum, err := w.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, RunSummary{Claimed: 1, Retried: 1}, sum, "attempt %d", i)
		clock.Advance(Backoff(i, time.Hour))
	}

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, got.Status)
	assert.Equal(t, 3, got.RetryCount)
	assert.True(t, failedAt.Add(8*time.Second).Equal(got.RunNotBefore), "run_not_before %s", got.RunNotBefore)
	assert.Equal(t, string(resilience.CodeAccessDenied), got.ErrorCode)
	assert.Contains(t, got.ErrorMessage, "permission denied")

	for i := 4; i <= 5; i++ {
		sum, err := w.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Retried, "attempt %d", i)
		clock.Advance(Backoff(i, time.Hour))
	}

	sum, err := w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Claimed: 1, DeadLettered: 1}, sum)

	got, err = st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusDeadLetter, got.Status)
	assert.Equal(t, 6, got.RetryCount)

	clock.Advance(24 * time.Hour)
	sum, err = w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, RunSummary{}, sum)
}

func TestWorker_BackoffNotYetDue(t *testing.T) {
	st := newTestStore(t)
	seedOrg(t, st)
	ctx := context.Background()

	_, err := Enqueue(ctx, st, "org-1", []string{"own"}, 5)
	require.NoError(t, err)

	clock := newTestClock()
	w := NewWorker(&failingStore{SQLiteStore: st}, nil, drainConfig(), WithClock(clock.Now))
	_, err = w.Run(ctx)
	require.NoError(t, err)

	clock.Advance(time.Second)
	sum, err := w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Claimed)

	clock.Advance(time.Second)
	sum, err = w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Claimed)
}

func TestWorker_ReclaimsExpiredLease(t *testing.T) {
	st := newTestStore(t)
	seedOrg(t, st)
	ctx := context.Background()
	clock := newTestClock()

	job, err := Enqueue(ctx, st, "org-1", []string{"own"}, 5)
	require.NoError(t, err)

	crashed, err := st.ClaimNextJob(ctx, clock.Now(), time.Minute)
	require.NoError(t, err)
	require.NotNil(t, crashed)

	w := NewWorker(st, nil, drainConfig(), WithClock(clock.Now))
	sum, err := w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Claimed)

	clock.Advance(2 * time.Minute)
	sum, err = w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Claimed: 1, Completed: 1}, sum)

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, 1, got.RetryCount)
}

func TestWorker_ExpiredLeaseExhaustsRetries(t *testing.T) {
	st := newTestStore(t)
	seedOrg(t, st)
	ctx := context.Background()
	clock := newTestClock()

	job, err := Enqueue(ctx, st, "org-1", []string{"own"}, 0)
	require.NoError(t, err)
	_, err = st.ClaimNextJob(ctx, clock.Now(), time.Minute)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	pub := &recordingPublisher{}
	sum, err := NewWorker(st, pub, drainConfig(), WithClock(clock.Now)).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Claimed: 1, DeadLettered: 1}, sum)
	assert.Empty(t, pub.Events())

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusDeadLetter, got.Status)
	assert.Equal(t, string(resilience.CodeLeaseExpired), got.ErrorCode)
	assert.Equal(t, 1, got.RetryCount)
}

func TestWorker_StaleWorkerLosesLease(t *testing.T) {
	st := newTestStore(t)
	seedOrg(t, st)
	ctx := context.Background()
	clock := newTestClock()

	job, err := Enqueue(ctx, st, "org-1", []string{"own"}, 5)
	require.NoError(t, err)

	stale, err := st.ClaimNextJob(ctx, clock.Now(), time.Minute)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	current, err := st.ClaimNextJob(ctx, clock.Now(), time.Minute)
	require.NoError(t, err)
	require.NotNil(t, current)
	require.NotEqual(t, stale.LeaseToken, current.LeaseToken)

	w := NewWorker(st, nil, drainConfig(), WithClock(clock.Now))
	outcome, err := w.ProcessJob(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, OutcomeLeaseLost, outcome)

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, got.Status)
	assert.Equal(t, current.LeaseToken, got.LeaseToken)
}

func TestWorker_ConcurrentWorkersProcessEachJobOnce(t *testing.T) {
	st := newTestStore(t)
	seedOrg(t, st)
	ctx := context.Background()
	clock := newTestClock()

	for range 10 {
		_, err := Enqueue(ctx, st, "org-1", []string{"own", "partner"}, 5)
		require.NoError(t, err)
	}

	var (
		mu    sync.Mutex
		total RunSummary
		wg    sync.WaitGroup
	)
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sum, err := NewWorker(st, nil, drainConfig(), WithClock(clock.Now)).Run(ctx)
			assert.NoError(t, err)
			mu.Lock()
			total.Claimed += sum.Claimed
			total.Completed += sum.Completed
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, RunSummary{Claimed: 10, Completed: 10}, total)
	stats, err := st.QueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Completed)
	assert.Equal(t, int64(0), stats.Pending)
}

func TestWorker_PollsUntilBudget(t *testing.T) {
	st := newTestStore(t)
	cfg := DefaultConfig()
	cfg.Budget = 150 * time.Millisecond
	cfg.PollInterval = 20 * time.Millisecond

	start := time.Now()
	sum, err := NewWorker(st, nil, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunSummary{}, sum)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWorker_SlowJobStaysWithinBudget(t *testing.T) {
	st := newTestStore(t)
	seedOrg(t, st)
	ctx := context.Background()

	job, err := Enqueue(ctx, st, "org-1", []string{"own"}, 5)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Budget = 200 * time.Millisecond
	cfg.Lease = 5 * time.Second
	cfg.PollInterval = 20 * time.Millisecond
	w := NewWorker(&slowStore{SQLiteStore: st, delay: 1500 * time.Millisecond}, nil, cfg, WithClock(newTestClock().Now))

	start := time.Now()
	sum, err := w.Run(ctx)
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Less(t, elapsed, cfg.Budget+time.Second)
	assert.Equal(t, RunSummary{Claimed: 1, Retried: 1}, sum)

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, string(resilience.CodeTimeout), got.ErrorCode)
	assert.Empty(t, got.LeaseToken)
}

func TestWorker_PicksUpJobWhilePolling(t *testing.T) {
	st := newTestStore(t)
	seedOrg(t, st)
	cfg := DefaultConfig()
	cfg.Budget = time.Second
	cfg.PollInterval = 20 * time.Millisecond

	go func() {
		time.Sleep(100 * time.Millisecond)
		_, _ = Enqueue(context.Background(), st, "org-1", []string{"own"}, 5)
	}()

	sum, err := NewWorker(st, nil, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Completed)
}

func TestWorker_CancelledContext(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWorker(st, nil, drainConfig()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
