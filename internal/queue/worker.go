package queue

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/alexanderksmi/doffin-hunter/internal/evaluate"
	"github.com/alexanderksmi/doffin-hunter/internal/events"
	"github.com/alexanderksmi/doffin-hunter/internal/metrics"
	"github.com/alexanderksmi/doffin-hunter/internal/model"
	"github.com/alexanderksmi/doffin-hunter/internal/resilience"
	"github.com/alexanderksmi/doffin-hunter/internal/scoring"
	"github.com/alexanderksmi/doffin-hunter/internal/store"
)

const maxErrorMessageLen = 2000

// Store is what the worker needs from storage.
type Store interface {
	store.JobStore
	evaluate.Source
	UpsertWithCleanup(ctx context.Context, orgID, profileID string, combination model.CombinationType, results []model.Evaluation, fingerprint string) (store.CleanupResult, error)
}

// Outcome is the result of processing one claimed job.
type Outcome string

const (
	OutcomeCompleted    Outcome = metrics.OutcomeCompleted
	OutcomeRetried      Outcome = metrics.OutcomeRetried
	OutcomeDeadLettered Outcome = metrics.OutcomeDeadLettered
	// OutcomeLeaseLost means another worker reclaimed the job before this
	// one could record its result.
	OutcomeLeaseLost Outcome = metrics.OutcomeLeaseLost
)

// RunSummary counts what one Run invocation did.
type RunSummary struct {
	Claimed      int `json:"claimed"`
	Completed    int `json:"completed"`
	Retried      int `json:"retried"`
	DeadLettered int `json:"dead_lettered"`
	LeaseLost    int `json:"lease_lost"`
}

func (s *RunSummary) record(o Outcome) {
	switch o {
	case OutcomeCompleted:
		s.Completed++
	case OutcomeRetried:
		s.Retried++
	case OutcomeDeadLettered:
		s.DeadLettered++
	case OutcomeLeaseLost:
		s.LeaseLost++
	}
}

// Worker claims and processes evaluation jobs.
type Worker struct {
	store Store
	pub   events.Publisher
	cfg   Config
	retry resilience.RetryConfig
	now   func() time.Time
}

// Option configures a Worker.
type Option func(*Worker)

// WithClock replaces the clock used for claims, backoff and transitions.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// WithRetry sets the in-process retry policy for storage round-trips.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(w *Worker) { w.retry = cfg }
}

// NewWorker creates a Worker. A nil publisher discards events.
func NewWorker(st Store, pub events.Publisher, cfg Config, opts ...Option) *Worker {
	if pub == nil {
		pub = events.Noop{}
	}
	w := &Worker{
		store: st,
		pub:   pub,
		cfg:   cfg.withDefaults(),
		retry: resilience.DefaultRetryConfig(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) retryFor(op string) resilience.RetryConfig {
	cfg := w.retry
	cfg.OnRetry = resilience.RetryLogger("queue", op)
	return cfg
}

// Run processes jobs back to back while any are claimable. When the queue is
// empty it waits one poll interval before claiming again. It stops claiming
// once the budget is spent, or immediately on an empty queue when
// ExitWhenIdle is set. A job still evaluating when the budget runs out is
// cancelled and rescheduled as a timeout.
func (w *Worker) Run(ctx context.Context) (RunSummary, error) {
	var sum RunSummary
	log := zap.L().With(zap.String("component", "queue"))

	budgetCtx, cancel := context.WithTimeout(ctx, w.cfg.Budget)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(w.cfg.PollInterval), 1)
	limiter.Allow()

	start := time.Now()
	for budgetCtx.Err() == nil {
		job, err := resilience.DoVal(ctx, w.retryFor("claim"), func(ctx context.Context) (*model.Job, error) {
			return w.store.ClaimNextJob(ctx, w.now(), w.cfg.Lease)
		})
		if err != nil {
			return sum, eris.Wrap(err, "queue: claim job")
		}
		if job == nil {
			if w.cfg.ExitWhenIdle {
				break
			}
			if err := limiter.Wait(budgetCtx); err != nil {
				break
			}
			continue
		}

		sum.Claimed++
		outcome, err := w.processJob(ctx, budgetCtx, job)
		if err != nil {
			return sum, err
		}
		sum.record(outcome)
	}

	log.Info("worker run finished",
		zap.Int("claimed", sum.Claimed),
		zap.Int("completed", sum.Completed),
		zap.Int("retried", sum.Retried),
		zap.Int("dead_lettered", sum.DeadLettered),
		zap.Int("lease_lost", sum.LeaseLost),
		zap.Duration("elapsed", time.Since(start)),
	)
	return sum, ctx.Err()
}

// ProcessJob evaluates a claimed job and records the outcome. The returned
// error is set only when the outcome itself could not be stored.
func (w *Worker) ProcessJob(ctx context.Context, job *model.Job) (Outcome, error) {
	return w.processJob(ctx, ctx, job)
}

// processJob bounds the evaluation by the lease and by budget, whichever ends
// first. Transitions use ctx so an evaluation cut short by the budget is still
// rescheduled before Run returns.
func (w *Worker) processJob(ctx, budget context.Context, job *model.Job) (Outcome, error) {
	log := zap.L().With(
		zap.String("component", "queue"),
		zap.String("job_id", job.ID),
		zap.String("org_id", job.OrganizationID),
		zap.Int("retry_count", job.RetryCount),
	)

	// A reclaimed job whose expired leases used up the retry budget.
	if job.RetriesExhausted() {
		code := job.ErrorCode
		if code == "" {
			code = string(resilience.CodeLeaseExpired)
		}
		f := store.JobFailure{RetryCount: job.RetryCount, Code: code, Message: job.ErrorMessage}
		return w.finish(ctx, log, job, OutcomeDeadLettered, func(ctx context.Context) error {
			return w.store.DeadLetterJob(ctx, job.ID, job.LeaseToken, f, w.now())
		})
	}

	w.publish(ctx, log, model.StartedEvent(job, w.now()))

	start := time.Now()
	jobCtx, cancel := context.WithTimeout(budget, w.cfg.Lease)
	upserted, pruned, runErr := w.evaluate(jobCtx, job)
	cancel()
	metrics.JobDuration.Observe(time.Since(start).Seconds())

	if runErr == nil {
		outcome, err := w.finish(ctx, log, job, OutcomeCompleted, func(ctx context.Context) error {
			return w.store.CompleteJob(ctx, job.ID, job.LeaseToken, w.now())
		})
		if err == nil && outcome == OutcomeCompleted {
			metrics.EvaluationsUpserted.WithLabelValues(metrics.SourceJob).Add(float64(upserted))
			metrics.EvaluationsPruned.Add(float64(pruned))
			log.Info("job completed", zap.Int64("upserted", upserted), zap.Int64("pruned", pruned))
			w.publish(ctx, log, model.DoneEvent(job, upserted, pruned, w.now()))
		}
		return outcome, err
	}

	now := w.now()
	f := store.JobFailure{
		RetryCount: job.RetryCount + 1,
		Code:       string(resilience.Classify(runErr)),
		Message:    truncate(runErr.Error(), maxErrorMessageLen),
	}
	log = log.With(zap.String("error_code", f.Code), zap.Error(runErr))

	if f.RetryCount <= job.MaxRetries {
		f.RunNotBefore = now.Add(Backoff(f.RetryCount, w.cfg.MaxBackoff))
		log.Warn("job failed, rescheduling", zap.Time("run_not_before", f.RunNotBefore))
		return w.finish(ctx, log, job, OutcomeRetried, func(ctx context.Context) error {
			return w.store.RescheduleJob(ctx, job.ID, job.LeaseToken, f, now)
		})
	}

	return w.finish(ctx, log, job, OutcomeDeadLettered, func(ctx context.Context) error {
		return w.store.DeadLetterJob(ctx, job.ID, job.LeaseToken, f, now)
	})
}

// finish stores a transition. Losing the lease is an outcome, not an error.
func (w *Worker) finish(ctx context.Context, log *zap.Logger, job *model.Job, outcome Outcome, transition func(ctx context.Context) error) (Outcome, error) {
	err := resilience.Do(ctx, w.retryFor(string(outcome)), transition)
	if errors.Is(err, store.ErrLeaseLost) {
		log.Warn("lease lost before recording outcome", zap.String("outcome", string(outcome)))
		metrics.JobsTotal.WithLabelValues(metrics.OutcomeLeaseLost).Inc()
		return OutcomeLeaseLost, nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "queue: record %s for job %s", outcome, job.ID)
	}
	metrics.JobsTotal.WithLabelValues(string(outcome)).Inc()
	if outcome == OutcomeDeadLettered {
		log.Error("job dead-lettered")
	}
	return outcome, nil
}

// evaluate rescores the job's profiles and replaces their stored results.
// Each profile is upserted and cleaned up in its own transaction.
func (w *Worker) evaluate(ctx context.Context, job *model.Job) (int64, int64, error) {
	results, err := evaluate.EvaluateProfiles(ctx, w.store, w.retry, job.OrganizationID, job.AffectedProfileIDs, w.cfg.ProfileConcurrency)
	if err != nil {
		return 0, 0, err
	}

	var upserted, pruned atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.ProfileConcurrency)
	for _, r := range results {
		g.Go(func() error {
			evals, fingerprint := r.Results, r.Fingerprint
			if r.NeedsSweep() {
				evals, fingerprint = nil, scoring.SweepFingerprint
			}
			res, err := resilience.DoVal(gctx, w.retryFor("upsert_with_cleanup"), func(ctx context.Context) (store.CleanupResult, error) {
				return w.store.UpsertWithCleanup(ctx, job.OrganizationID, r.ProfileID, model.CombinationSolo, evals, fingerprint)
			})
			if err != nil {
				return eris.Wrapf(err, "queue: store results for profile %s", r.ProfileID)
			}
			upserted.Add(res.Upserted)
			pruned.Add(res.Pruned)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	return upserted.Load(), pruned.Load(), nil
}

func (w *Worker) publish(ctx context.Context, log *zap.Logger, ev model.Event) {
	if err := w.pub.Publish(ctx, ev); err != nil {
		log.Warn("event publish failed", zap.String("event", string(ev.Type)), zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
