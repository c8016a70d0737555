// Package evaluate applies the scoring engine across tenders and profiles.
// The batch runner fills an organization's evaluation cache; EvaluateProfiles
// is the set-based variant used by queue jobs.
package evaluate

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alexanderksmi/doffin-hunter/internal/metrics"
	"github.com/alexanderksmi/doffin-hunter/internal/model"
	"github.com/alexanderksmi/doffin-hunter/internal/resilience"
	"github.com/alexanderksmi/doffin-hunter/internal/scoring"
	"github.com/alexanderksmi/doffin-hunter/internal/store"
)

// Mode selects which tenders a batch run scores.
type Mode string

const (
	// ModeIncremental scores only tenders the organization has no evaluation for.
	ModeIncremental Mode = "incremental"
	// ModeFull rescores every tender.
	ModeFull Mode = "full"
)

// ParseMode parses a mode name; the empty string means incremental.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeIncremental:
		return ModeIncremental, nil
	case ModeFull:
		return ModeFull, nil
	}
	return "", eris.Errorf("evaluate: unknown mode %q", s)
}

// Store is the storage the runner reads profiles and tenders from and writes
// evaluations to.
type Store interface {
	store.ProfileStore
	store.TenderStore
	store.EvaluationStore
}

// BatchResult summarizes one organization's batch run.
type BatchResult struct {
	OrganizationID string `json:"organization_id"`
	Mode           Mode   `json:"mode"`
	Profiles       int    `json:"profiles"`
	Tenders        int    `json:"tenders"`
	Evaluated      int    `json:"evaluated"`
	Upserted       int64  `json:"upserted"`
	Skipped        int    `json:"skipped"`
}

// RunAllResult summarizes a run over every organization.
type RunAllResult struct {
	Mode    Mode           `json:"mode"`
	Results []*BatchResult `json:"results"`
	Failed  []string       `json:"failed,omitempty"`
}

// Runner runs batch evaluations.
type Runner struct {
	store          Store
	orgConcurrency int
	retry          resilience.RetryConfig
}

// Option configures a Runner.
type Option func(*Runner)

// WithOrgConcurrency bounds how many organizations RunAll processes at once.
func WithOrgConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.orgConcurrency = n
		}
	}
}

// WithRetry sets the retry policy for storage round-trips.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(r *Runner) { r.retry = cfg }
}

// NewRunner creates a Runner over st.
func NewRunner(st Store, opts ...Option) *Runner {
	r := &Runner{
		store:          st,
		orgConcurrency: 2,
		retry:          resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) retryFor(op string) resilience.RetryConfig {
	cfg := r.retry
	cfg.OnRetry = resilience.RetryLogger("evaluate", op)
	return cfg
}

// RunBatch scores an organization's tenders against its own profile and every
// partner profile and upserts the results. Nothing is pruned. An organization
// without profiles, or without an own profile, is a no-op.
func (r *Runner) RunBatch(ctx context.Context, orgID string, mode Mode) (*BatchResult, error) {
	log := zap.L().With(
		zap.String("component", "evaluate"),
		zap.String("org_id", orgID),
		zap.String("mode", string(mode)),
	)
	res := &BatchResult{OrganizationID: orgID, Mode: mode}
	metrics.BatchRuns.WithLabelValues(string(mode)).Inc()

	profiles, err := resilience.DoVal(ctx, r.retryFor("list_profiles"), func(ctx context.Context) ([]model.Profile, error) {
		return r.store.ListProfiles(ctx, orgID)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "evaluate: load profiles for %s", orgID)
	}
	res.Profiles = len(profiles)
	if len(profiles) == 0 {
		log.Info("no profiles, skipping organization")
		return res, nil
	}
	own := model.OwnProfile(profiles)
	if own == nil {
		log.Info("no own profile, skipping organization", zap.Int("profiles", len(profiles)))
		return res, nil
	}
	worklist := soloWorklist(*own, profiles)

	tenders, err := resilience.DoVal(ctx, r.retryFor("list_tenders"), func(ctx context.Context) ([]model.Tender, error) {
		return r.store.ListTenders(ctx, orgID)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "evaluate: load tenders for %s", orgID)
	}

	if mode == ModeIncremental {
		seen, err := resilience.DoVal(ctx, r.retryFor("evaluated_tenders"), func(ctx context.Context) (map[string]bool, error) {
			return r.store.EvaluatedTenderIDs(ctx, orgID)
		})
		if err != nil {
			return nil, eris.Wrapf(err, "evaluate: load evaluated tenders for %s", orgID)
		}
		fresh := tenders[:0:0]
		for _, t := range tenders {
			if seen[t.ID] {
				res.Skipped++
				continue
			}
			fresh = append(fresh, t)
		}
		tenders = fresh
	}
	res.Tenders = len(tenders)
	if len(tenders) == 0 {
		log.Info("no tenders to evaluate", zap.Int("skipped", res.Skipped))
		return res, nil
	}

	now := time.Now().UTC()
	evals := make([]model.Evaluation, 0, len(tenders)*len(worklist))
	for _, t := range tenders {
		for _, p := range worklist {
			ev := scoring.Score(t, p)
			ev.OrganizationID = orgID
			ev.EvaluatedAt = now
			evals = append(evals, ev)
		}
	}
	res.Evaluated = len(evals)

	res.Upserted, err = resilience.DoVal(ctx, r.retryFor("upsert_evaluations"), func(ctx context.Context) (int64, error) {
		return r.store.UpsertEvaluations(ctx, evals)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "evaluate: upsert evaluations for %s", orgID)
	}
	metrics.EvaluationsUpserted.WithLabelValues(metrics.SourceBatch).Add(float64(res.Upserted))

	log.Info("batch evaluation complete",
		zap.Int("profiles", len(worklist)),
		zap.Int("tenders", res.Tenders),
		zap.Int("skipped", res.Skipped),
		zap.Int("evaluated", res.Evaluated),
		zap.Int64("upserted", res.Upserted),
	)
	return res, nil
}

// RunAll runs RunBatch for every organization with profiles or tenders. A
// failing organization is logged and recorded; it does not stop the others.
func (r *Runner) RunAll(ctx context.Context, mode Mode) (*RunAllResult, error) {
	orgs, err := resilience.DoVal(ctx, r.retryFor("list_organizations"), r.store.ListOrganizations)
	if err != nil {
		return nil, eris.Wrap(err, "evaluate: list organizations")
	}

	log := zap.L().With(zap.String("component", "evaluate"), zap.Int("organizations", len(orgs)))
	log.Info("starting batch evaluation", zap.String("mode", string(mode)))
	start := time.Now()

	results := make([]*BatchResult, len(orgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.orgConcurrency)
	for i, org := range orgs {
		g.Go(func() error {
			res, err := r.RunBatch(gctx, org, mode)
			if err != nil {
				zap.L().Error("organization evaluation failed",
					zap.String("org_id", org),
					zap.Error(err))
				return nil // don't abort other organizations
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	out := &RunAllResult{Mode: mode, Results: []*BatchResult{}}
	for i, res := range results {
		if res == nil {
			out.Failed = append(out.Failed, orgs[i])
			continue
		}
		out.Results = append(out.Results, res)
	}

	log.Info("batch evaluation finished",
		zap.Int("succeeded", len(out.Results)),
		zap.Int("failed", len(out.Failed)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// soloWorklist puts the own profile first, followed by every other profile.
func soloWorklist(own model.Profile, profiles []model.Profile) []model.Profile {
	list := []model.Profile{own}
	for _, p := range profiles {
		if p.ID != own.ID {
			list = append(list, p)
		}
	}
	return list
}
