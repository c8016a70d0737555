package evaluate

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
	"github.com/alexanderksmi/doffin-hunter/internal/resilience"
	"github.com/alexanderksmi/doffin-hunter/internal/scoring"
)

// Source provides the profiles and tenders EvaluateProfiles reads.
type Source interface {
	GetProfiles(ctx context.Context, orgID string, ids []string) ([]model.Profile, error)
	ListTenders(ctx context.Context, orgID string) ([]model.Tender, error)
}

// ProfileResult holds the qualifying evaluations of one profile.
type ProfileResult struct {
	ProfileID string
	// Found is false when the profile no longer exists.
	Found       bool
	Fingerprint string
	Results     []model.Evaluation
}

// NeedsSweep reports whether the profile produced nothing to keep, either
// because it was deleted or because no tender qualified.
func (r ProfileResult) NeedsSweep() bool {
	return !r.Found || len(r.Results) == 0
}

// EvaluateProfiles scores every current tender of orgID against each of
// profileIDs and returns one result per ID, in input order, holding only the
// qualifying evaluations. Profiles are scored in parallel, at most
// concurrency at a time.
func EvaluateProfiles(ctx context.Context, src Source, retry resilience.RetryConfig, orgID string, profileIDs []string, concurrency int) ([]ProfileResult, error) {
	if len(profileIDs) == 0 {
		return []ProfileResult{}, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	retry.OnRetry = resilience.RetryLogger("evaluate", "get_profiles")
	profiles, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]model.Profile, error) {
		return src.GetProfiles(ctx, orgID, profileIDs)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "evaluate: load profiles for %s", orgID)
	}

	retry.OnRetry = resilience.RetryLogger("evaluate", "list_tenders")
	tenders, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]model.Tender, error) {
		return src.ListTenders(ctx, orgID)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "evaluate: load tenders for %s", orgID)
	}

	byID := make(map[string]model.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	now := time.Now().UTC()
	out := make([]ProfileResult, len(profileIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range profileIDs {
		p, ok := byID[id]
		if !ok {
			out[i] = ProfileResult{ProfileID: id, Fingerprint: scoring.SweepFingerprint, Results: []model.Evaluation{}}
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = scoreProfile(orgID, p, tenders, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "evaluate: score profiles")
	}
	return out, nil
}

func scoreProfile(orgID string, p model.Profile, tenders []model.Tender, now time.Time) ProfileResult {
	res := ProfileResult{
		ProfileID:   p.ID,
		Found:       true,
		Fingerprint: scoring.Fingerprint(p),
		Results:     []model.Evaluation{},
	}
	for _, t := range tenders {
		ev := scoring.Score(t, p)
		if !ev.Qualifies() {
			continue
		}
		ev.OrganizationID = orgID
		ev.EvaluatedAt = now
		res.Results = append(res.Results, ev)
	}
	return res
}
