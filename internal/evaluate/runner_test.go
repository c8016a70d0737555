package evaluate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
	"github.com/alexanderksmi/doffin-hunter/internal/resilience"
	"github.com/alexanderksmi/doffin-hunter/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "eval.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func ownProfile(org string) model.Profile {
	return model.Profile{
		ID:                  org + "-own",
		OrganizationID:      org,
		Name:                "Konsulent AS",
		IsOwnProfile:        true,
		MinimumRequirements: []model.MinimumRequirement{{Keyword: "programvare"}},
		SupportKeywords:     []model.WeightedKeyword{{Keyword: "drift", Weight: 2}},
		NegativeKeywords:    []model.WeightedKeyword{{Keyword: "vedlikehold", Weight: -3}},
		CPVCodes:            []model.CPVCode{{Code: "7200", Weight: 1}},
	}
}

func partnerProfile(org string) model.Profile {
	return model.Profile{
		ID:                  org + "-partner",
		OrganizationID:      org,
		Name:                "Renhold AS",
		MinimumRequirements: []model.MinimumRequirement{{Keyword: "renhold"}},
		SupportKeywords:     []model.WeightedKeyword{{Keyword: "kontor", Weight: 1}},
	}
}

func tenders(org string) []model.Tender {
	return []model.Tender{
		{ID: org + "-t1", OrganizationID: org, Title: "Drift av programvare", CPVCodes: []string{"72000000"}},
		{ID: org + "-t2", OrganizationID: org, Title: "Renhold av kontorlokaler"},
		{ID: org + "-t3", OrganizationID: org, Title: "Snørydding", Body: "Brøyting av parkeringsplass"},
	}
}

func seed(t *testing.T, st *store.SQLiteStore, org string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.SaveProfiles(ctx, []model.Profile{ownProfile(org), partnerProfile(org)}))
	require.NoError(t, st.SaveTenders(ctx, tenders(org)))
}

func listAll(t *testing.T, st store.EvaluationStore, org string) []model.Evaluation {
	t.Helper()
	evals, err := st.ListEvaluations(context.Background(), store.EvaluationFilter{OrganizationID: org, Limit: 1000})
	require.NoError(t, err)
	return evals
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeIncremental, m)

	m, err = ParseMode("full")
	require.NoError(t, err)
	assert.Equal(t, ModeFull, m)

	_, err = ParseMode("partial")
	assert.Error(t, err)
}

func TestRunBatch_Full(t *testing.T) {
	st := newTestStore(t)
	seed(t, st, "org-1")

	res, err := NewRunner(st).RunBatch(context.Background(), "org-1", ModeFull)
	require.NoError(t, err)
	assert.Equal(t, &BatchResult{
		OrganizationID: "org-1",
		Mode:           ModeFull,
		Profiles:       2,
		Tenders:        3,
		Evaluated:      6,
		Upserted:       6,
	}, res)

	evals := listAll(t, st, "org-1")
	require.Len(t, evals, 6)
	byKey := make(map[model.EvaluationKey]model.Evaluation)
	for _, ev := range evals {
		byKey[ev.Key()] = ev
	}

	t1 := byKey[model.EvaluationKey{TenderID: "org-1-t1", OrganizationID: "org-1", LeadProfileID: "org-1-own"}]
	assert.True(t, t1.AllMinimumRequirementsMet)
	assert.Equal(t, 3, t1.TotalScore)
	assert.Equal(t, model.CombinationSolo, t1.CombinationType)

	t2 := byKey[model.EvaluationKey{TenderID: "org-1-t2", OrganizationID: "org-1", LeadProfileID: "org-1-partner"}]
	assert.True(t, t2.AllMinimumRequirementsMet)
	assert.Equal(t, 1, t2.TotalScore)

	t3 := byKey[model.EvaluationKey{TenderID: "org-1-t3", OrganizationID: "org-1", LeadProfileID: "org-1-own"}]
	assert.False(t, t3.AllMinimumRequirementsMet)
	assert.Equal(t, 0, t3.TotalScore)
}

func TestRunBatch_TwoFullRunsAreIdempotent(t *testing.T) {
	st := newTestStore(t)
	seed(t, st, "org-1")
	r := NewRunner(st)

	_, err := r.RunBatch(context.Background(), "org-1", ModeFull)
	require.NoError(t, err)
	first := listAll(t, st, "org-1")

	_, err = r.RunBatch(context.Background(), "org-1", ModeFull)
	require.NoError(t, err)
	second := listAll(t, st, "org-1")

	require.Len(t, second, len(first))
	for i := range first {
		first[i].EvaluatedAt = time.Time{}
		second[i].EvaluatedAt = time.Time{}
	}
	assert.Equal(t, first, second)
}

func TestRunBatch_IncrementalSkipsEvaluatedTenders(t *testing.T) {
	st := newTestStore(t)
	seed(t, st, "org-1")
	r := NewRunner(st)
	ctx := context.Background()

	_, err := r.RunBatch(ctx, "org-1", ModeIncremental)
	require.NoError(t, err)

	res, err := r.RunBatch(ctx, "org-1", ModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, 0, res.Tenders)
	assert.Equal(t, int64(0), res.Upserted)

	require.NoError(t, st.SaveTenders(ctx, []model.Tender{
		{ID: "org-1-t4", OrganizationID: "org-1", Title: "Ny programvare for kontor"},
	}))
	res, err = r.RunBatch(ctx, "org-1", ModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, 1, res.Tenders)
	assert.Equal(t, 2, res.Evaluated)
	assert.Len(t, listAll(t, st, "org-1"), 8)
}

func TestRunBatch_NoProfiles(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.SaveTenders(context.Background(), tenders("org-1")))

	res, err := NewRunner(st).RunBatch(context.Background(), "org-1", ModeFull)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Profiles)
	assert.Equal(t, 0, res.Evaluated)
	assert.Empty(t, listAll(t, st, "org-1"))
}

func TestRunBatch_NoOwnProfile(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.SaveProfiles(ctx, []model.Profile{partnerProfile("org-1")}))
	require.NoError(t, st.SaveTenders(ctx, tenders("org-1")))

	res, err := NewRunner(st).RunBatch(ctx, "org-1", ModeFull)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Profiles)
	assert.Equal(t, 0, res.Evaluated)
	assert.Empty(t, listAll(t, st, "org-1"))
}

// failingStore fails profile loads for one organization.
type failingStore struct {
	*store.SQLiteStore
	failOrg string
}

func (f *failingStore) ListProfiles(ctx context.Context, orgID string) ([]model.Profile, error) {
	if orgID == f.failOrg {
		return nil, errors.New("permission denied for table profiles")
	}
	return f.SQLiteStore.ListProfiles(ctx, orgID)
}

func TestRunBatch_StorageErrorAborts(t *testing.T) {
	st := newTestStore(t)
	seed(t, st, "org-1")

	_, err := NewRunner(&failingStore{SQLiteStore: st, failOrg: "org-1"}).RunBatch(context.Background(), "org-1", ModeFull)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluate: load profiles for org-1")
	assert.Equal(t, resilience.CodeAccessDenied, resilience.Classify(err))
}

func TestRunAll_ContinuesPastFailingOrganization(t *testing.T) {
	st := newTestStore(t)
	seed(t, st, "org-a")
	seed(t, st, "org-b")
	seed(t, st, "org-c")

	r := NewRunner(&failingStore{SQLiteStore: st, failOrg: "org-b"}, WithOrgConcurrency(2))
	res, err := r.RunAll(context.Background(), ModeFull)
	require.NoError(t, err)

	assert.Equal(t, []string{"org-b"}, res.Failed)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "org-a", res.Results[0].OrganizationID)
	assert.Equal(t, "org-c", res.Results[1].OrganizationID)
	assert.Len(t, listAll(t, st, "org-a"), 6)
	assert.Empty(t, listAll(t, st, "org-b"))
	assert.Len(t, listAll(t, st, "org-c"), 6)
}

func TestSoloWorklist_OwnFirst(t *testing.T) {
	own := ownProfile("o")
	list := soloWorklist(own, []model.Profile{partnerProfile("o"), own})
	require.Len(t, list, 2)
	assert.Equal(t, "o-own", list[0].ID)
	assert.Equal(t, "o-partner", list[1].ID)
}
