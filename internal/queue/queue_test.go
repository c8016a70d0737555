package queue

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
	"github.com/alexanderksmi/doffin-hunter/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedOrg(t *testing.T, st *store.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.SaveProfiles(ctx, []model.Profile{
		{
			ID:                  "own",
			OrganizationID:      "org-1",
			IsOwnProfile:        true,
			MinimumRequirements: []model.MinimumRequirement{{Keyword: "programvare"}},
			SupportKeywords:     []model.WeightedKeyword{{Keyword: "drift", Weight: 2}},
			CPVCodes:            []model.CPVCode{{Code: "7200", Weight: 1}},
		},
		{
			ID:                  "partner",
			OrganizationID:      "org-1",
			MinimumRequirements: []model.MinimumRequirement{{Keyword: "renhold"}},
		},
	}))
	require.NoError(t, st.SaveTenders(ctx, []model.Tender{
		{ID: "t1", OrganizationID: "org-1", Title: "Drift av programvare", CPVCodes: []string{"72000000"}},
		{ID: "t2", OrganizationID: "org-1", Title: "Renhold av kontorlokaler"},
		{ID: "t3", OrganizationID: "org-1", Title: "Snørydding"},
	}))
}

// testClock is a settable clock truncated to the store's millisecond precision.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Now().UTC().Add(time.Second).Truncate(time.Millisecond)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Event(nil), p.events...)
}

// failingStore fails every result write.
type failingStore struct {
	*store.SQLiteStore
}

func (f *failingStore) UpsertWithCleanup(context.Context, string, string, model.CombinationType, []model.Evaluation, string) (store.CleanupResult, error) {
	return store.CleanupResult{}, errors.New("permission denied for table evaluations")
}

// slowStore takes delay to list tenders unless ctx ends first.
type slowStore struct {
	*store.SQLiteStore
	delay time.Duration
}

func (s *slowStore) ListTenders(ctx context.Context, orgID string) ([]model.Tender, error) {
	select {
	case <-time.After(s.delay):
		return s.SQLiteStore.ListTenders(ctx, orgID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func drainConfig() Config {
	cfg := DefaultConfig()
	cfg.ExitWhenIdle = true
	cfg.Budget = 10 * time.Second
	return cfg
}

func TestEnqueue(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	job, err := Enqueue(ctx, st, "org-1", []string{"p2", " p1", "p2", ""}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, job.AffectedProfileIDs)
	assert.Equal(t, model.JobStatusPending, job.Status)

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, got.AffectedProfileIDs)
	assert.Equal(t, 5, got.MaxRetries)
	assert.Equal(t, 0, got.RetryCount)
	assert.WithinDuration(t, time.Now(), got.RunNotBefore, 5*time.Second)
}

func TestEnqueue_Rejects(t *testing.T) {
	st := newTestStore(t)

	_, err := Enqueue(context.Background(), st, "org-1", []string{" ", ""}, 5)
	assert.ErrorIs(t, err, ErrNoProfiles)

	_, err = Enqueue(context.Background(), st, "", []string{"p1"}, 5)
	assert.ErrorIs(t, err, ErrNoOrganization)
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		retry int
		max   time.Duration
		want  time.Duration
	}{
		{0, time.Hour, time.Second},
		{1, time.Hour, 2 * time.Second},
		{3, time.Hour, 8 * time.Second},
		{6, time.Hour, 64 * time.Second},
		{12, time.Hour, time.Hour},
		{100, time.Hour, time.Hour},
		{3, 5 * time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(tt.retry, tt.max), "retry=%d", tt.retry)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{MaxRetries: -1}.withDefaults()
	assert.Equal(t, DefaultConfig(), cfg)

	cfg = Config{MaxRetries: 0, Lease: time.Minute}.withDefaults()
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, time.Minute, cfg.Lease)
}
