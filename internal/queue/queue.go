// Package queue runs evaluation jobs. Jobs are claimed atomically from the
// job store under a lease, processed, and then completed, rescheduled with
// exponential backoff, or moved to the dead letter state.
package queue

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
	"github.com/alexanderksmi/doffin-hunter/internal/store"
)

var (
	ErrNoOrganization = eris.New("queue: organization id is required")
	ErrNoProfiles     = eris.New("queue: at least one affected profile is required")
)

// Config controls the worker loop and retry policy.
type Config struct {
	MaxRetries         int
	PollInterval       time.Duration
	Budget             time.Duration
	Lease              time.Duration
	MaxBackoff         time.Duration
	ProfileConcurrency int
	// ExitWhenIdle makes Run return as soon as the queue is empty instead of
	// polling until the budget is spent.
	ExitWhenIdle bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:         5,
		PollInterval:       2 * time.Second,
		Budget:             50 * time.Second,
		Lease:              2 * time.Minute,
		MaxBackoff:         time.Hour,
		ProfileConcurrency: 4,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxRetries < 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.Budget <= 0 {
		c.Budget = def.Budget
	}
	if c.Lease <= 0 {
		c.Lease = def.Lease
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.ProfileConcurrency <= 0 {
		c.ProfileConcurrency = def.ProfileConcurrency
	}
	return c
}

// Enqueue creates a pending job that re-evaluates profileIDs for orgID. The
// IDs are trimmed, deduplicated and sorted.
func Enqueue(ctx context.Context, st store.JobStore, orgID string, profileIDs []string, maxRetries int) (*model.Job, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, ErrNoOrganization
	}
	ids := normalizeIDs(profileIDs)
	if len(ids) == 0 {
		return nil, ErrNoProfiles
	}
	if maxRetries < 0 {
		maxRetries = DefaultConfig().MaxRetries
	}

	now := time.Now().UTC()
	job := &model.Job{
		ID:                 uuid.NewString(),
		OrganizationID:     orgID,
		AffectedProfileIDs: ids,
		Status:             model.JobStatusPending,
		MaxRetries:         maxRetries,
		RunNotBefore:       now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := st.InsertJob(ctx, job); err != nil {
		return nil, eris.Wrap(err, "queue: enqueue")
	}

	zap.L().Info("job enqueued",
		zap.String("job_id", job.ID),
		zap.String("org_id", orgID),
		zap.Strings("profile_ids", ids),
	)
	return job, nil
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Backoff returns the delay before attempt number retry: 2^retry seconds,
// capped at limit.
func Backoff(retry int, limit time.Duration) time.Duration {
	if retry < 0 {
		retry = 0
	}
	if retry >= 40 {
		return limit
	}
	d := time.Duration(1<<uint(retry)) * time.Second
	if limit > 0 && d > limit {
		return limit
	}
	return d
}
