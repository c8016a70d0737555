// Package store persists profiles, tenders, evaluations and evaluation jobs
// in Postgres (pgx) or SQLite (modernc).
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
)

var (
	// ErrJobNotFound is returned when no job has the requested id.
	ErrJobNotFound = eris.New("store: job not found")
	// ErrLeaseLost is returned when a job transition is attempted with a lease
	// token that no longer holds the job, e.g. after another worker reclaimed it.
	ErrLeaseLost = eris.New("store: job lease lost")
	// ErrNotDeadLettered is returned when requeueing a job that is not in dead_letter.
	ErrNotDeadLettered = eris.New("store: job is not dead-lettered")
)

// CleanupResult reports what UpsertWithCleanup changed.
type CleanupResult struct {
	Upserted int64 `json:"upserted"`
	Pruned   int64 `json:"pruned"`
}

// JobFailure carries the outcome of a failed job attempt.
type JobFailure struct {
	RetryCount   int
	RunNotBefore time.Time // ignored when dead-lettering
	Code         string
	Message      string
}

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status         model.JobStatus `json:"status,omitempty"`
	OrganizationID string          `json:"organization_id,omitempty"`
	Limit          int             `json:"limit,omitempty"`
}

// EvaluationFilter specifies criteria for listing evaluations.
type EvaluationFilter struct {
	OrganizationID string `json:"organization_id"`
	ProfileID      string `json:"profile_id,omitempty"`
	QualifiedOnly  bool   `json:"qualified_only,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}

// QueueStats counts jobs per status. OldestPending is the earliest
// run_not_before among pending jobs: how long a job has been claimable without
// being claimed. A job backing off after a failure is not counted as waiting.
type QueueStats struct {
	Pending       int64      `json:"pending"`
	Running       int64      `json:"running"`
	Completed     int64      `json:"completed"`
	DeadLetter    int64      `json:"dead_letter"`
	OldestPending *time.Time `json:"oldest_pending,omitempty"`
}

// ProfileStore reads and writes organization profiles.
type ProfileStore interface {
	ListProfiles(ctx context.Context, orgID string) ([]model.Profile, error)
	GetProfiles(ctx context.Context, orgID string, ids []string) ([]model.Profile, error)
	SaveProfiles(ctx context.Context, profiles []model.Profile) error
}

// TenderStore reads and writes normalized tenders.
type TenderStore interface {
	ListTenders(ctx context.Context, orgID string) ([]model.Tender, error)
	SaveTenders(ctx context.Context, tenders []model.Tender) error
	ListOrganizations(ctx context.Context) ([]string, error)
}

// EvaluationStore persists scoring results.
type EvaluationStore interface {
	// EvaluatedTenderIDs returns every tender that has at least one
	// evaluation row for the organization.
	EvaluatedTenderIDs(ctx context.Context, orgID string) (map[string]bool, error)
	// UpsertEvaluations writes rows keyed by (tender, organization, lead
	// profile) without removing anything.
	UpsertEvaluations(ctx context.Context, evals []model.Evaluation) (int64, error)
	// UpsertWithCleanup, in one transaction, upserts results and deletes every
	// row of (orgID, profileID, combination) whose fingerprint differs from
	// fingerprint and whose tender is not among results.
	UpsertWithCleanup(ctx context.Context, orgID, profileID string, combination model.CombinationType, results []model.Evaluation, fingerprint string) (CleanupResult, error)
	ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]model.Evaluation, error)
}

// JobStore is the durable evaluation job queue. Claiming is the only
// synchronization point between workers; every later transition is guarded
// by the lease token handed out at claim time.
type JobStore interface {
	InsertJob(ctx context.Context, job *model.Job) error
	// ClaimNextJob atomically claims one eligible job, or returns (nil, nil).
	// Eligible: pending with run_not_before <= now, or running with an
	// expired lease. Reclaiming an expired lease counts as a failed attempt.
	ClaimNextJob(ctx context.Context, now time.Time, lease time.Duration) (*model.Job, error)
	CompleteJob(ctx context.Context, id, leaseToken string, at time.Time) error
	RescheduleJob(ctx context.Context, id, leaseToken string, f JobFailure, at time.Time) error
	DeadLetterJob(ctx context.Context, id, leaseToken string, f JobFailure, at time.Time) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)
	// RequeueJob moves a dead-lettered job back to pending with a fresh retry budget.
	RequeueJob(ctx context.Context, id string, now time.Time) error
	QueueStats(ctx context.Context) (QueueStats, error)
}

// Store is the full persistence interface.
type Store interface {
	ProfileStore
	TenderStore
	EvaluationStore
	JobStore

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

// stampEvaluatedAt returns ev.EvaluatedAt, or now when the caller left it zero.
func stampEvaluatedAt(ev *model.Evaluation, now time.Time) time.Time {
	if ev.EvaluatedAt.IsZero() {
		return now
	}
	return ev.EvaluatedAt.UTC()
}
