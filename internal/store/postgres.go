package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/alexanderksmi/doffin-hunter/internal/db"
	"github.com/alexanderksmi/doffin-hunter/internal/model"
	"github.com/alexanderksmi/doffin-hunter/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
	now  func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute
	pgxCfg.ConnConfig.RuntimeParams["application_name"] = "doffin-hunter"

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return NewPostgresFromPool(pool), nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Pool returns the underlying pool, e.g. for the pg_notify event publisher.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// migrationLockKey serializes concurrent `migrate` runs.
const migrationLockKey = 7_202_601

const postgresMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	id                   TEXT PRIMARY KEY,
	organization_id      TEXT NOT NULL,
	name                 TEXT NOT NULL DEFAULT '',
	is_own_profile       BOOLEAN NOT NULL DEFAULT false,
	minimum_requirements JSONB NOT NULL DEFAULT '[]',
	support_keywords     JSONB NOT NULL DEFAULT '[]',
	negative_keywords    JSONB NOT NULL DEFAULT '[]',
	cpv_codes            JSONB NOT NULL DEFAULT '[]',
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_profiles_org ON profiles(organization_id);

CREATE TABLE IF NOT EXISTS tenders (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	body            TEXT NOT NULL DEFAULT '',
	cpv_codes       TEXT[] NOT NULL DEFAULT '{}',
	deadline        TIMESTAMPTZ,
	published_date  TIMESTAMPTZ,
	url             TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_tenders_org ON tenders(organization_id);

CREATE TABLE IF NOT EXISTS evaluations (
	tender_id                    TEXT NOT NULL,
	organization_id              TEXT NOT NULL,
	lead_profile_id              TEXT NOT NULL,
	partner_profile_id           TEXT NOT NULL DEFAULT '',
	combination_type             TEXT NOT NULL DEFAULT 'solo',
	all_minimum_requirements_met BOOLEAN NOT NULL,
	met_requirements             JSONB NOT NULL DEFAULT '[]',
	missing_requirements         JSONB NOT NULL DEFAULT '[]',
	support_score                INTEGER NOT NULL DEFAULT 0,
	negative_score               INTEGER NOT NULL DEFAULT 0,
	cpv_score                    INTEGER NOT NULL DEFAULT 0,
	synergy_bonus                INTEGER NOT NULL DEFAULT 0,
	total_score                  INTEGER NOT NULL DEFAULT 0,
	matched_support_keywords     JSONB NOT NULL DEFAULT '[]',
	matched_negative_keywords    JSONB NOT NULL DEFAULT '[]',
	matched_cpv_codes            JSONB NOT NULL DEFAULT '[]',
	explanation                  TEXT NOT NULL DEFAULT '',
	criteria_fingerprint         TEXT NOT NULL DEFAULT '',
	evaluated_at                 TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (tender_id, organization_id, lead_profile_id)
);

CREATE INDEX IF NOT EXISTS idx_evaluations_org_profile ON evaluations(organization_id, lead_profile_id);

CREATE TABLE IF NOT EXISTS evaluation_jobs (
	id                   TEXT PRIMARY KEY,
	organization_id      TEXT NOT NULL,
	affected_profile_ids TEXT[] NOT NULL,
	status               TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'running', 'completed', 'dead_letter')),
	retry_count          INTEGER NOT NULL DEFAULT 0,
	max_retries          INTEGER NOT NULL DEFAULT 5,
	run_not_before       TIMESTAMPTZ NOT NULL DEFAULT now(),
	error_message        TEXT NOT NULL DEFAULT '',
	error_code           TEXT NOT NULL DEFAULT '',
	lease_token          TEXT NOT NULL DEFAULT '',
	lease_expires_at     TIMESTAMPTZ,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at         TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_evaluation_jobs_claim ON evaluation_jobs(status, run_not_before);
CREATE INDEX IF NOT EXISTS idx_evaluation_jobs_org ON evaluation_jobs(organization_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Migrate applies the schema under a transaction-scoped advisory lock.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockKey); err != nil {
			return eris.Wrap(err, "acquire migration lock")
		}
		_, err := tx.Exec(ctx, postgresMigration)
		return err
	})
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- Profiles ---

const profileColumns = `id, organization_id, name, is_own_profile, minimum_requirements, support_keywords, negative_keywords, cpv_codes`

func (s *PostgresStore) ListProfiles(ctx context.Context, orgID string) ([]model.Profile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE organization_id = $1 ORDER BY is_own_profile DESC, id`,
		orgID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list profiles for %s", orgID)
	}
	return collectProfiles(rows)
}

func (s *PostgresStore) GetProfiles(ctx context.Context, orgID string, ids []string) ([]model.Profile, error) {
	if len(ids) == 0 {
		return []model.Profile{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE organization_id = $1 AND id = ANY($2) ORDER BY id`,
		orgID, ids,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get profiles for %s", orgID)
	}
	return collectProfiles(rows)
}

func collectProfiles(rows pgx.Rows) ([]model.Profile, error) {
	defer rows.Close()

	profiles := []model.Profile{}
	for rows.Next() {
		var p model.Profile
		var minReq, support, negative, cpv []byte
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.IsOwnProfile, &minReq, &support, &negative, &cpv); err != nil {
			return nil, eris.Wrap(err, "postgres: scan profile")
		}
		if err := decodeCriteria(&p, minReq, support, negative, cpv); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode profile %s", p.ID)
		}
		profiles = append(profiles, p)
	}
	return profiles, eris.Wrap(rows.Err(), "postgres: list profiles iterate")
}

var profileUpsert = db.UpsertConfig{
	Table: "profiles",
	Columns: []string{
		"id", "organization_id", "name", "is_own_profile",
		"minimum_requirements", "support_keywords", "negative_keywords", "cpv_codes", "updated_at",
	},
	ConflictKeys: []string{"id"},
}

func (s *PostgresStore) SaveProfiles(ctx context.Context, profiles []model.Profile) error {
	now := s.now()
	rows := make([][]any, 0, len(profiles))
	for _, p := range profiles {
		c, err := encodeCriteria(p)
		if err != nil {
			return eris.Wrapf(err, "postgres: encode profile %s", p.ID)
		}
		rows = append(rows, []any{
			p.ID, p.OrganizationID, p.Name, p.IsOwnProfile,
			c.minReq, c.support, c.negative, c.cpv, now,
		})
	}
	_, err := db.BulkUpsert(ctx, s.pool, profileUpsert, rows)
	return eris.Wrap(err, "postgres: save profiles")
}

// --- Tenders ---

func (s *PostgresStore) ListTenders(ctx context.Context, orgID string) ([]model.Tender, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, organization_id, title, body, cpv_codes, deadline, published_date, url
		 FROM tenders WHERE organization_id = $1 ORDER BY id`,
		orgID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list tenders for %s", orgID)
	}
	defer rows.Close()

	tenders := []model.Tender{}
	for rows.Next() {
		var t model.Tender
		if err := rows.Scan(&t.ID, &t.OrganizationID, &t.Title, &t.Body, &t.CPVCodes, &t.Deadline, &t.PublishedDate, &t.URL); err != nil {
			return nil, eris.Wrap(err, "postgres: scan tender")
		}
		tenders = append(tenders, t)
	}
	return tenders, eris.Wrap(rows.Err(), "postgres: list tenders iterate")
}

var tenderUpsert = db.UpsertConfig{
	Table:        "tenders",
	Columns:      []string{"id", "organization_id", "title", "body", "cpv_codes", "deadline", "published_date", "url"},
	ConflictKeys: []string{"id"},
}

func (s *PostgresStore) SaveTenders(ctx context.Context, tenders []model.Tender) error {
	rows := make([][]any, 0, len(tenders))
	for _, t := range tenders {
		codes := t.CPVCodes
		if codes == nil {
			codes = []string{}
		}
		rows = append(rows, []any{t.ID, t.OrganizationID, t.Title, t.Body, codes, t.Deadline, t.PublishedDate, t.URL})
	}
	_, err := db.BulkUpsert(ctx, s.pool, tenderUpsert, rows)
	return eris.Wrap(err, "postgres: save tenders")
}

func (s *PostgresStore) ListOrganizations(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT organization_id FROM profiles UNION SELECT organization_id FROM tenders ORDER BY 1`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list organizations")
	}
	defer rows.Close()

	var orgs []string
	for rows.Next() {
		var org string
		if err := rows.Scan(&org); err != nil {
			return nil, eris.Wrap(err, "postgres: scan organization")
		}
		orgs = append(orgs, org)
	}
	return orgs, eris.Wrap(rows.Err(), "postgres: list organizations iterate")
}

// --- Evaluations ---

var evaluationUpsert = db.UpsertConfig{
	Table:        "evaluations",
	Columns:      evaluationColumns,
	ConflictKeys: []string{"tender_id", "organization_id", "lead_profile_id"},
}

func (s *PostgresStore) EvaluatedTenderIDs(ctx context.Context, orgID string) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT tender_id FROM evaluations WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: evaluated tenders for %s", orgID)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan tender id")
		}
		ids[id] = true
	}
	return ids, eris.Wrap(rows.Err(), "postgres: evaluated tenders iterate")
}

func (s *PostgresStore) evaluationRows(evals []model.Evaluation) ([][]any, error) {
	now := s.now()
	rows := make([][]any, 0, len(evals))
	for i := range evals {
		row, err := evaluationRow(&evals[i], stampEvaluatedAt(&evals[i], now))
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *PostgresStore) UpsertEvaluations(ctx context.Context, evals []model.Evaluation) (int64, error) {
	rows, err := s.evaluationRows(evals)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: encode evaluations")
	}
	n, err := db.BulkUpsert(ctx, s.pool, evaluationUpsert, rows)
	return n, eris.Wrap(err, "postgres: upsert evaluations")
}

func (s *PostgresStore) UpsertWithCleanup(ctx context.Context, orgID, profileID string, combination model.CombinationType, results []model.Evaluation, fingerprint string) (CleanupResult, error) {
	rows, err := s.evaluationRows(results)
	if err != nil {
		return CleanupResult{}, eris.Wrap(err, "postgres: encode evaluations")
	}
	keep := make([]string, 0, len(results))
	for _, ev := range results {
		keep = append(keep, ev.TenderID)
	}

	var res CleanupResult
	err = db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		n, err := db.BulkUpsertTx(ctx, tx, evaluationUpsert, rows)
		if err != nil {
			return err
		}
		res.Upserted = n

		tag, err := tx.Exec(ctx,
			`DELETE FROM evaluations
			 WHERE organization_id = $1 AND lead_profile_id = $2 AND combination_type = $3
			   AND criteria_fingerprint <> $4 AND NOT (tender_id = ANY($5))`,
			orgID, profileID, string(combination), fingerprint, keep,
		)
		if err != nil {
			return eris.Wrap(err, "prune stale evaluations")
		}
		res.Pruned = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return CleanupResult{}, eris.Wrapf(err, "postgres: upsert with cleanup for profile %s", profileID)
	}
	return res, nil
}

func (s *PostgresStore) ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]model.Evaluation, error) {
	query := `SELECT ` + joinColumns(evaluationColumns) + ` FROM evaluations WHERE organization_id = $1`
	args := []any{filter.OrganizationID}
	argIdx := 2

	if filter.ProfileID != "" {
		query += fmt.Sprintf(` AND lead_profile_id = $%d`, argIdx)
		args = append(args, filter.ProfileID)
		argIdx++
	}
	if filter.QualifiedOnly {
		query += ` AND all_minimum_requirements_met`
	}
	query += fmt.Sprintf(` ORDER BY total_score DESC, tender_id, lead_profile_id LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evaluations")
	}
	defer rows.Close()

	evals := []model.Evaluation{}
	for rows.Next() {
		var evaluatedAt time.Time
		ev, err := scanEvaluation(rows, &evaluatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan evaluation")
		}
		ev.EvaluatedAt = evaluatedAt.UTC()
		evals = append(evals, *ev)
	}
	return evals, eris.Wrap(rows.Err(), "postgres: list evaluations iterate")
}

// --- Jobs ---

const jobColumns = `id, organization_id, affected_profile_ids, status, retry_count, max_retries, run_not_before,
	error_message, error_code, lease_token, lease_expires_at, created_at, updated_at, completed_at`

func scanPgJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var status string
	var leaseExpires *time.Time
	err := row.Scan(&j.ID, &j.OrganizationID, &j.AffectedProfileIDs, &status, &j.RetryCount, &j.MaxRetries,
		&j.RunNotBefore, &j.ErrorMessage, &j.ErrorCode, &j.LeaseToken, &leaseExpires,
		&j.CreatedAt, &j.UpdatedAt, &j.CompletedAt)
	if err != nil {
		return nil, err
	}
	j.Status = model.JobStatus(status)
	if leaseExpires != nil {
		j.LeaseExpiresAt = *leaseExpires
	}
	return &j, nil
}

func (s *PostgresStore) InsertJob(ctx context.Context, job *model.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO evaluation_jobs (id, organization_id, affected_profile_ids, status, retry_count, max_retries, run_not_before, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		job.ID, job.OrganizationID, job.AffectedProfileIDs, string(job.Status), job.RetryCount, job.MaxRetries,
		job.RunNotBefore, job.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert job %s", job.ID)
}

func (s *PostgresStore) ClaimNextJob(ctx context.Context, now time.Time, lease time.Duration) (*model.Job, error) {
	token := newLeaseToken()
	row := s.pool.QueryRow(ctx,
		`UPDATE evaluation_jobs SET
			status = 'running',
			retry_count = retry_count + CASE WHEN status = 'running' THEN 1 ELSE 0 END,
			error_code = CASE WHEN status = 'running' THEN $4 ELSE error_code END,
			error_message = CASE WHEN status = 'running' THEN $5 ELSE error_message END,
			lease_token = $1,
			lease_expires_at = $2,
			updated_at = $3
		 WHERE id = (
			SELECT id FROM evaluation_jobs
			WHERE (status = 'pending' AND run_not_before <= $3)
			   OR (status = 'running' AND lease_expires_at < $3)
			ORDER BY run_not_before, created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+jobColumns,
		token, now.Add(lease), now, string(resilience.CodeLeaseExpired), leaseExpiredMessage,
	)
	job, err := scanPgJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: claim job")
	}
	return job, nil
}

func (s *PostgresStore) transition(ctx context.Context, op, id, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: %s job %s", op, id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrLeaseLost, "postgres: %s job %s", op, id)
	}
	return nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, id, leaseToken string, at time.Time) error {
	return s.transition(ctx, "complete", id,
		`UPDATE evaluation_jobs SET status = 'completed', completed_at = $3, updated_at = $3,
			error_code = '', error_message = '', lease_token = '', lease_expires_at = NULL
		 WHERE id = $1 AND lease_token = $2 AND status = 'running'`,
		id, leaseToken, at,
	)
}

func (s *PostgresStore) RescheduleJob(ctx context.Context, id, leaseToken string, f JobFailure, at time.Time) error {
	return s.transition(ctx, "reschedule", id,
		`UPDATE evaluation_jobs SET status = 'pending', retry_count = $3, run_not_before = $4,
			error_code = $5, error_message = $6, lease_token = '', lease_expires_at = NULL, updated_at = $7
		 WHERE id = $1 AND lease_token = $2 AND status = 'running'`,
		id, leaseToken, f.RetryCount, f.RunNotBefore, f.Code, f.Message, at,
	)
}

func (s *PostgresStore) DeadLetterJob(ctx context.Context, id, leaseToken string, f JobFailure, at time.Time) error {
	return s.transition(ctx, "dead-letter", id,
		`UPDATE evaluation_jobs SET status = 'dead_letter', retry_count = $3,
			error_code = $4, error_message = $5, lease_token = '', lease_expires_at = NULL, updated_at = $6
		 WHERE id = $1 AND lease_token = $2 AND status = 'running'`,
		id, leaseToken, f.RetryCount, f.Code, f.Message, at,
	)
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	job, err := scanPgJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM evaluation_jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrJobNotFound, "postgres: get job %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", id)
	}
	return job, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM evaluation_jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.OrganizationID != "" {
		query += fmt.Sprintf(` AND organization_id = $%d`, argIdx)
		args = append(args, filter.OrganizationID)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		job, err := scanPgJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) RequeueJob(ctx context.Context, id string, now time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE evaluation_jobs SET status = 'pending', retry_count = 0, run_not_before = $2,
			error_code = '', error_message = '', updated_at = $2
		 WHERE id = $1 AND status = 'dead_letter'`,
		id, now,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: requeue job %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotDeadLettered, "postgres: requeue job %s", id)
	}
	return nil
}

func (s *PostgresStore) QueueStats(ctx context.Context) (QueueStats, error) {
	var st QueueStats
	err := s.pool.QueryRow(ctx,
		`SELECT
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'running'),
			count(*) FILTER (WHERE status = 'completed'),
			count(*) FILTER (WHERE status = 'dead_letter'),
			min(run_not_before) FILTER (WHERE status = 'pending')
		 FROM evaluation_jobs`,
	).Scan(&st.Pending, &st.Running, &st.Completed, &st.DeadLetter, &st.OldestPending)
	return st, eris.Wrap(err, "postgres: queue stats")
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)
