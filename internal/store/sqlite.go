package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
	"github.com/alexanderksmi/doffin-hunter/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite. It holds a single
// connection so the claim statement and every transaction are serialized by
// the driver; timestamps are stored as unix milliseconds and lists as JSON.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return newSQLiteFromDB(db), nil
}

func newSQLiteFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	id                   TEXT PRIMARY KEY,
	organization_id      TEXT NOT NULL,
	name                 TEXT NOT NULL DEFAULT '',
	is_own_profile       INTEGER NOT NULL DEFAULT 0,
	minimum_requirements TEXT NOT NULL DEFAULT '[]',
	support_keywords     TEXT NOT NULL DEFAULT '[]',
	negative_keywords    TEXT NOT NULL DEFAULT '[]',
	cpv_codes            TEXT NOT NULL DEFAULT '[]',
	updated_at           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_profiles_org ON profiles(organization_id);

CREATE TABLE IF NOT EXISTS tenders (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	body            TEXT NOT NULL DEFAULT '',
	cpv_codes       TEXT NOT NULL DEFAULT '[]',
	deadline        INTEGER,
	published_date  INTEGER,
	url             TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_tenders_org ON tenders(organization_id);

CREATE TABLE IF NOT EXISTS evaluations (
	tender_id                    TEXT NOT NULL,
	organization_id              TEXT NOT NULL,
	lead_profile_id              TEXT NOT NULL,
	partner_profile_id           TEXT NOT NULL DEFAULT '',
	combination_type             TEXT NOT NULL DEFAULT 'solo',
	all_minimum_requirements_met INTEGER NOT NULL,
	met_requirements             TEXT NOT NULL DEFAULT '[]',
	missing_requirements         TEXT NOT NULL DEFAULT '[]',
	support_score                INTEGER NOT NULL DEFAULT 0,
	negative_score               INTEGER NOT NULL DEFAULT 0,
	cpv_score                    INTEGER NOT NULL DEFAULT 0,
	synergy_bonus                INTEGER NOT NULL DEFAULT 0,
	total_score                  INTEGER NOT NULL DEFAULT 0,
	matched_support_keywords     TEXT NOT NULL DEFAULT '[]',
	matched_negative_keywords    TEXT NOT NULL DEFAULT '[]',
	matched_cpv_codes            TEXT NOT NULL DEFAULT '[]',
	explanation                  TEXT NOT NULL DEFAULT '',
	criteria_fingerprint         TEXT NOT NULL DEFAULT '',
	evaluated_at                 INTEGER NOT NULL,
	PRIMARY KEY (tender_id, organization_id, lead_profile_id)
);

CREATE INDEX IF NOT EXISTS idx_evaluations_org_profile ON evaluations(organization_id, lead_profile_id);

CREATE TABLE IF NOT EXISTS evaluation_jobs (
	id                   TEXT PRIMARY KEY,
	organization_id      TEXT NOT NULL,
	affected_profile_ids TEXT NOT NULL,
	status               TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'running', 'completed', 'dead_letter')),
	retry_count          INTEGER NOT NULL DEFAULT 0,
	max_retries          INTEGER NOT NULL DEFAULT 5,
	run_not_before       INTEGER NOT NULL,
	error_message        TEXT NOT NULL DEFAULT '',
	error_code           TEXT NOT NULL DEFAULT '',
	lease_token          TEXT NOT NULL DEFAULT '',
	lease_expires_at     INTEGER,
	created_at           INTEGER NOT NULL,
	updated_at           INTEGER NOT NULL,
	completed_at         INTEGER
);

CREATE INDEX IF NOT EXISTS idx_evaluation_jobs_claim ON evaluation_jobs(status, run_not_before);
CREATE INDEX IF NOT EXISTS idx_evaluation_jobs_org ON evaluation_jobs(organization_id);
`

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// inTx runs fn in a transaction. fn must only use tx: the store has a single
// connection, so touching s.db inside fn would block forever.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "commit tx")
}

// --- Profiles ---

func (s *SQLiteStore) ListProfiles(ctx context.Context, orgID string) ([]model.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE organization_id = ? ORDER BY is_own_profile DESC, id`,
		orgID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list profiles for %s", orgID)
	}
	return collectSQLiteProfiles(rows)
}

func (s *SQLiteStore) GetProfiles(ctx context.Context, orgID string, ids []string) ([]model.Profile, error) {
	if len(ids) == 0 {
		return []model.Profile{}, nil
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal profile ids")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles
		 WHERE organization_id = ? AND id IN (SELECT value FROM json_each(?)) ORDER BY id`,
		orgID, string(idsJSON),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get profiles for %s", orgID)
	}
	return collectSQLiteProfiles(rows)
}

func collectSQLiteProfiles(rows *sql.Rows) ([]model.Profile, error) {
	defer rows.Close()

	profiles := []model.Profile{}
	for rows.Next() {
		var p model.Profile
		var minReq, support, negative, cpv []byte
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.IsOwnProfile, &minReq, &support, &negative, &cpv); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan profile")
		}
		if err := decodeCriteria(&p, minReq, support, negative, cpv); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode profile %s", p.ID)
		}
		profiles = append(profiles, p)
	}
	return profiles, eris.Wrap(rows.Err(), "sqlite: list profiles iterate")
}

func (s *SQLiteStore) SaveProfiles(ctx context.Context, profiles []model.Profile) error {
	now := toMillis(s.now())
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, p := range profiles {
			c, err := encodeCriteria(p)
			if err != nil {
				return eris.Wrapf(err, "encode profile %s", p.ID)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO profiles (`+profileColumns+`, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (id) DO UPDATE SET
					organization_id = excluded.organization_id, name = excluded.name,
					is_own_profile = excluded.is_own_profile,
					minimum_requirements = excluded.minimum_requirements,
					support_keywords = excluded.support_keywords,
					negative_keywords = excluded.negative_keywords,
					cpv_codes = excluded.cpv_codes, updated_at = excluded.updated_at`,
				p.ID, p.OrganizationID, p.Name, p.IsOwnProfile,
				string(c.minReq), string(c.support), string(c.negative), string(c.cpv), now,
			)
			if err != nil {
				return eris.Wrapf(err, "upsert profile %s", p.ID)
			}
		}
		return nil
	})
	return eris.Wrap(err, "sqlite: save profiles")
}

// --- Tenders ---

func (s *SQLiteStore) ListTenders(ctx context.Context, orgID string) ([]model.Tender, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organization_id, title, body, cpv_codes, deadline, published_date, url
		 FROM tenders WHERE organization_id = ? ORDER BY id`,
		orgID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list tenders for %s", orgID)
	}
	defer rows.Close()

	tenders := []model.Tender{}
	for rows.Next() {
		var t model.Tender
		var codes []byte
		var deadline, published sql.NullInt64
		if err := rows.Scan(&t.ID, &t.OrganizationID, &t.Title, &t.Body, &codes, &deadline, &published, &t.URL); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tender")
		}
		if t.CPVCodes, err = unmarshalList[string](codes); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode cpv codes of tender %s", t.ID)
		}
		t.Deadline = timePtr(deadline)
		t.PublishedDate = timePtr(published)
		tenders = append(tenders, t)
	}
	return tenders, eris.Wrap(rows.Err(), "sqlite: list tenders iterate")
}

func (s *SQLiteStore) SaveTenders(ctx context.Context, tenders []model.Tender) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, t := range tenders {
			codes, err := marshalList(t.CPVCodes)
			if err != nil {
				return eris.Wrapf(err, "encode tender %s", t.ID)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO tenders (id, organization_id, title, body, cpv_codes, deadline, published_date, url)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (id) DO UPDATE SET
					organization_id = excluded.organization_id, title = excluded.title, body = excluded.body,
					cpv_codes = excluded.cpv_codes, deadline = excluded.deadline,
					published_date = excluded.published_date, url = excluded.url`,
				t.ID, t.OrganizationID, t.Title, t.Body, string(codes),
				nullMillis(t.Deadline), nullMillis(t.PublishedDate), t.URL,
			)
			if err != nil {
				return eris.Wrapf(err, "upsert tender %s", t.ID)
			}
		}
		return nil
	})
	return eris.Wrap(err, "sqlite: save tenders")
}

func (s *SQLiteStore) ListOrganizations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT organization_id FROM profiles UNION SELECT organization_id FROM tenders ORDER BY 1`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list organizations")
	}
	defer rows.Close()

	var orgs []string
	for rows.Next() {
		var org string
		if err := rows.Scan(&org); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan organization")
		}
		orgs = append(orgs, org)
	}
	return orgs, eris.Wrap(rows.Err(), "sqlite: list organizations iterate")
}

// --- Evaluations ---

var sqliteEvaluationUpsert = func() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(evaluationColumns)), ", ")
	var sets []string
	for _, c := range evaluationColumns[3:] {
		sets = append(sets, c+" = excluded."+c)
	}
	return `INSERT INTO evaluations (` + joinColumns(evaluationColumns) + `) VALUES (` + placeholders + `)
		ON CONFLICT (tender_id, organization_id, lead_profile_id) DO UPDATE SET ` + strings.Join(sets, ", ")
}()

func (s *SQLiteStore) EvaluatedTenderIDs(ctx context.Context, orgID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT tender_id FROM evaluations WHERE organization_id = ?`, orgID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: evaluated tenders for %s", orgID)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tender id")
		}
		ids[id] = true
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: evaluated tenders iterate")
}

func (s *SQLiteStore) upsertEvaluationsTx(ctx context.Context, tx *sql.Tx, evals []model.Evaluation) (int64, error) {
	if len(evals) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, sqliteEvaluationUpsert)
	if err != nil {
		return 0, eris.Wrap(err, "prepare evaluation upsert")
	}
	defer stmt.Close()

	now := s.now()
	var n int64
	for i := range evals {
		row, err := evaluationRow(&evals[i], toMillis(stampEvaluatedAt(&evals[i], now)))
		if err != nil {
			return 0, eris.Wrapf(err, "encode evaluation of tender %s", evals[i].TenderID)
		}
		for j, v := range row {
			if b, ok := v.([]byte); ok {
				row[j] = string(b)
			}
		}
		res, err := stmt.ExecContext(ctx, row...)
		if err != nil {
			return 0, eris.Wrapf(err, "upsert evaluation of tender %s", evals[i].TenderID)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	return n, nil
}

func (s *SQLiteStore) UpsertEvaluations(ctx context.Context, evals []model.Evaluation) (int64, error) {
	var n int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = s.upsertEvaluationsTx(ctx, tx, evals)
		return err
	})
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert evaluations")
	}
	return n, nil
}

func (s *SQLiteStore) UpsertWithCleanup(ctx context.Context, orgID, profileID string, combination model.CombinationType, results []model.Evaluation, fingerprint string) (CleanupResult, error) {
	keep := make([]string, 0, len(results))
	for _, ev := range results {
		keep = append(keep, ev.TenderID)
	}
	keepJSON, err := json.Marshal(keep)
	if err != nil {
		return CleanupResult{}, eris.Wrap(err, "sqlite: marshal tender ids")
	}

	var res CleanupResult
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		n, err := s.upsertEvaluationsTx(ctx, tx, results)
		if err != nil {
			return err
		}
		res.Upserted = n

		del, err := tx.ExecContext(ctx,
			`DELETE FROM evaluations
			 WHERE organization_id = ? AND lead_profile_id = ? AND combination_type = ?
			   AND criteria_fingerprint <> ?
			   AND tender_id NOT IN (SELECT value FROM json_each(?))`,
			orgID, profileID, string(combination), fingerprint, string(keepJSON),
		)
		if err != nil {
			return eris.Wrap(err, "prune stale evaluations")
		}
		res.Pruned, err = del.RowsAffected()
		return err
	})
	if err != nil {
		return CleanupResult{}, eris.Wrapf(err, "sqlite: upsert with cleanup for profile %s", profileID)
	}
	return res, nil
}

func (s *SQLiteStore) ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]model.Evaluation, error) {
	query := `SELECT ` + joinColumns(evaluationColumns) + ` FROM evaluations WHERE organization_id = ?`
	args := []any{filter.OrganizationID}
	if filter.ProfileID != "" {
		query += ` AND lead_profile_id = ?`
		args = append(args, filter.ProfileID)
	}
	if filter.QualifiedOnly {
		query += ` AND all_minimum_requirements_met = 1`
	}
	query += ` ORDER BY total_score DESC, tender_id, lead_profile_id LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evaluations")
	}
	defer rows.Close()

	evals := []model.Evaluation{}
	for rows.Next() {
		var evaluatedAt int64
		ev, err := scanEvaluation(rows, &evaluatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evaluation")
		}
		ev.EvaluatedAt = fromMillis(evaluatedAt)
		evals = append(evals, *ev)
	}
	return evals, eris.Wrap(rows.Err(), "sqlite: list evaluations iterate")
}

// --- Jobs ---

func scanSQLiteJob(row scannable) (*model.Job, error) {
	var j model.Job
	var status string
	var profileIDs []byte
	var runNotBefore, createdAt, updatedAt int64
	var leaseExpires, completedAt sql.NullInt64
	err := row.Scan(&j.ID, &j.OrganizationID, &profileIDs, &status, &j.RetryCount, &j.MaxRetries,
		&runNotBefore, &j.ErrorMessage, &j.ErrorCode, &j.LeaseToken, &leaseExpires,
		&createdAt, &updatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if j.AffectedProfileIDs, err = unmarshalList[string](profileIDs); err != nil {
		return nil, eris.Wrap(err, "affected_profile_ids")
	}
	j.Status = model.JobStatus(status)
	j.RunNotBefore = fromMillis(runNotBefore)
	j.CreatedAt = fromMillis(createdAt)
	j.UpdatedAt = fromMillis(updatedAt)
	if leaseExpires.Valid {
		j.LeaseExpiresAt = fromMillis(leaseExpires.Int64)
	}
	j.CompletedAt = timePtr(completedAt)
	return &j, nil
}

func (s *SQLiteStore) InsertJob(ctx context.Context, job *model.Job) error {
	ids, err := marshalList(job.AffectedProfileIDs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal affected profile ids")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluation_jobs (id, organization_id, affected_profile_ids, status, retry_count, max_retries, run_not_before, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.OrganizationID, string(ids), string(job.Status), job.RetryCount, job.MaxRetries,
		toMillis(job.RunNotBefore), toMillis(job.CreatedAt), toMillis(job.CreatedAt),
	)
	return eris.Wrapf(err, "sqlite: insert job %s", job.ID)
}

// ClaimNextJob runs as one UPDATE ... RETURNING statement; with a single
// connection no other statement can interleave between the pick and the update.
func (s *SQLiteStore) ClaimNextJob(ctx context.Context, now time.Time, lease time.Duration) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE evaluation_jobs SET
			retry_count = retry_count + CASE WHEN status = 'running' THEN 1 ELSE 0 END,
			error_code = CASE WHEN status = 'running' THEN ?4 ELSE error_code END,
			error_message = CASE WHEN status = 'running' THEN ?5 ELSE error_message END,
			status = 'running',
			lease_token = ?1,
			lease_expires_at = ?2,
			updated_at = ?3
		 WHERE id = (
			SELECT id FROM evaluation_jobs
			WHERE (status = 'pending' AND run_not_before <= ?3)
			   OR (status = 'running' AND lease_expires_at < ?3)
			ORDER BY run_not_before, created_at
			LIMIT 1
		 )
		 RETURNING `+jobColumns,
		newLeaseToken(), toMillis(now.Add(lease)), toMillis(now), string(resilience.CodeLeaseExpired), leaseExpiredMessage,
	)
	job, err := scanSQLiteJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: claim job")
	}
	return job, nil
}

func (s *SQLiteStore) transition(ctx context.Context, op, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s job %s", op, id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrLeaseLost, "sqlite: %s job %s", op, id)
	}
	return nil
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, id, leaseToken string, at time.Time) error {
	return s.transition(ctx, "complete", id,
		`UPDATE evaluation_jobs SET status = 'completed', completed_at = ?3, updated_at = ?3,
			error_code = '', error_message = '', lease_token = '', lease_expires_at = NULL
		 WHERE id = ?1 AND lease_token = ?2 AND status = 'running'`,
		id, leaseToken, toMillis(at),
	)
}

func (s *SQLiteStore) RescheduleJob(ctx context.Context, id, leaseToken string, f JobFailure, at time.Time) error {
	return s.transition(ctx, "reschedule", id,
		`UPDATE evaluation_jobs SET status = 'pending', retry_count = ?3, run_not_before = ?4,
			error_code = ?5, error_message = ?6, lease_token = '', lease_expires_at = NULL, updated_at = ?7
		 WHERE id = ?1 AND lease_token = ?2 AND status = 'running'`,
		id, leaseToken, f.RetryCount, toMillis(f.RunNotBefore), f.Code, f.Message, toMillis(at),
	)
}

func (s *SQLiteStore) DeadLetterJob(ctx context.Context, id, leaseToken string, f JobFailure, at time.Time) error {
	return s.transition(ctx, "dead-letter", id,
		`UPDATE evaluation_jobs SET status = 'dead_letter', retry_count = ?3,
			error_code = ?4, error_message = ?5, lease_token = '', lease_expires_at = NULL, updated_at = ?6
		 WHERE id = ?1 AND lease_token = ?2 AND status = 'running'`,
		id, leaseToken, f.RetryCount, f.Code, f.Message, toMillis(at),
	)
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	job, err := scanSQLiteJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM evaluation_jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrJobNotFound, "sqlite: get job %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", id)
	}
	return job, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM evaluation_jobs WHERE 1 = 1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.OrganizationID != "" {
		query += ` AND organization_id = ?`
		args = append(args, filter.OrganizationID)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		job, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) RequeueJob(ctx context.Context, id string, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE evaluation_jobs SET status = 'pending', retry_count = 0, run_not_before = ?2,
			error_code = '', error_message = '', updated_at = ?2
		 WHERE id = ?1 AND status = 'dead_letter'`,
		id, toMillis(now),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: requeue job %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotDeadLettered, "sqlite: requeue job %s", id)
	}
	return nil
}

func (s *SQLiteStore) QueueStats(ctx context.Context) (QueueStats, error) {
	var st QueueStats
	var oldest sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(status = 'pending'), 0),
			COALESCE(SUM(status = 'running'), 0),
			COALESCE(SUM(status = 'completed'), 0),
			COALESCE(SUM(status = 'dead_letter'), 0),
			MIN(CASE WHEN status = 'pending' THEN run_not_before END)
		 FROM evaluation_jobs`,
	).Scan(&st.Pending, &st.Running, &st.Completed, &st.DeadLetter, &oldest)
	if err != nil {
		return QueueStats{}, eris.Wrap(err, "sqlite: queue stats")
	}
	st.OldestPending = timePtr(oldest)
	return st, nil
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)
