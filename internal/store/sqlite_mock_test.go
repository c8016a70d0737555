package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
)

func newMockSQLiteStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newSQLiteFromDB(db), mock
}

func TestSQLiteMock_CleanupRollsBackOnPruneError(t *testing.T) {
	s, mock := newMockSQLiteStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM evaluations`).
		WithArgs("org-1", "p1", "solo", "sweep", "[]").
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	_, err := s.UpsertWithCleanup(context.Background(), "org-1", "p1", model.CombinationSolo, nil, "sweep")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prune stale evaluations")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteMock_TransitionLeaseLost(t *testing.T) {
	s, mock := newMockSQLiteStore(t)

	mock.ExpectExec(`UPDATE evaluation_jobs SET status = 'completed'`).
		WithArgs("j1", "tok", t0.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.CompleteJob(context.Background(), "j1", "tok", t0)
	assert.ErrorIs(t, err, ErrLeaseLost)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteMock_TransitionExecError(t *testing.T) {
	s, mock := newMockSQLiteStore(t)

	mock.ExpectExec(`SET status = 'dead_letter'`).WillReturnError(errors.New("disk I/O error"))

	err := s.DeadLetterJob(context.Background(), "j1", "tok", JobFailure{RetryCount: 6, Code: "unknown"}, t0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLeaseLost)
	assert.Contains(t, err.Error(), "sqlite: dead-letter job j1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteMock_QueueStatsError(t *testing.T) {
	s, mock := newMockSQLiteStore(t)

	mock.ExpectQuery(`FROM evaluation_jobs`).WillReturnError(errors.New("no such table: evaluation_jobs"))

	_, err := s.QueueStats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite: queue stats")
}

func TestSQLiteMock_EvaluatedTenderIDs(t *testing.T) {
	s, mock := newMockSQLiteStore(t)

	mock.ExpectQuery(`SELECT DISTINCT tender_id FROM evaluations`).
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"tender_id"}).AddRow("t1"))

	ids, err := s.EvaluatedTenderIDs(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"t1": true}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
