package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/domainsync/domainsync/internal/state"
	"github.com/domainsync/domainsync/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jobColumnNames = []string{
	"id", "name", "payload", "status", "context", "retry_count", "max_retries", "parent_id",
	"last_error", "locked_by", "enqueued_at", "run_at", "locked_at", "completed_at",
}

var testPolicy = store.RetryPolicy{MaxRetries: 3, Backoff: time.Minute}

func TestPostgresJobStore_Enqueue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)

	mock.ExpectQuery("INSERT INTO domainsync.jobs").
		WithArgs("RefreshDomains", []byte("null"), "cron: RefreshDomains", 3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	id, err := s.Enqueue(context.Background(), "RefreshDomains", nil, "cron: RefreshDomains")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_ClaimNext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)
	now := time.Now()

	mock.ExpectQuery("UPDATE domainsync.jobs").
		WithArgs(state.StatusRunning, "worker-1", state.StatusPending, float64(300)).
		WillReturnRows(sqlmock.NewRows(jobColumnNames).AddRow(
			7, "RefreshDomainNameservers", []byte(`{"porkbun_domain_id":"x"}`), "running", "http: admin",
			0, 3, nil, nil, "worker-1", now, now, now, nil,
		))

	job, err := s.ClaimNext(context.Background(), "worker-1", 5*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, int64(7), job.ID)
	assert.Equal(t, state.StatusRunning, job.Status)
	require.NotNil(t, job.LockedBy)
	assert.Equal(t, "worker-1", *job.LockedBy)
	assert.Nil(t, job.ParentID)
	assert.JSONEq(t, `{"porkbun_domain_id":"x"}`, string(job.Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_ClaimNext_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)

	mock.ExpectQuery("UPDATE domainsync.jobs").
		WillReturnRows(sqlmock.NewRows(jobColumnNames))

	job, err := s.ClaimNext(context.Background(), "worker-1", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_ClaimNext_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)

	mock.ExpectQuery("UPDATE domainsync.jobs").WillReturnError(errors.New("connection reset"))

	job, err := s.ClaimNext(context.Background(), "worker-1", time.Minute)
	assert.Error(t, err)
	assert.Nil(t, job)
}

func TestPostgresJobStore_Heartbeat(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)

	mock.ExpectExec("UPDATE domainsync.jobs").
		WithArgs(int64(7), state.StatusRunning, "worker-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE domainsync.jobs").
		WithArgs(int64(7), state.StatusRunning, "worker-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Heartbeat(context.Background(), 7, "worker-1"))

	err = s.Heartbeat(context.Background(), 7, "worker-2")
	assert.ErrorIs(t, err, store.ErrJobNotClaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_MarkCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)

	mock.ExpectExec("UPDATE domainsync.jobs").
		WithArgs(state.StatusCompleted, int64(7), state.StatusRunning, "worker-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.MarkCompleted(context.Background(), 7, "worker-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_MarkCompleted_NotRunning(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)

	mock.ExpectExec("UPDATE domainsync.jobs").
		WithArgs(state.StatusCompleted, int64(7), state.StatusRunning, "worker-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = s.MarkCompleted(context.Background(), 7, "worker-1")
	assert.ErrorIs(t, err, store.ErrJobNotClaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_MarkFailed_WithRetry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)
	payload := []byte(`{"porkbun_domain_id":"x"}`)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE domainsync.jobs").
		WithArgs(state.StatusFailed, "registrar timeout", int64(7), state.StatusRunning, "worker-1").
		WillReturnRows(sqlmock.NewRows([]string{"name", "payload", "context", "retry_count", "max_retries"}).
			AddRow("RefreshDomainNameservers", payload, "http: admin", 1, 3))
	mock.ExpectQuery("INSERT INTO domainsync.jobs").
		WithArgs("RefreshDomainNameservers", payload, "http: admin", 2, 3, int64(7), float64(120)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectCommit()

	retryID, err := s.MarkFailed(context.Background(), 7, "worker-1", "registrar timeout", true)
	require.NoError(t, err)
	assert.Equal(t, int64(8), retryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_MarkFailed_RetriesExhausted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE domainsync.jobs").
		WithArgs(state.StatusFailed, "boom", int64(9), state.StatusRunning, "worker-1").
		WillReturnRows(sqlmock.NewRows([]string{"name", "payload", "context", "retry_count", "max_retries"}).
			AddRow("RefreshDomains", []byte("null"), "", 3, 3))
	mock.ExpectCommit()

	retryID, err := s.MarkFailed(context.Background(), 9, "worker-1", "boom", true)
	require.NoError(t, err)
	assert.Zero(t, retryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_MarkFailed_Permanent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE domainsync.jobs").
		WithArgs(state.StatusFailed, "unknown job", int64(9), state.StatusRunning, "worker-1").
		WillReturnRows(sqlmock.NewRows([]string{"name", "payload", "context", "retry_count", "max_retries"}).
			AddRow("Nope", []byte("null"), "", 0, 3))
	mock.ExpectCommit()

	retryID, err := s.MarkFailed(context.Background(), 9, "worker-1", "unknown job", false)
	require.NoError(t, err)
	assert.Zero(t, retryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_MarkFailed_NotRunning(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE domainsync.jobs").
		WillReturnRows(sqlmock.NewRows([]string{"name", "payload", "context", "retry_count", "max_retries"}))
	mock.ExpectRollback()

	_, err = s.MarkFailed(context.Background(), 9, "worker-1", "boom", true)
	assert.ErrorIs(t, err, store.ErrJobNotClaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_ClaimNext_ReclaimCountsAttempt(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)
	now := time.Now()

	mock.ExpectQuery(`SET retry_count = retry_count \+ CASE WHEN status = \$1 THEN 1 ELSE 0 END.*` +
		`locked_at < NOW\(\) - make_interval\(secs => \$4\) AND retry_count < max_retries`).
		WithArgs(state.StatusRunning, "worker-2", state.StatusPending, float64(60)).
		WillReturnRows(sqlmock.NewRows(jobColumnNames).AddRow(
			7, "RefreshDomains", []byte("null"), "running", "cron: RefreshDomains",
			1, 3, nil, nil, "worker-2", now, now, now, nil,
		))

	job, err := s.ClaimNext(context.Background(), "worker-2", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 1, job.RetryCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_MarkCompleted_OtherOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)

	mock.ExpectExec(`WHERE id = \$2 AND status = \$3 AND locked_by = \$4`).
		WithArgs(state.StatusCompleted, int64(7), state.StatusRunning, "worker-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = s.MarkCompleted(context.Background(), 7, "worker-1")
	assert.ErrorIs(t, err, store.ErrJobNotClaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_MarkFailed_OtherOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE id = \$3 AND status = \$4 AND locked_by = \$5`).
		WithArgs(state.StatusFailed, "boom", int64(9), state.StatusRunning, "worker-1").
		WillReturnRows(sqlmock.NewRows([]string{"name", "payload", "context", "retry_count", "max_retries"}))
	mock.ExpectRollback()

	retryID, err := s.MarkFailed(context.Background(), 9, "worker-1", "boom", true)
	assert.ErrorIs(t, err, store.ErrJobNotClaimed)
	assert.Zero(t, retryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_FailAbandoned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)

	mock.ExpectExec(`UPDATE domainsync.jobs .* AND retry_count >= max_retries`).
		WithArgs(state.StatusFailed, store.ErrClaimAbandoned.Error(), state.StatusRunning, float64(300)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	failed, err := s.FailAbandoned(context.Background(), 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_FindByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)

	mock.ExpectQuery("SELECT (.+) FROM domainsync.jobs WHERE id").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(jobColumnNames))

	job, err := s.FindByID(context.Background(), 404)
	assert.Nil(t, job)
	assert.ErrorIs(t, err, store.ErrJobNotFound)
}

func TestPostgresJobStore_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(state.StatusFailed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery("SELECT (.+) FROM domainsync.jobs").
		WithArgs(state.StatusFailed, 5, 5).
		WillReturnRows(sqlmock.NewRows(jobColumnNames).
			AddRow(3, "RefreshDomains", []byte("null"), "failed", "", 0, 3, nil, "boom", nil, now, now, nil, now))

	result, err := s.List(context.Background(), 2, 5, state.StatusFailed)
	require.NoError(t, err)
	assert.Equal(t, 12, result.TotalItems)
	assert.Equal(t, 3, result.TotalPages)
	require.Len(t, result.Items, 1)
	require.NotNil(t, result.Items[0].LastError)
	assert.Equal(t, "boom", *result.Items[0].LastError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_CountAllJobsGroupedByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db, testPolicy)

	mock.ExpectQuery("SELECT status, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 4).
			AddRow("failed", 1))

	counts, err := s.CountAllJobsGroupedByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts[state.StatusPending])
	assert.Equal(t, 1, counts[state.StatusFailed])
	assert.Equal(t, 0, counts[state.StatusRunning])
	assert.Equal(t, 0, counts[state.StatusCompleted])
	assert.NoError(t, mock.ExpectationsWereMet())
}
