package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/domainsync/domainsync/internal/state"
	"github.com/domainsync/domainsync/internal/store"
	"github.com/domainsync/domainsync/types"
)

const jobColumns = `id, name, payload, status, context, retry_count, max_retries, parent_id,
		       last_error, locked_by, enqueued_at, run_at, locked_at, completed_at`

type PostgresJobStore struct {
	db     *sql.DB
	policy store.RetryPolicy
}

func NewPostgresJobStore(db *sql.DB, policy store.RetryPolicy) *PostgresJobStore {
	return &PostgresJobStore{db: db, policy: policy}
}

func (s *PostgresJobStore) Enqueue(ctx context.Context, name string, payload []byte, contextLabel string) (int64, error) {
	query := `
		INSERT INTO domainsync.jobs (name, payload, context, max_retries)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var jobID int64
	if err := s.db.QueryRowContext(ctx, query, name, payloadOrNull(payload), contextLabel, s.policy.MaxRetries).Scan(&jobID); err != nil {
		return 0, fmt.Errorf("failed to enqueue job %s: %w", name, err)
	}
	return jobID, nil
}

// ClaimNext selects and locks the candidate row in the same statement. SKIP LOCKED lets
// concurrent claimers pass over a row another transaction is claiming instead of
// waiting on it, and the outer UPDATE only touches the row the subquery locked.
// Taking over an expired claim counts as a failed attempt, so a job that keeps killing
// its worker stops being reclaimed once it reaches max_retries.
func (s *PostgresJobStore) ClaimNext(ctx context.Context, workerID string, lockTimeout time.Duration) (*types.Job, error) {
	query := `
		UPDATE domainsync.jobs
		SET retry_count = retry_count + CASE WHEN status = $1 THEN 1 ELSE 0 END,
		    status = $1,
		    locked_at = NOW(),
		    locked_by = $2
		WHERE id = (
			SELECT id FROM domainsync.jobs
			WHERE (status = $3 AND run_at <= NOW())
			   OR (status = $1 AND locked_at < NOW() - make_interval(secs => $4) AND retry_count < max_retries)
			ORDER BY enqueued_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	row := s.db.QueryRowContext(ctx, query, state.StatusRunning, workerID, state.StatusPending, lockTimeout.Seconds())
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return job, nil
}

func (s *PostgresJobStore) Heartbeat(ctx context.Context, jobID int64, workerID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE domainsync.jobs
		SET locked_at = NOW()
		WHERE id = $1 AND status = $2 AND locked_by = $3
	`, jobID, state.StatusRunning, workerID)
	if err != nil {
		return fmt.Errorf("failed to refresh lock of job %d: %w", jobID, err)
	}
	return requireAffected(res, jobID)
}

func (s *PostgresJobStore) MarkCompleted(ctx context.Context, jobID int64, workerID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE domainsync.jobs
		SET status = $1,
		    completed_at = NOW(),
		    locked_at = NULL,
		    locked_by = NULL
		WHERE id = $2 AND status = $3 AND locked_by = $4
	`, state.StatusCompleted, jobID, state.StatusRunning, workerID)
	if err != nil {
		return fmt.Errorf("failed to mark job %d completed: %w", jobID, err)
	}
	return requireAffected(res, jobID)
}

// MarkFailed closes the failed row and inserts its retry in one transaction so a crash
// between the two cannot lose or duplicate the retry.
func (s *PostgresJobStore) MarkFailed(ctx context.Context, jobID int64, workerID string, errMsg string, retry bool) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		name       string
		payload    []byte
		label      string
		retryCount int
		maxRetries int
	)
	err = tx.QueryRowContext(ctx, `
		UPDATE domainsync.jobs
		SET status = $1,
		    last_error = $2,
		    completed_at = NOW(),
		    locked_at = NULL,
		    locked_by = NULL
		WHERE id = $3 AND status = $4 AND locked_by = $5
		RETURNING name, payload, context, retry_count, max_retries
	`, state.StatusFailed, errMsg, jobID, state.StatusRunning, workerID).Scan(&name, &payload, &label, &retryCount, &maxRetries)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("job %d: %w", jobID, store.ErrJobNotClaimed)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to mark job %d failed: %w", jobID, err)
	}

	var retryID int64
	if retry && retryCount < maxRetries {
		next := retryCount + 1
		err = tx.QueryRowContext(ctx, `
			INSERT INTO domainsync.jobs (name, payload, context, retry_count, max_retries, parent_id, run_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW() + make_interval(secs => $7))
			RETURNING id
		`, name, payloadOrNull(payload), label, next, maxRetries, jobID, s.policy.Delay(next).Seconds()).Scan(&retryID)
		if err != nil {
			return 0, fmt.Errorf("failed to enqueue retry of job %d: %w", jobID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit failure of job %d: %w", jobID, err)
	}
	return retryID, nil
}

// FailAbandoned fails every expired claim that has no attempts left. ClaimNext never
// takes those over, so without this they would stay running.
func (s *PostgresJobStore) FailAbandoned(ctx context.Context, lockTimeout time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE domainsync.jobs
		SET status = $1,
		    last_error = $2,
		    completed_at = NOW(),
		    locked_at = NULL,
		    locked_by = NULL
		WHERE status = $3
		  AND locked_at < NOW() - make_interval(secs => $4)
		  AND retry_count >= max_retries
	`, state.StatusFailed, store.ErrClaimAbandoned.Error(), state.StatusRunning, lockTimeout.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to fail abandoned jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresJobStore) FindByID(ctx context.Context, jobID int64) (*types.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM domainsync.jobs WHERE id = $1`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %d: %w", jobID, store.ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find job %d: %w", jobID, err)
	}
	return job, nil
}

func (s *PostgresJobStore) List(ctx context.Context, page int, pageSize int, status state.JobStatus) (*types.PaginationResult[types.Job], error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	var args []interface{}
	where := "TRUE"

	argIndex := 1
	if status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	countQuery := `SELECT COUNT(*) FROM domainsync.jobs WHERE ` + where
	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM domainsync.jobs
		WHERE %s
		ORDER BY enqueued_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, jobColumns, where, argIndex, argIndex+1)

	var totalItems int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalItems); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, selectQuery, append(args, pageSize, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return types.NewPaginationResult(jobs, totalItems, page, pageSize), nil
}

func (s *PostgresJobStore) CountAllJobsGroupedByStatus(ctx context.Context) (map[state.JobStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) AS count
		FROM domainsync.jobs
		GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[state.JobStatus]int)
	for rows.Next() {
		var status state.JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		result[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, status := range state.AllStatuses {
		if _, ok := result[status]; !ok {
			result[status] = 0
		}
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*types.Job, error) {
	var job types.Job
	var payload []byte
	if err := row.Scan(
		&job.ID,
		&job.Name,
		&payload,
		&job.Status,
		&job.Context,
		&job.RetryCount,
		&job.MaxRetries,
		&job.ParentID,
		&job.LastError,
		&job.LockedBy,
		&job.EnqueuedAt,
		&job.RunAt,
		&job.LockedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, err
	}
	job.Payload = payload
	return &job, nil
}

func requireAffected(res sql.Result, jobID int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("job %d: %w", jobID, store.ErrJobNotClaimed)
	}
	return nil
}

// payloadOrNull maps an empty payload to JSON null so the jsonb column always parses.
func payloadOrNull(payload []byte) []byte {
	if len(payload) == 0 {
		return []byte("null")
	}
	return payload
}
