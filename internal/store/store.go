package store

import (
	"context"
	"errors"
	"time"

	"github.com/domainsync/domainsync/internal/state"
	"github.com/domainsync/domainsync/types"
	"github.com/google/uuid"
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrJobNotClaimed  = errors.New("job is not running")
	ErrDomainNotFound = errors.New("domain not found")
	// ErrClaimAbandoned is recorded on a job whose claim expired with no attempts left.
	ErrClaimAbandoned = errors.New("claim expired with no attempts left")
)

// RetryPolicy decides whether a failed job gets a fresh pending copy.
// The n-th retry becomes claimable Backoff*n after the failure.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// Delay returns how long the retry with the given retry count waits before it is claimable.
func (p RetryPolicy) Delay(retryCount int) time.Duration {
	return p.Backoff * time.Duration(retryCount)
}

// JobStore defines the durable job queue.
type JobStore interface {
	// Enqueue inserts a pending job and returns its id.
	Enqueue(ctx context.Context, name string, payload []byte, contextLabel string) (int64, error)

	// ClaimNext atomically moves the oldest eligible job to running and returns it.
	// Eligible means pending and due, or running with a lock older than lockTimeout and
	// retry_count below max_retries. Taking over such a claim increments retry_count.
	// It returns nil, nil when nothing is eligible.
	ClaimNext(ctx context.Context, workerID string, lockTimeout time.Duration) (*types.Job, error)

	// Heartbeat refreshes the lock of a running job held by workerID.
	Heartbeat(ctx context.Context, jobID int64, workerID string) error

	// MarkCompleted marks a running job held by workerID as completed.
	MarkCompleted(ctx context.Context, jobID int64, workerID string) error

	// MarkFailed marks a running job held by workerID as failed. When retry is set and the
	// job is under its retry ceiling a new pending job is inserted and its id returned,
	// otherwise 0.
	MarkFailed(ctx context.Context, jobID int64, workerID string, errMsg string, retry bool) (int64, error)

	// FailAbandoned fails running jobs whose claim expired after their last attempt and
	// returns how many it failed.
	FailAbandoned(ctx context.Context, lockTimeout time.Duration) (int64, error)

	FindByID(ctx context.Context, jobID int64) (*types.Job, error)

	// List returns jobs newest first, optionally filtered by status.
	List(ctx context.Context, page int, pageSize int, status state.JobStatus) (*types.PaginationResult[types.Job], error)

	CountAllJobsGroupedByStatus(ctx context.Context) (map[state.JobStatus]int, error)
}

// CronRunStore keeps the last enqueue time of every cron entry.
type CronRunStore interface {
	// LastEnqueuedAt returns false when the entry never ran.
	LastEnqueuedAt(ctx context.Context, name string) (time.Time, bool, error)

	SetLastEnqueuedAt(ctx context.Context, name string, at time.Time) error
}

// DomainStore persists registrar domain records keyed by domain name.
type DomainStore interface {
	// Upsert inserts the record or updates the existing row with the same domain.
	// Nameservers and DNSProvider are left untouched on update.
	Upsert(ctx context.Context, record types.DomainRecord) error

	// List returns every record, most recently purchased first.
	List(ctx context.Context) ([]types.DomainRecord, error)

	FindByID(ctx context.Context, id uuid.UUID) (*types.DomainRecord, error)

	UpdateNameservers(ctx context.Context, id uuid.UUID, nameservers []string, provider string) error
}
