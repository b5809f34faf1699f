package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/domainsync/domainsync/internal/state"
	"github.com/domainsync/domainsync/internal/store"
	"github.com/domainsync/domainsync/types"
)

// Clock returns the current time. Tests swap it to move time without sleeping.
type Clock func() time.Time

type Option func(*options)

type options struct {
	clock Clock
}

func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// JobStore is an in-process store.JobStore. It claims jobs under a single mutex which
// gives the same at-most-one-claim guarantee as the row lock in Postgres.
type JobStore struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[int64]*types.Job
	policy store.RetryPolicy
	clock  Clock
}

func NewJobStore(policy store.RetryPolicy, opts ...Option) *JobStore {
	o := buildOptions(opts)
	return &JobStore{
		jobs:   make(map[int64]*types.Job),
		policy: policy,
		clock:  o.clock,
	}
}

func (s *JobStore) Enqueue(_ context.Context, name string, payload []byte, contextLabel string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	s.insert(&types.Job{
		Name:       name,
		Payload:    clonePayload(payload),
		Status:     state.StatusPending,
		Context:    contextLabel,
		MaxRetries: s.policy.MaxRetries,
		EnqueuedAt: now,
		RunAt:      now,
	})
	return s.nextID, nil
}

func (s *JobStore) ClaimNext(_ context.Context, workerID string, lockTimeout time.Duration) (*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	var candidate *types.Job
	for _, job := range s.jobs {
		if !claimable(job, now, lockTimeout) {
			continue
		}
		if candidate == nil || before(job, candidate) {
			candidate = job
		}
	}
	if candidate == nil {
		return nil, nil
	}

	if candidate.Status == state.StatusRunning {
		candidate.RetryCount++
	}
	candidate.Status = state.StatusRunning
	candidate.LockedAt = &now
	candidate.LockedBy = &workerID
	return copyJob(candidate), nil
}

func (s *JobStore) Heartbeat(_ context.Context, jobID int64, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Status != state.StatusRunning || job.LockedBy == nil || *job.LockedBy != workerID {
		return fmt.Errorf("job %d: %w", jobID, store.ErrJobNotClaimed)
	}
	now := s.clock()
	job.LockedAt = &now
	return nil
}

func (s *JobStore) MarkCompleted(_ context.Context, jobID int64, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.transition(jobID, workerID, state.StatusCompleted)
	if err != nil {
		return err
	}
	now := s.clock()
	job.Status = state.StatusCompleted
	job.CompletedAt = &now
	job.LockedAt = nil
	job.LockedBy = nil
	return nil
}

func (s *JobStore) MarkFailed(_ context.Context, jobID int64, workerID string, errMsg string, retry bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.transition(jobID, workerID, state.StatusFailed)
	if err != nil {
		return 0, err
	}
	now := s.clock()
	job.Status = state.StatusFailed
	job.LastError = &errMsg
	job.CompletedAt = &now
	job.LockedAt = nil
	job.LockedBy = nil

	if !retry || job.RetryCount >= job.MaxRetries {
		return 0, nil
	}

	next := job.RetryCount + 1
	parentID := job.ID
	s.insert(&types.Job{
		Name:       job.Name,
		Payload:    clonePayload(job.Payload),
		Status:     state.StatusPending,
		Context:    job.Context,
		RetryCount: next,
		MaxRetries: job.MaxRetries,
		ParentID:   &parentID,
		EnqueuedAt: now,
		RunAt:      now.Add(s.policy.Delay(next)),
	})
	return s.nextID, nil
}

func (s *JobStore) FailAbandoned(_ context.Context, lockTimeout time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	msg := store.ErrClaimAbandoned.Error()
	var failed int64
	for _, job := range s.jobs {
		if !expired(job, now, lockTimeout) || job.RetryCount < job.MaxRetries {
			continue
		}
		job.Status = state.StatusFailed
		job.LastError = &msg
		job.CompletedAt = &now
		job.LockedAt = nil
		job.LockedBy = nil
		failed++
	}
	return failed, nil
}

func (s *JobStore) FindByID(_ context.Context, jobID int64) (*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %d: %w", jobID, store.ErrJobNotFound)
	}
	return copyJob(job), nil
}

func (s *JobStore) List(_ context.Context, page int, pageSize int, status state.JobStatus) (*types.PaginationResult[types.Job], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if page < 1 {
		page = 1
	}

	var matched []*types.Job
	for _, job := range s.jobs {
		if status == "" || job.Status == status {
			matched = append(matched, job)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return before(matched[j], matched[i]) })

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	items := make([]types.Job, 0, end-start)
	for _, job := range matched[start:end] {
		items = append(items, *copyJob(job))
	}
	return types.NewPaginationResult(items, len(matched), page, pageSize), nil
}

func (s *JobStore) CountAllJobsGroupedByStatus(_ context.Context) (map[state.JobStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[state.JobStatus]int, len(state.AllStatuses))
	for _, status := range state.AllStatuses {
		result[status] = 0
	}
	for _, job := range s.jobs {
		result[job.Status]++
	}
	return result, nil
}

// Snapshot returns a copy of every job ordered by id.
func (s *JobStore) Snapshot() []types.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]types.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *copyJob(job))
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs
}

func (s *JobStore) insert(job *types.Job) {
	s.nextID++
	job.ID = s.nextID
	s.jobs[job.ID] = job
}

// transition returns the job when workerID holds its claim and it may move to the
// given status.
func (s *JobStore) transition(jobID int64, workerID string, to state.JobStatus) (*types.Job, error) {
	job, ok := s.jobs[jobID]
	if !ok || !state.IsValidTransition(job.Status, to) || job.LockedBy == nil || *job.LockedBy != workerID {
		return nil, fmt.Errorf("job %d: %w", jobID, store.ErrJobNotClaimed)
	}
	return job, nil
}

func claimable(job *types.Job, now time.Time, lockTimeout time.Duration) bool {
	switch job.Status {
	case state.StatusPending:
		return !job.RunAt.After(now)
	case state.StatusRunning:
		return expired(job, now, lockTimeout) && job.RetryCount < job.MaxRetries
	default:
		return false
	}
}

func expired(job *types.Job, now time.Time, lockTimeout time.Duration) bool {
	return job.Status == state.StatusRunning && job.LockedAt != nil && job.LockedAt.Before(now.Add(-lockTimeout))
}

func before(a, b *types.Job) bool {
	if !a.EnqueuedAt.Equal(b.EnqueuedAt) {
		return a.EnqueuedAt.Before(b.EnqueuedAt)
	}
	return a.ID < b.ID
}

func copyJob(job *types.Job) *types.Job {
	c := *job
	c.Payload = clonePayload(job.Payload)
	return &c
}

func clonePayload(payload []byte) []byte {
	if len(payload) == 0 {
		return []byte("null")
	}
	return append([]byte(nil), payload...)
}
