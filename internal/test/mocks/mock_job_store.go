package mocks

import (
	"context"
	"time"

	"github.com/domainsync/domainsync/internal/state"
	"github.com/domainsync/domainsync/types"
)

// MockJobStore is a mock implementation of store.JobStore for testing.
type MockJobStore struct {
	EnqueueFunc                     func(ctx context.Context, name string, payload []byte, contextLabel string) (int64, error)
	ClaimNextFunc                   func(ctx context.Context, workerID string, lockTimeout time.Duration) (*types.Job, error)
	HeartbeatFunc                   func(ctx context.Context, jobID int64, workerID string) error
	MarkCompletedFunc               func(ctx context.Context, jobID int64, workerID string) error
	MarkFailedFunc                  func(ctx context.Context, jobID int64, workerID string, errMsg string, retry bool) (int64, error)
	FailAbandonedFunc               func(ctx context.Context, lockTimeout time.Duration) (int64, error)
	FindByIDFunc                    func(ctx context.Context, jobID int64) (*types.Job, error)
	ListFunc                        func(ctx context.Context, page int, pageSize int, status state.JobStatus) (*types.PaginationResult[types.Job], error)
	CountAllJobsGroupedByStatusFunc func(ctx context.Context) (map[state.JobStatus]int, error)
}

func (m *MockJobStore) Enqueue(ctx context.Context, name string, payload []byte, contextLabel string) (int64, error) {
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, name, payload, contextLabel)
	}
	return 0, nil
}

func (m *MockJobStore) ClaimNext(ctx context.Context, workerID string, lockTimeout time.Duration) (*types.Job, error) {
	if m.ClaimNextFunc != nil {
		return m.ClaimNextFunc(ctx, workerID, lockTimeout)
	}
	return nil, nil
}

func (m *MockJobStore) Heartbeat(ctx context.Context, jobID int64, workerID string) error {
	if m.HeartbeatFunc != nil {
		return m.HeartbeatFunc(ctx, jobID, workerID)
	}
	return nil
}

func (m *MockJobStore) MarkCompleted(ctx context.Context, jobID int64, workerID string) error {
	if m.MarkCompletedFunc != nil {
		return m.MarkCompletedFunc(ctx, jobID, workerID)
	}
	return nil
}

func (m *MockJobStore) MarkFailed(ctx context.Context, jobID int64, workerID string, errMsg string, retry bool) (int64, error) {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, jobID, workerID, errMsg, retry)
	}
	return 0, nil
}

func (m *MockJobStore) FailAbandoned(ctx context.Context, lockTimeout time.Duration) (int64, error) {
	if m.FailAbandonedFunc != nil {
		return m.FailAbandonedFunc(ctx, lockTimeout)
	}
	return 0, nil
}

func (m *MockJobStore) FindByID(ctx context.Context, jobID int64) (*types.Job, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, jobID)
	}
	return nil, nil
}

func (m *MockJobStore) List(ctx context.Context, page int, pageSize int, status state.JobStatus) (*types.PaginationResult[types.Job], error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, page, pageSize, status)
	}
	return types.NewPaginationResult[types.Job](nil, 0, page, pageSize), nil
}

func (m *MockJobStore) CountAllJobsGroupedByStatus(ctx context.Context) (map[state.JobStatus]int, error) {
	if m.CountAllJobsGroupedByStatusFunc != nil {
		return m.CountAllJobsGroupedByStatusFunc(ctx)
	}
	return map[state.JobStatus]int{}, nil
}
