package client

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/domainsync/domainsync/internal/message_broaker"
	"github.com/domainsync/domainsync/internal/store"
	"github.com/domainsync/domainsync/types"
)

// JobManager is the Enqueuer handed to jobs and HTTP handlers. After each insert it
// publishes a notice so idle workers wake immediately. The notice is best effort.
type JobManager struct {
	store  store.JobStore
	broker message_broaker.MessageBroker
	queue  string
	logger *slog.Logger
}

// NewJobManager builds a manager. broker may be nil, in which case workers only poll.
func NewJobManager(jobs store.JobStore, broker message_broaker.MessageBroker, queue string, logger *slog.Logger) *JobManager {
	return &JobManager{
		store:  jobs,
		broker: broker,
		queue:  queue,
		logger: logger,
	}
}

func (m *JobManager) Enqueue(ctx context.Context, name string, payload []byte, contextLabel string) (int64, error) {
	jobID, err := m.store.Enqueue(ctx, name, payload, contextLabel)
	if err != nil {
		return 0, err
	}
	m.logger.Debug("job enqueued",
		slog.Int64("job_id", jobID),
		slog.String("job_name", name),
		slog.String("context", contextLabel))

	if m.broker != nil {
		m.publish(ctx, types.JobNotice{JobID: jobID, Name: name})
	}
	return jobID, nil
}

// EnqueueJob serializes job and enqueues it.
func (m *JobManager) EnqueueJob(ctx context.Context, job Named, contextLabel string) (int64, error) {
	return Enqueue(ctx, m, job, contextLabel)
}

func (m *JobManager) FindByID(ctx context.Context, jobID int64) (*types.Job, error) {
	return m.store.FindByID(ctx, jobID)
}

func (m *JobManager) publish(ctx context.Context, notice types.JobNotice) {
	body, err := json.Marshal(notice)
	if err != nil {
		return
	}
	if err := m.broker.Publish(ctx, m.queue, body); err != nil {
		m.logger.Warn("failed to publish job notice",
			slog.Int64("job_id", notice.JobID),
			slog.Any("error", err))
	}
}
