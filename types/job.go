package types

import (
	"encoding/json"
	"time"

	"github.com/domainsync/domainsync/internal/state"
)

// Job is a persisted unit of work. A retry of a failed job is a new Job whose ParentID
// points at the failed row.
type Job struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Payload     json.RawMessage `json:"payload"`
	Status      state.JobStatus `json:"status"`
	Context     string          `json:"context"`
	RetryCount  int             `json:"retry_count"`
	MaxRetries  int             `json:"max_retries"`
	ParentID    *int64          `json:"parent_id,omitempty"`
	LastError   *string         `json:"last_error,omitempty"`
	LockedBy    *string         `json:"locked_by,omitempty"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
	RunAt       time.Time       `json:"run_at"`
	LockedAt    *time.Time      `json:"locked_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// JobNotice is published to the message broker after an enqueue so idle workers can
// skip the rest of their poll sleep.
type JobNotice struct {
	JobID int64  `json:"job_id"`
	Name  string `json:"name"`
}
