package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// Definition is a job type. The stored payload is the JSON encoding of the job value,
// so a job carries its parameters in exported fields.
//
// Name must be a string constant: it is persisted with every job and a job enqueued by
// an older build has to resolve after a deploy.
type Definition[S any] interface {
	Named
	Run(ctx context.Context, state S) error
}

type Named interface {
	Name() string
}

// Enqueuer inserts a serialized job. Both store.JobStore and JobManager satisfy it.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload []byte, contextLabel string) (int64, error)
}

// Enqueue serializes job and hands it to e under the job's name.
func Enqueue(ctx context.Context, e Enqueuer, job Named, contextLabel string) (int64, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return 0, fmt.Errorf("failed to encode job %s: %w", job.Name(), err)
	}
	return e.Enqueue(ctx, job.Name(), payload, contextLabel)
}
