package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/domainsync/domainsync/types"
)

// Dispatcher runs a claimed job by name.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *types.Job) error
}

type handler func(ctx context.Context, payload []byte) error

// Registry maps job names to handlers that run with a shared state S, typically the
// application's stores and API clients.
type Registry[S any] struct {
	state    S
	handlers map[string]handler
}

func NewRegistry[S any](state S) *Registry[S] {
	return &Registry[S]{
		state:    state,
		handlers: make(map[string]handler),
	}
}

// Register adds the job type of template to r. The template itself is only used for its
// name: every dispatch decodes the payload into a fresh J.
func Register[S any, J Definition[S]](r *Registry[S], template J) error {
	name := template.Name()
	if name == "" {
		return fmt.Errorf("job name must not be empty")
	}
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("job %s is already registered", name)
	}

	r.handlers[name] = func(ctx context.Context, payload []byte) error {
		var job J
		if err := json.Unmarshal(payload, &job); err != nil {
			return Permanent(fmt.Errorf("%w: %s: %v", ErrInvalidPayload, name, err))
		}
		return job.Run(ctx, r.state)
	}
	return nil
}

// MustRegister is Register for startup code where a duplicate name is a programming error.
func MustRegister[S any, J Definition[S]](r *Registry[S], template J) {
	if err := Register[S, J](r, template); err != nil {
		panic(err)
	}
}

func (r *Registry[S]) Dispatch(ctx context.Context, job *types.Job) error {
	h, ok := r.handlers[job.Name]
	if !ok {
		return Permanent(fmt.Errorf("%w: %s", ErrUnknownJob, job.Name))
	}
	return h(ctx, job.Payload)
}

func (r *Registry[S]) Exists(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered job names in sorted order.
func (r *Registry[S]) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
