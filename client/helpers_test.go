package client

import (
	"context"
	"errors"
	"sync"
	"time"
)

type testState struct {
	mu      sync.Mutex
	ran     []string
	running int
	peak    int
	release chan struct{}
	ctxErrs []error
}

func (s *testState) record(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ran = append(s.ran, msg)
}

func (s *testState) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ran...)
}

type echoJob struct {
	Message string `json:"message"`
}

func (echoJob) Name() string { return "Echo" }

func (j echoJob) Run(_ context.Context, s *testState) error {
	s.record(j.Message)
	return nil
}

type flakyJob struct{}

func (flakyJob) Name() string { return "Flaky" }

func (flakyJob) Run(_ context.Context, s *testState) error {
	s.record("flaky")
	return errors.New("registrar timeout")
}

type rejectJob struct{}

func (rejectJob) Name() string { return "Reject" }

func (rejectJob) Run(_ context.Context, _ *testState) error {
	return Permanent(errors.New("domain no longer exists"))
}

type panicJob struct{}

func (panicJob) Name() string { return "Panic" }

func (panicJob) Run(_ context.Context, _ *testState) error {
	var m map[string]int
	m["boom"]++
	return nil
}

// blockingJob runs until the state's release channel closes and records whether its
// context was cancelled meanwhile.
type blockingJob struct{}

func (blockingJob) Name() string { return "Blocking" }

func (blockingJob) Run(ctx context.Context, s *testState) error {
	s.mu.Lock()
	s.running++
	if s.running > s.peak {
		s.peak = s.running
	}
	s.mu.Unlock()

	<-s.release
	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	s.running--
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	s.mu.Unlock()
	s.record("blocking")
	return nil
}

// slowJob sleeps for a fixed time, long enough to need heartbeats.
type slowJob struct {
	Millis int `json:"millis"`
}

func (slowJob) Name() string { return "Slow" }

func (j slowJob) Run(_ context.Context, s *testState) error {
	time.Sleep(time.Duration(j.Millis) * time.Millisecond)
	s.record("slow")
	return nil
}

func newTestRegistry(s *testState) *Registry[*testState] {
	r := NewRegistry(s)
	MustRegister(r, echoJob{})
	MustRegister(r, flakyJob{})
	MustRegister(r, rejectJob{})
	MustRegister(r, panicJob{})
	MustRegister(r, blockingJob{})
	MustRegister(r, slowJob{})
	return r
}
