package memory

import (
	"context"
	"sync"
	"time"
)

type CronRunStore struct {
	mu   sync.RWMutex
	runs map[string]time.Time
}

func NewCronRunStore() *CronRunStore {
	return &CronRunStore{runs: make(map[string]time.Time)}
}

func (s *CronRunStore) LastEnqueuedAt(_ context.Context, name string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last, ok := s.runs[name]
	return last, ok, nil
}

func (s *CronRunStore) SetLastEnqueuedAt(_ context.Context, name string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[name] = at
	return nil
}
