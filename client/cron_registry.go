package client

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// CronEntry enqueues Job every Interval, or whenever Schedule activates for entries
// built from a Spec.
type CronEntry struct {
	Name     string
	Job      Named
	Schedule cron.Schedule
	Interval time.Duration
	Spec     string
}

// Due reports whether the entry should be enqueued at now given its last enqueue.
func (e CronEntry) Due(last time.Time, ran bool, now time.Time) bool {
	if !ran {
		return true
	}
	if e.Schedule == nil {
		return now.Sub(last) >= e.Interval
	}
	return !e.Schedule.Next(last).After(now)
}

// CronRegistry is the static set of recurring jobs, built once at startup.
type CronRegistry struct {
	entries []CronEntry
	names   map[string]struct{}
}

func NewCronRegistry() *CronRegistry {
	return &CronRegistry{names: make(map[string]struct{})}
}

// Register schedules job every interval.
func (r *CronRegistry) Register(job Named, interval time.Duration) error {
	if interval < time.Second {
		return fmt.Errorf("cron entry %s: interval must be at least 1s, got %s", job.Name(), interval)
	}
	return r.add(CronEntry{
		Name:     job.Name(),
		Job:      job,
		Interval: interval,
	})
}

// RegisterSpec schedules job with a standard five field cron expression or a
// descriptor such as "@daily".
func (r *CronRegistry) RegisterSpec(job Named, spec string) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("cron entry %s: invalid schedule %q: %w", job.Name(), spec, err)
	}
	return r.add(CronEntry{
		Name:     job.Name(),
		Job:      job,
		Schedule: schedule,
		Spec:     spec,
	})
}

func (r *CronRegistry) Entries() []CronEntry {
	return append([]CronEntry(nil), r.entries...)
}

func (r *CronRegistry) add(entry CronEntry) error {
	if entry.Name == "" {
		return fmt.Errorf("cron entry name must not be empty")
	}
	if _, exists := r.names[entry.Name]; exists {
		return fmt.Errorf("cron entry %s is already registered", entry.Name)
	}
	r.names[entry.Name] = struct{}{}
	r.entries = append(r.entries, entry)
	return nil
}
