package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/domainsync/domainsync/internal/constants"
	"github.com/domainsync/domainsync/internal/lock"
	"github.com/domainsync/domainsync/internal/store"
)

// CronDriver enqueues due cron entries on every tick. Several drivers may share one
// store: a tick only runs while holding the cron tick lock, and a driver that loses the
// race skips the tick.
type CronDriver struct {
	registry *CronRegistry
	runs     store.CronRunStore
	jobs     Enqueuer
	lock     lock.DistributedLockManager
	tick     time.Duration
	logger   *slog.Logger
	clock    func() time.Time
}

type CronDriverOption func(*CronDriver)

func WithCronClock(clock func() time.Time) CronDriverOption {
	return func(d *CronDriver) {
		d.clock = clock
	}
}

// NewCronDriver builds a driver. lockMgr may be nil when only one driver ever runs.
func NewCronDriver(registry *CronRegistry, runs store.CronRunStore, jobs Enqueuer, lockMgr lock.DistributedLockManager, tick time.Duration, logger *slog.Logger, opts ...CronDriverOption) *CronDriver {
	if tick <= 0 {
		tick = 5 * time.Second
	}
	d := &CronDriver{
		registry: registry,
		runs:     runs,
		jobs:     jobs,
		lock:     lockMgr,
		tick:     tick,
		logger:   logger.With(slog.String("component", "cron")),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start ticks immediately and then every tick interval until ctx is done.
func (d *CronDriver) Start(ctx context.Context) error {
	entries := d.registry.Entries()
	for _, entry := range entries {
		attrs := []any{slog.String("entry", entry.Name)}
		if entry.Spec != "" {
			attrs = append(attrs, slog.String("spec", entry.Spec))
		} else {
			attrs = append(attrs, slog.Duration("interval", entry.Interval))
		}
		d.logger.Info("cron entry registered", attrs...)
	}

	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for {
		d.Tick(ctx)
		select {
		case <-ctx.Done():
			d.logger.Info("cron driver stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick enqueues every due entry once and returns how many were enqueued.
func (d *CronDriver) Tick(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	if d.lock != nil {
		acquired, err := d.lock.TryAcquire(ctx, constants.CronTickLock)
		if err != nil {
			d.logger.Error("skipping cron tick, lock unavailable", slog.Any("error", err))
			return 0
		}
		if !acquired {
			d.logger.Debug("skipping cron tick, another driver holds the lock")
			return 0
		}
		defer func() {
			if err := d.lock.Release(context.WithoutCancel(ctx), constants.CronTickLock); err != nil {
				d.logger.Warn("failed to release cron tick lock", slog.Any("error", err))
			}
		}()
	}

	now := d.clock()
	enqueued := 0
	for _, entry := range d.registry.Entries() {
		if d.runEntry(ctx, entry, now) {
			enqueued++
		}
	}
	return enqueued
}

func (d *CronDriver) runEntry(ctx context.Context, entry CronEntry, now time.Time) bool {
	log := d.logger.With(slog.String("entry", entry.Name))

	last, ran, err := d.runs.LastEnqueuedAt(ctx, entry.Name)
	if err != nil {
		log.Error("failed to read last cron run", slog.Any("error", err))
		return false
	}
	if !entry.Due(last, ran, now) {
		return false
	}

	jobID, err := Enqueue(ctx, d.jobs, entry.Job, constants.CronContextPrefix+entry.Name)
	if err != nil {
		log.Error("failed to enqueue cron job", slog.Any("error", err))
		return false
	}

	// A failure here means the entry is enqueued again next tick.
	if err := d.runs.SetLastEnqueuedAt(ctx, entry.Name, now); err != nil {
		log.Error("failed to record cron run", slog.Int64("job_id", jobID), slog.Any("error", err))
		return true
	}

	log.Info("cron job enqueued", slog.Int64("job_id", jobID))
	return true
}
