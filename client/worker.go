package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/domainsync/domainsync/internal/store"
	"github.com/domainsync/domainsync/types"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

type WorkerConfig struct {
	// Instance prefixes the worker id stamped on claimed rows.
	Instance     string
	Concurrency  int
	PollInterval time.Duration
	// LockTimeout is how long a claim survives without a heartbeat before another
	// worker may reclaim the job.
	LockTimeout time.Duration
}

// Worker claims jobs from a store and runs them through a Dispatcher, at most
// Concurrency at a time.
type Worker struct {
	id         string
	store      store.JobStore
	dispatcher Dispatcher
	cfg        WorkerConfig
	logger     *slog.Logger
	sem        *semaphore.Weighted
	wake       chan struct{}
	wg         sync.WaitGroup
	// lastReap is only touched by the Start goroutine.
	lastReap time.Time
}

func NewWorker(jobs store.JobStore, dispatcher Dispatcher, cfg WorkerConfig, logger *slog.Logger) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Minute
	}
	id := uuid.NewString()[:8]
	if cfg.Instance != "" {
		id = cfg.Instance + "-" + id
	}

	return &Worker{
		id:         id,
		store:      jobs,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger.With(slog.String("worker_id", id)),
		sem:        semaphore.NewWeighted(int64(cfg.Concurrency)),
		wake:       make(chan struct{}, 1),
	}
}

func (w *Worker) ID() string {
	return w.id
}

// Start runs the claim loop until ctx is done, then waits for in-flight jobs. Jobs run
// on a context detached from ctx so shutdown never interrupts one mid-execution.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker started",
		slog.Int("concurrency", w.cfg.Concurrency),
		slog.Duration("poll_interval", w.cfg.PollInterval),
		slog.Duration("lock_timeout", w.cfg.LockTimeout))

	for ctx.Err() == nil {
		w.reapAbandoned(ctx)

		if err := w.sem.Acquire(ctx, 1); err != nil {
			break
		}

		job, err := w.store.ClaimNext(ctx, w.id, w.cfg.LockTimeout)
		if err != nil || job == nil {
			w.sem.Release(1)
			if err != nil && ctx.Err() == nil {
				w.logger.Error("failed to claim job", slog.Any("error", err))
			}
			if !w.sleep(ctx) {
				break
			}
			continue
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer w.sem.Release(1)
			w.execute(context.WithoutCancel(ctx), job)
		}()
	}

	w.logger.Info("worker stopping, waiting for running jobs")
	w.wg.Wait()
	w.logger.Info("worker stopped")
	return nil
}

// ProcessNext claims and runs a single job on the calling goroutine. It reports false
// when nothing was eligible.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNext(ctx, w.id, w.cfg.LockTimeout)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.execute(context.WithoutCancel(ctx), job)
	return true, nil
}

// reapAbandoned fails expired claims that have no attempts left, at most once per lock
// timeout.
func (w *Worker) reapAbandoned(ctx context.Context) {
	now := time.Now()
	if !w.lastReap.IsZero() && now.Sub(w.lastReap) < w.cfg.LockTimeout {
		return
	}
	w.lastReap = now

	failed, err := w.store.FailAbandoned(ctx, w.cfg.LockTimeout)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("failed to fail abandoned jobs", slog.Any("error", err))
		}
		return
	}
	if failed > 0 {
		w.logger.Warn("failed abandoned jobs", slog.Int64("count", failed))
	}
}

// Notify cuts the current poll sleep short. It never blocks.
func (w *Worker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// WakeOn calls Notify for every enqueue notice received on notices until the channel
// closes or ctx is done.
func (w *Worker) WakeOn(ctx context.Context, notices <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-notices:
			if !ok {
				return
			}
			var notice types.JobNotice
			if err := json.Unmarshal(msg, &notice); err != nil {
				w.logger.Warn("ignoring malformed job notice", slog.Any("error", err))
				continue
			}
			w.logger.Debug("job notice received", slog.Int64("job_id", notice.JobID), slog.String("job_name", notice.Name))
			w.Notify()
		}
	}
}

func (w *Worker) sleep(ctx context.Context) bool {
	timer := time.NewTimer(w.cfg.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-w.wake:
		return true
	case <-timer.C:
		return true
	}
}

func (w *Worker) execute(ctx context.Context, job *types.Job) {
	log := w.logger.With(
		slog.Int64("job_id", job.ID),
		slog.String("job_name", job.Name),
		slog.Int("retry_count", job.RetryCount))
	if job.Context != "" {
		log = log.With(slog.String("context", job.Context))
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var hb sync.WaitGroup
	hb.Add(1)
	go func() {
		defer hb.Done()
		w.heartbeat(hbCtx, job.ID, log)
	}()

	started := time.Now()
	err := w.run(ctx, job)
	stopHeartbeat()
	hb.Wait()

	if err == nil {
		if markErr := w.store.MarkCompleted(ctx, job.ID, w.id); markErr != nil {
			log.Error("failed to mark job completed", slog.Any("error", markErr))
			return
		}
		log.Info("job completed", slog.Duration("took", time.Since(started)))
		return
	}

	permanent := IsPermanent(err)
	retryID, markErr := w.store.MarkFailed(ctx, job.ID, w.id, err.Error(), !permanent)
	if markErr != nil {
		log.Error("failed to mark job failed", slog.Any("error", markErr), slog.Any("job_error", err))
		return
	}

	switch {
	case retryID != 0:
		log.Warn("job failed, retry scheduled", slog.Any("error", err), slog.Int64("retry_id", retryID))
	case permanent:
		log.Error("job failed permanently", slog.Any("error", err))
	default:
		log.Error("job failed, retries exhausted", slog.Any("error", err))
	}
}

func (w *Worker) run(ctx context.Context, job *types.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("job panicked",
				slog.Int64("job_id", job.ID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return w.dispatcher.Dispatch(ctx, job)
}

func (w *Worker) heartbeat(ctx context.Context, jobID int64, log *slog.Logger) {
	ticker := time.NewTicker(max(w.cfg.LockTimeout/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := w.store.Heartbeat(ctx, jobID, w.id)
			if errors.Is(err, store.ErrJobNotClaimed) {
				log.Warn("lost claim on running job")
				return
			}
			if err != nil && ctx.Err() == nil {
				log.Warn("failed to refresh job lock", slog.Any("error", err))
			}
		}
	}
}
