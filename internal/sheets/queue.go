package sheets

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dnxsqw/physiq-bot/internal/logger"
	"github.com/dnxsqw/physiq-bot/internal/profile"
	"log/slog"
)

// QueueOptions controls the behaviour of the mirror queue.
type QueueOptions struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
}

type syncJob struct {
	ctx     context.Context
	profile profile.Profile
}

// Queue pushes profile mirror jobs to workers. Enqueue never blocks and
// never returns an error to the caller: a saturated or closed queue just
// drops the job with a warning, keeping the local commit unaffected.
type Queue struct {
	opts   QueueOptions
	syncer Syncer
	jobs   chan syncJob
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	errs   atomic.Uint64
	drops  atomic.Uint64
}

// NewQueue starts a mirror queue with sane defaults if options are zeroed.
func NewQueue(syncer Syncer, opts QueueOptions) *Queue {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 128
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}

	q := &Queue{
		opts:   opts,
		syncer: syncer,
		jobs:   make(chan syncJob, opts.QueueSize),
		stop:   make(chan struct{}),
	}

	q.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go q.worker()
	}

	return q
}

// Enqueue schedules a mirror write for the profile. Best effort only.
func (q *Queue) Enqueue(ctx context.Context, p profile.Profile) {
	if q == nil {
		return
	}
	select {
	case <-q.stop:
		q.drops.Add(1)
		logger.Warn(ctx, "sheets", "sync.drop",
			slog.String("reason", "queue_closed"),
			slog.String("key", p.UserID),
		)
		return
	default:
	}

	select {
	case q.jobs <- syncJob{ctx: context.WithoutCancel(ctx), profile: p}:
	default:
		q.drops.Add(1)
		logger.Warn(ctx, "sheets", "sync.drop",
			slog.String("reason", "queue_full"),
			slog.String("key", p.UserID),
		)
	}
}

// ErrorCount returns the number of jobs that exhausted their retries.
func (q *Queue) ErrorCount() uint64 {
	return q.errs.Load()
}

// DropCount returns the number of jobs rejected at enqueue time.
func (q *Queue) DropCount() uint64 {
	return q.drops.Load()
}

// Close stops workers after draining queued jobs.
func (q *Queue) Close() {
	if q == nil {
		return
	}
	q.once.Do(func() {
		close(q.stop)
		close(q.jobs)
		q.wg.Wait()
	})
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.handle(j)
	}
}

func (q *Queue) handle(j syncJob) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	attempts := q.opts.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		err := q.syncer.Sync(ctx, j.profile)
		if err == nil {
			logger.Debug(ctx, "sheets", "sync.success",
				slog.String("key", j.profile.UserID),
				slog.Int("attempt", attempt),
				slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
			)
			return
		}
		lastErr = err

		kind := ClassifyError(err)
		if !retryableKind(kind) || attempt == attempts {
			break
		}

		delay := q.opts.RetryBackoff * time.Duration(attempt)
		logger.Debug(ctx, "sheets", "sync.retry.backoff",
			slog.String("key", j.profile.UserID),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("err_kind", kind),
		)
		time.Sleep(delay)
	}

	// Mirror failures never reach the caller: log and count only.
	q.errs.Add(1)
	logger.Error(ctx, "sheets", "sync.fail",
		slog.String("key", j.profile.UserID),
		slog.String("err", logger.SanitizeLimit(lastErr.Error(), 256)),
		slog.String("err_kind", ClassifyError(lastErr)),
		slog.Int("attempts", attempts),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	)
}

func retryableKind(kind string) bool {
	switch kind {
	case "timeout", "network", "rate_limited", "http_5xx":
		return true
	}
	return false
}
