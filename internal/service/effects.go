package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"unheard/internal/observability"
)

// Secondary effects. Each one follows a primary write that already succeeded.
const (
	EffectCommentCountInc = "comment_count_inc"
	EffectCommentCountDec = "comment_count_dec"
	EffectHighlight       = "highlight"
	EffectInitialReaction = "initial_reaction"
)

// Effect outcomes as recorded in unheard_secondary_effects_total.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
)

// ErrEffectQueueFull is reported when an effect is dropped.
var ErrEffectQueueFull = errors.New("secondary effect queue full")

// ErrEffectQueueClosed is reported for effects enqueued after Close.
var ErrEffectQueueClosed = errors.New("secondary effect queue closed")

// EffectFunc performs one secondary write.
type EffectFunc func(ctx context.Context) error

// EffectOutcome describes a finished, failed or dropped effect.
type EffectOutcome struct {
	Effect  string
	Key     string
	Outcome string
	Err     error
}

type effectFailure struct {
	ctx     context.Context
	outcome EffectOutcome
}

type effectJob struct {
	ctx    context.Context
	effect string
	key    string
	fn     EffectFunc
}

// EffectQueue runs secondary writes on a fixed pool of workers. Enqueue never
// blocks the caller and failures never reach it: they travel over the error
// channel to a reporter that logs and counts them.
type EffectQueue struct {
	jobs    chan effectJob
	errs    chan effectFailure
	timeout time.Duration
	observe func(EffectOutcome)

	mu     sync.RWMutex
	closed bool

	pmu      sync.Mutex
	inflight int
	idle     chan struct{}

	workers  sync.WaitGroup
	reported chan struct{}
}

// EffectOption configures an EffectQueue.
type EffectOption func(*EffectQueue)

// WithEffectObserver registers fn to see every outcome after it is recorded.
func WithEffectObserver(fn func(EffectOutcome)) EffectOption {
	return func(q *EffectQueue) { q.observe = fn }
}

// WithEffectTimeout bounds how long one effect may run.
func WithEffectTimeout(d time.Duration) EffectOption {
	return func(q *EffectQueue) { q.timeout = d }
}

// NewEffectQueue starts workers goroutines reading from a buffer of size effects.
func NewEffectQueue(workers, size int, opts ...EffectOption) *EffectQueue {
	if workers <= 0 {
		workers = 4
	}
	if size <= 0 {
		size = 256
	}
	q := &EffectQueue{
		jobs:     make(chan effectJob, size),
		errs:     make(chan effectFailure, workers),
		timeout:  10 * time.Second,
		reported: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}

	q.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go q.work()
	}
	go q.report()
	return q
}

// Enqueue schedules fn and returns immediately. The effect keeps the values of
// ctx but not its cancellation. It reports false when the effect was dropped.
func (q *EffectQueue) Enqueue(ctx context.Context, effect, key string, fn EffectFunc) bool {
	if q == nil {
		return false
	}
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.record(ctx, EffectOutcome{Effect: effect, Key: key, Outcome: OutcomeDropped, Err: ErrEffectQueueClosed})
		return false
	}

	q.begin()
	select {
	case q.jobs <- effectJob{ctx: context.WithoutCancel(ctx), effect: effect, key: key, fn: fn}:
		return true
	default:
		q.finish()
		q.record(ctx, EffectOutcome{Effect: effect, Key: key, Outcome: OutcomeDropped, Err: ErrEffectQueueFull})
		return false
	}
}

// Flush waits until every accepted effect has finished and been reported.
func (q *EffectQueue) Flush(ctx context.Context) error {
	q.pmu.Lock()
	if q.inflight == 0 {
		q.pmu.Unlock()
		return nil
	}
	idle := q.idle
	q.pmu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting effects, drains the buffer and stops the workers.
func (q *EffectQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.workers.Wait()
	close(q.errs)
	<-q.reported
}

func (q *EffectQueue) work() {
	defer q.workers.Done()
	for job := range q.jobs {
		err := q.run(job)
		if err != nil {
			q.errs <- effectFailure{
				ctx:     job.ctx,
				outcome: EffectOutcome{Effect: job.effect, Key: job.key, Outcome: OutcomeFailed, Err: err},
			}
			continue
		}
		q.record(job.ctx, EffectOutcome{Effect: job.effect, Key: job.key, Outcome: OutcomeOK})
		q.finish()
	}
}

func (q *EffectQueue) begin() {
	q.pmu.Lock()
	if q.inflight == 0 {
		q.idle = make(chan struct{})
	}
	q.inflight++
	q.pmu.Unlock()
}

func (q *EffectQueue) finish() {
	q.pmu.Lock()
	q.inflight--
	if q.inflight == 0 {
		close(q.idle)
	}
	q.pmu.Unlock()
}

func (q *EffectQueue) run(job effectJob) (err error) {
	ctx, cancel := context.WithTimeout(job.ctx, q.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("secondary effect panicked")
		}
	}()
	return job.fn(ctx)
}

func (q *EffectQueue) report() {
	defer close(q.reported)
	for failure := range q.errs {
		q.record(failure.ctx, failure.outcome)
		q.finish()
	}
}

func (q *EffectQueue) record(ctx context.Context, o EffectOutcome) {
	observability.SecondaryEffectsTotal.WithLabelValues(o.Effect, o.Outcome).Inc()
	if o.Err != nil {
		observability.GlobalLogger.WarnContext(ctx, "secondary effect not applied",
			slog.String("effect", o.Effect),
			slog.String("key", o.Key),
			slog.String("outcome", o.Outcome),
			slog.String("error", o.Err.Error()),
		)
	}
	if q.observe != nil {
		q.observe(o)
	}
}
