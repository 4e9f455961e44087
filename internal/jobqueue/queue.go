// Package jobqueue serializes render jobs behind a concurrency bound.
// Jobs run in submission order; each gets a hard timeout that fires even
// if the job ignores its context.
package jobqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/errors"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/logger"
)

// Job is one unit of work. It should honor ctx, but the queue does not
// depend on it doing so.
type Job func(ctx context.Context) (any, error)

// Future resolves to the job's outcome exactly once.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// Wait blocks until the job settles or ctx ends.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// settle is called at most once per future.
func (f *Future) settle(value any, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Options configure a Queue.
type Options struct {
	// Concurrency is the number of jobs allowed to run at once
	// (default 1).
	Concurrency int
	// JobTimeout is the hard per-job limit (default 10 minutes).
	JobTimeout time.Duration
	Log        *logger.Logger
}

type task struct {
	id  string
	job Job
	fut *Future
}

// Queue is a FIFO job queue with a runtime-adjustable concurrency bound.
// A failing or panicking job never affects its neighbors.
type Queue struct {
	mu          sync.Mutex
	pending     []*task
	active      int
	concurrency int
	jobTimeout  time.Duration
	log         *logger.Logger
}

// New creates a queue. No background goroutines run while the queue is
// idle; enqueueing drives execution.
func New(opts Options) *Queue {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 10 * time.Minute
	}
	log := opts.Log
	if log == nil {
		log = logger.NewDefault()
	}

	return &Queue{
		concurrency: opts.Concurrency,
		jobTimeout:  opts.JobTimeout,
		log:         log.WithComponent("jobqueue"),
	}
}

// Enqueue appends a job and returns its future. The job starts
// immediately if a slot is free.
func (q *Queue) Enqueue(id string, job Job) *Future {
	t := &task{id: id, job: job, fut: &Future{done: make(chan struct{})}}

	q.mu.Lock()
	q.pending = append(q.pending, t)
	q.drainLocked()
	q.mu.Unlock()

	return t.fut
}

// SetConcurrency adjusts the bound at runtime. Raising it drains waiting
// jobs right away; lowering it lets running jobs finish and only throttles
// new starts.
func (q *Queue) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	q.mu.Lock()
	q.concurrency = n
	q.drainLocked()
	q.mu.Unlock()
}

// Len reports jobs waiting to start.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Active reports jobs currently running.
func (q *Queue) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// drainLocked starts pending jobs while slots are free. Caller holds q.mu.
func (q *Queue) drainLocked() {
	for q.active < q.concurrency && len(q.pending) > 0 {
		t := q.pending[0]
		q.pending = q.pending[1:]
		q.active++
		go q.run(t)
	}
}

// run executes one job with the hard timeout racing its completion.
func (q *Queue) run(t *task) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), q.jobTimeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: errors.New(errors.CodeInternal, fmt.Sprintf("job panic: %v", r))}
			}
		}()
		v, err := t.job(ctx)
		done <- outcome{value: v, err: err}
	}()

	var result outcome
	select {
	case result = <-done:
	case <-ctx.Done():
		// The job goroutine may still be running; it settles into the
		// buffered channel and is discarded.
		result = outcome{err: errors.Timeout("job execution").WithField("job_id", t.id)}
	}

	if result.err != nil {
		q.log.Warn("job failed",
			"job_id", t.id,
			"error", result.err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else {
		q.log.Debug("job completed",
			"job_id", t.id,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	t.fut.settle(result.value, result.err)

	q.mu.Lock()
	q.active--
	q.drainLocked()
	q.mu.Unlock()
}
