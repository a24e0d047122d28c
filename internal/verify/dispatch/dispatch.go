// Package dispatch is the task boundary between webhook intake and the
// ledger-bound verification path. The webhook handler enqueues a job and
// returns; a worker pool consumes jobs and runs verification fire-and-forget.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"veritok/internal/sentinel"
)

// Job is one queued verification request.
type Job struct {
	SessionID     string
	RawAttributes map[string]string
}

// Verifier runs the verification for one session.
type Verifier interface {
	StartVerification(ctx context.Context, sessionID string, rawAttributes map[string]string)
}

// Dispatcher fans queued jobs out to a fixed worker pool. Two queued
// deliveries of the same session id are collapsed: while one run is in
// flight, later jobs for that session are dropped (the store-level claim
// guards the cross-instance case).
type Dispatcher struct {
	jobs     chan Job
	verifier Verifier
	logger   *slog.Logger
	workers  int

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the worker pool size when greater than zero. Default is 4.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets the job queue capacity when greater than zero. Default is 256.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.jobs = make(chan Job, n)
		}
	}
}

// New constructs a Dispatcher.
func New(verifier Verifier, logger *slog.Logger, opts ...Option) (*Dispatcher, error) {
	if verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}
	d := &Dispatcher{
		jobs:     make(chan Job, 256),
		verifier: verifier,
		logger:   logger,
		workers:  4,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d, nil
}

// Start launches the worker pool and blocks until ctx is cancelled and all
// in-flight verifications have finished.
func (d *Dispatcher) Start(ctx context.Context) error {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	<-ctx.Done()
	d.wg.Wait()
	return ctx.Err()
}

// Enqueue adds a verification job. It never blocks: a full queue is reported
// to the caller instead of stalling webhook responses.
func (d *Dispatcher) Enqueue(job Job) error {
	select {
	case d.jobs <- job:
		return nil
	default:
		return fmt.Errorf("verification queue full: %w", sentinel.ErrUnavailable)
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.jobs:
			if !d.begin(job.SessionID) {
				d.logger.DebugContext(ctx, "verification already in flight, dropping duplicate",
					"session_id", job.SessionID)
				continue
			}
			d.verifier.StartVerification(ctx, job.SessionID, job.RawAttributes)
			d.end(job.SessionID)
		}
	}
}

func (d *Dispatcher) begin(sessionID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, running := d.inflight[sessionID]; running {
		return false
	}
	d.inflight[sessionID] = struct{}{}
	return true
}

func (d *Dispatcher) end(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, sessionID)
}
