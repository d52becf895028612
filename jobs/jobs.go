// Package jobs runs blocking work off the interactive loop and lets the loop
// collect the result with a non-blocking poll.
//
// Typical usage:
//
//	pool := jobs.NewPool(jobs.Options{Workers: 2})
//	h := jobs.Spawn(pool, "save", func() SaveResult { return write(doc) })
//	// every tick:
//	if res, ok := h.Poll(); ok { ... }
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/cartograph/idgen"
)

// Options tunes a Pool.
type Options struct {
	// Workers bounds how many jobs run at once. Extra jobs wait for a slot.
	// Default: 2.
	Workers int
	// IDs generates job identifiers. Default: "job_" + UUIDv7.
	IDs idgen.Generator
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.IDs == nil {
		o.IDs = idgen.Prefixed("job_", idgen.Default)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Pool runs jobs on goroutines bounded by a semaphore.
type Pool struct {
	opts Options
	sem  chan struct{}
	wg   sync.WaitGroup

	started  atomic.Int64
	finished atomic.Int64
	panicked atomic.Int64
	runNs    atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Started    int64         `json:"started"`
	Finished   int64         `json:"finished"`
	Panicked   int64         `json:"panicked"`
	InFlight   int64         `json:"in_flight"`
	AvgRunTime time.Duration `json:"avg_run_time"`
}

// NewPool creates a Pool.
func NewPool(opts Options) *Pool {
	opts.defaults()
	return &Pool{opts: opts, sem: make(chan struct{}, opts.Workers)}
}

// Stats returns the current counters.
func (p *Pool) Stats() Stats {
	s := Stats{
		Started:  p.started.Load(),
		Finished: p.finished.Load(),
		Panicked: p.panicked.Load(),
	}
	s.InFlight = s.Started - s.Finished
	if s.Finished > 0 {
		s.AvgRunTime = time.Duration(p.runNs.Load() / s.Finished)
	}
	return s
}

// Wait blocks until every spawned job has finished.
func (p *Pool) Wait() { p.wg.Wait() }

// Handle is the result slot of one job.
type Handle[T any] struct {
	ID   string
	Name string

	done   chan struct{}
	result T
	err    error
}

// Spawn starts fn in the background and returns immediately. A panic in fn is
// recovered and reported through Handle.Err.
func Spawn[T any](p *Pool, name string, fn func() T) *Handle[T] {
	h := &Handle[T]{ID: p.opts.IDs(), Name: name, done: make(chan struct{})}
	p.started.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sem <- struct{}{}
		defer func() { <-p.sem }()

		log := p.opts.Logger
		start := time.Now()
		log.Debug("jobs: started", "job", h.ID, "name", name)
		defer func() {
			if r := recover(); r != nil {
				p.panicked.Add(1)
				h.err = fmt.Errorf("jobs: %s panicked: %v", name, r)
				log.Error("jobs: panicked", "job", h.ID, "name", name, "panic", r)
			}
			elapsed := time.Since(start)
			p.runNs.Add(int64(elapsed))
			p.finished.Add(1)
			log.Debug("jobs: finished", "job", h.ID, "name", name, "duration", elapsed)
			close(h.done)
		}()
		h.result = fn()
	}()
	return h
}

// Poll returns the result without blocking. ok is false while the job runs.
func (h *Handle[T]) Poll() (result T, ok bool) {
	select {
	case <-h.done:
		return h.result, true
	default:
		var zero T
		return zero, false
	}
}

// Done is closed when the job finishes.
func (h *Handle[T]) Done() <-chan struct{} { return h.done }

// Err reports a recovered panic. It is meaningful once the job is done.
func (h *Handle[T]) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the job finishes or ctx expires.
func (h *Handle[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
