package docstore

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrLoopStopped is returned by Do once Run has returned.
var ErrLoopStopped = errors.New("docstore: loop stopped")

// LoopOptions configures a Loop.
type LoopOptions struct {
	// Interval between ticks. Default: 50ms.
	Interval time.Duration
	// Grace bounds how long Run waits for a running save or load on
	// shutdown. Default: 10s.
	Grace time.Duration
}

func (o *LoopOptions) defaults() {
	if o.Interval <= 0 {
		o.Interval = 50 * time.Millisecond
	}
	if o.Grace <= 0 {
		o.Grace = 10 * time.Second
	}
}

type request struct {
	fn   func(*Store) error
	done chan error
}

// Loop owns a Store on a single goroutine. It ticks the store on a timer and
// runs submitted functions between ticks.
type Loop struct {
	store   *Store
	opts    LoopOptions
	reqs    chan request
	stopped chan struct{}
	ticks   atomic.Int64
}

// NewLoop creates a Loop for s. s must not be used directly afterwards.
func NewLoop(s *Store, opts LoopOptions) *Loop {
	opts.defaults()
	return &Loop{
		store:   s,
		opts:    opts,
		reqs:    make(chan request),
		stopped: make(chan struct{}),
	}
}

// Run ticks until ctx is cancelled. A save or load still running at that
// point is waited for, up to the grace period, so its result is recorded.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.stopped)
	t := time.NewTicker(l.opts.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			graceCtx, cancel := context.WithTimeout(context.Background(), l.opts.Grace)
			defer cancel()
			if err := l.store.Settle(graceCtx); err != nil {
				l.store.logger.Warn("docstore: shutdown with operation still running", "status", l.store.Status(), "error", err)
			}
			return nil
		case <-t.C:
			l.store.Tick()
			l.ticks.Add(1)
		case req := <-l.reqs:
			req.done <- req.fn(l.store)
		}
	}
}

// Do runs fn on the loop goroutine and returns its error.
func (l *Loop) Do(ctx context.Context, fn func(*Store) error) error {
	req := request{fn: fn, done: make(chan error, 1)}
	select {
	case l.reqs <- req:
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ticks is how many ticks have run.
func (l *Loop) Ticks() int64 { return l.ticks.Load() }
