package workspace

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Recorder queues workspace writes so callers on the interactive loop never
// wait on SQLite. Run drains the queue on its own goroutine.
type Recorder struct {
	store   *Store
	logger  *slog.Logger
	queue   chan func(context.Context) error
	stopped chan struct{}
	dropped atomic.Int64
	written atomic.Int64
}

// NewRecorder creates a Recorder with room for buffer pending writes.
func NewRecorder(s *Store, logger *slog.Logger, buffer int) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Recorder{
		store:   s,
		logger:  logger,
		queue:   make(chan func(context.Context) error, buffer),
		stopped: make(chan struct{}),
	}
}

// MapPathChanged records path as the last map. It never blocks.
func (r *Recorder) MapPathChanged(path string) {
	r.enqueue("last_map_path", func(ctx context.Context) error {
		return r.store.SetLastMapPath(ctx, path)
	})
}

// OperationFinished appends a save or load outcome to the history. It never
// blocks.
func (r *Recorder) OperationFinished(kind, path string, opErr error) {
	e := &Event{Kind: kind, Path: path, OK: opErr == nil, CreatedAt: r.store.now().UnixMilli()}
	if opErr != nil {
		e.Detail = opErr.Error()
	}
	r.enqueue("event", func(ctx context.Context) error {
		return r.store.RecordEvent(ctx, e)
	})
}

// LibraryOpened bumps root in the recent libraries. It never blocks.
func (r *Recorder) LibraryOpened(root string) {
	r.enqueue("recent_library", func(ctx context.Context) error {
		return r.store.AddRecentLibrary(ctx, root)
	})
}

func (r *Recorder) enqueue(what string, fn func(context.Context) error) {
	select {
	case r.queue <- fn:
	default:
		r.dropped.Add(1)
		r.logger.Warn("workspace: queue full, dropping write", "what", what)
	}
}

// Dropped is the number of writes discarded because the queue was full.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

// Written is the number of writes applied.
func (r *Recorder) Written() int64 { return r.written.Load() }

// Run applies queued writes until ctx is cancelled, then drains what is left
// with a short grace period.
func (r *Recorder) Run(ctx context.Context) error {
	defer close(r.stopped)
	r.logger.Info("workspace: recorder started")
	for {
		select {
		case fn := <-r.queue:
			r.apply(ctx, fn)
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			for {
				select {
				case fn := <-r.queue:
					r.apply(drainCtx, fn)
				default:
					r.logger.Info("workspace: recorder stopped", "written", r.written.Load(), "dropped", r.dropped.Load())
					return nil
				}
			}
		}
	}
}

// Flush blocks until every write queued before the call has been applied,
// Run has returned, or ctx expires.
func (r *Recorder) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case r.queue <- func(context.Context) error { close(done); return nil }:
	case <-r.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-r.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recent flushes pending writes so a just-finished save shows up, then reads
// the recent maps and libraries.
func (r *Recorder) Recent(ctx context.Context, limit int) (*Recent, error) {
	if err := r.Flush(ctx); err != nil {
		return nil, err
	}
	return r.store.Recent(ctx, limit)
}

func (r *Recorder) apply(ctx context.Context, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		r.logger.Warn("workspace: write failed", "error", err)
		return
	}
	r.written.Add(1)
}
