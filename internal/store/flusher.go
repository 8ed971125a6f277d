// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/plotshop/internal/region"
	"github.com/holomush/plotshop/internal/scheduler"
	"github.com/holomush/plotshop/pkg/errutil"
)

// Source hands out pending changes. *region.Registry satisfies it.
type Source interface {
	DrainDirty() region.Changes
	Requeue(c region.Changes)
}

// Writer persists a batch. *RegionRepository satisfies it.
type Writer interface {
	Apply(ctx context.Context, c region.Changes) error
}

// FlusherConfig tunes the background writer.
type FlusherConfig struct {
	// Retries is how many times a failed batch is retried before it is requeued.
	Retries uint64
	// Backoff is the first retry delay; later delays double.
	Backoff time.Duration
	// QueueSize bounds the batches waiting for the writer.
	QueueSize int
}

// DefaultFlusherConfig returns the defaults used by serve.
func DefaultFlusherConfig() FlusherConfig {
	return FlusherConfig{Retries: 3, Backoff: 100 * time.Millisecond, QueueSize: 16}
}

// Flusher moves dirty regions from the scheduler tick to a writer goroutine,
// so ticks never wait on the database.
type Flusher struct {
	source Source
	writer Writer
	cfg    FlusherConfig

	mu      sync.Mutex
	closed  bool
	batches chan region.Changes

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewFlusher creates a Flusher. Call Start before scheduling Task.
func NewFlusher(source Source, writer Writer, cfg FlusherConfig) *Flusher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	return &Flusher{
		source:  source,
		writer:  writer,
		cfg:     cfg,
		batches: make(chan region.Changes, cfg.QueueSize),
		done:    make(chan struct{}),
	}
}

// Start launches the writer goroutine. Writes outlive cancellation of ctx
// until Close gives up waiting.
func (f *Flusher) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil || f.closed {
		return
	}
	f.ctx, f.cancel = context.WithCancel(context.WithoutCancel(ctx))
	go f.run()
}

func (f *Flusher) run() {
	defer close(f.done)
	for c := range f.batches {
		f.write(c)
	}
}

// Task returns the recurring scheduler task that drains the registry.
func (f *Flusher) Task() scheduler.Task {
	return scheduler.TaskFunc(func(context.Context) scheduler.Status {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.closed {
			return scheduler.Done
		}
		f.enqueueLocked()
		return scheduler.Continue
	})
}

// Flush drains pending changes now.
func (f *Flusher) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.enqueueLocked()
	}
}

func (f *Flusher) enqueueLocked() {
	if f.cancel == nil {
		return
	}
	c := f.source.DrainDirty()
	if c.Empty() {
		return
	}
	select {
	case f.batches <- c:
	default:
		// Writer is behind; the batch merges into the next drain.
		f.source.Requeue(c)
		RecordFlush(ResultDeferred)
	}
}

// Close drains what is left, waits for the writer to finish and stops it.
// If ctx ends first, in-flight writes are cancelled and their batches requeued.
// Closing a flusher that was never started leaves pending changes in the source.
func (f *Flusher) Close(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	if f.cancel == nil {
		f.mu.Unlock()
		return nil
	}
	if c := f.source.DrainDirty(); !c.Empty() {
		select {
		case f.batches <- c:
		case <-ctx.Done():
			f.source.Requeue(c)
		}
	}
	close(f.batches)
	f.mu.Unlock()

	select {
	case <-f.done:
		f.cancel()
		return nil
	case <-ctx.Done():
		f.cancel()
		<-f.done
		return oops.Code("FLUSH_ABORTED").With("operation", "close flusher").Wrap(ctx.Err())
	}
}

func (f *Flusher) write(c region.Changes) {
	backoff := retry.WithMaxRetries(f.cfg.Retries, retry.NewExponential(f.cfg.Backoff))
	attempts := 0
	err := retry.Do(f.ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := f.writer.Apply(ctx, c); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		f.source.Requeue(c)
		RecordFlush(ResultFailed)
		errutil.LogError(f.ctx, slog.Default(), "flush failed, changes requeued", err,
			"regions", len(c.Regions),
			"deleted", len(c.Deleted),
			"attempts", attempts)
		return
	}
	RecordFlush(ResultWritten)
	FlushedRegions.Add(float64(len(c.Regions) + len(c.Deleted)))
	slog.Debug("flushed changes",
		"regions", len(c.Regions),
		"deleted", len(c.Deleted),
		"groups", len(c.Groups),
		"deleted_groups", len(c.DeletedGroups))
}
