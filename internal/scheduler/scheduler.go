// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package scheduler runs all region mutations on a single logical worker.
//
// One goroutine advances ticks. Each tick first drains work submitted from other
// goroutines, then runs the recurring tasks that are due, in scheduling order.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
)

// Status tells the scheduler whether a recurring task wants to run again.
type Status int

const (
	// Continue keeps the task scheduled.
	Continue Status = iota
	// Done removes the task.
	Done
)

// Task is a unit of recurring work.
type Task interface {
	Run(ctx context.Context) Status
}

// TaskFunc adapts a function to Task.
type TaskFunc func(ctx context.Context) Status

// Run calls f.
func (f TaskFunc) Run(ctx context.Context) Status { return f(ctx) }

// ErrClosed is returned when submitting to a stopped scheduler.
var ErrClosed = errors.New("scheduler closed")

// DefaultQueueSize bounds the submit queue.
const DefaultQueueSize = 1024

type entry struct {
	id        uint64
	name      string
	interval  uint64
	next      uint64
	task      Task
	cancelled bool
}

// Scheduler is a tick-driven single-worker executor.
type Scheduler struct {
	tick  time.Duration
	queue chan func(context.Context)

	mu      sync.Mutex
	entries []*entry
	nextID  uint64
	current uint64
	closed  bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithQueueSize sets the capacity of the submit queue.
func WithQueueSize(n int) Option {
	return func(s *Scheduler) { s.queue = make(chan func(context.Context), n) }
}

// New creates a scheduler that ticks every tick.
func New(tick time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		tick:  tick,
		queue: make(chan func(context.Context), DefaultQueueSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TickDuration returns the wall-clock length of a tick.
func (s *Scheduler) TickDuration() time.Duration {
	return s.tick
}

// Ticks returns the number of ticks run so far.
func (s *Scheduler) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// ScheduleRecurring runs task every interval ticks, starting interval ticks from
// now. An interval of 0 is treated as 1. The returned function cancels the task.
func (s *Scheduler) ScheduleRecurring(name string, interval uint64, task Task) (cancel func()) {
	if interval == 0 {
		interval = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e := &entry{
		id:       s.nextID,
		name:     name,
		interval: interval,
		next:     s.current + interval,
		task:     task,
	}
	s.entries = append(s.entries, e)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		e.cancelled = true
	}
}

// Pending returns the number of scheduled recurring tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if !e.cancelled {
			n++
		}
	}
	return n
}

// Submit queues fn to run at the start of the next tick on the worker.
// It never blocks; a full queue is an error.
func (s *Scheduler) Submit(fn func(ctx context.Context)) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	select {
	case s.queue <- fn:
		return nil
	default:
		return oops.Code("SCHEDULER_QUEUE_FULL").With("capacity", cap(s.queue)).Errorf("submit queue is full")
	}
}

// Call submits fn and waits for it to finish on the worker.
func (s *Scheduler) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	result := make(chan error, 1)
	if err := s.Submit(func(ctx context.Context) { result <- fn(ctx) }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return oops.With("operation", "wait for scheduled call").Wrap(ctx.Err())
	}
}

// Run ticks until ctx is cancelled. It must be called from exactly one goroutine.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	defer func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	}()

	slog.InfoContext(ctx, "scheduler started", "tick", s.tick.String())
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "scheduler stopped", "ticks", s.Ticks())
			return nil
		case <-ticker.C:
			s.Step(ctx)
		}
	}
}

// Step runs a single tick synchronously.
func (s *Scheduler) Step(ctx context.Context) {
	s.drain(ctx)

	s.mu.Lock()
	s.current++
	now := s.current
	due := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.cancelled && e.next <= now {
			due = append(due, e)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		s.mu.Lock()
		skip := e.cancelled
		s.mu.Unlock()
		if skip {
			continue
		}
		status := s.runTask(ctx, e)

		s.mu.Lock()
		if status == Done {
			e.cancelled = true
		} else {
			e.next = now + e.interval
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	live := s.entries[:0]
	for _, e := range s.entries {
		if !e.cancelled {
			live = append(live, e)
		}
	}
	clear(s.entries[len(live):])
	s.entries = live
	s.mu.Unlock()
}

func (s *Scheduler) drain(ctx context.Context) {
	for range len(s.queue) {
		select {
		case fn := <-s.queue:
			s.runSubmitted(ctx, fn)
		default:
			return
		}
	}
}

func (s *Scheduler) runSubmitted(ctx context.Context, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "submitted work panicked", "panic", r)
		}
	}()
	fn(ctx)
}

// runTask runs one task. A panicking task is removed.
func (s *Scheduler) runTask(ctx context.Context, e *entry) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "scheduled task panicked, removing it", "task", e.name, "panic", r)
			status = Done
		}
	}()
	return e.task.Run(ctx)
}
