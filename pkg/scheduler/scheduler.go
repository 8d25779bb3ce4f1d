// Package scheduler coalesces document updates into one flush per frame.
//
// Bindings never write the document directly when data changes. They
// schedule a Task, and the scheduler runs every pending task once on the next
// animation frame:
//
//	task := scheduler.NewTask("text:count", func() { ... })
//	s.Schedule(task)
//	s.Schedule(task) // already pending, collapses into one run
//
// Task identity is the *Task pointer. Scheduling the same task several times
// before the flush runs it once, at its first position.
package scheduler

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/vango-dev/scopebind/pkg/loop"
)

// Task is a named nullary callback.
type Task struct {
	name string
	fn   func()
}

// NewTask creates a task. The name appears in logs when the task panics.
func NewTask(name string, fn func()) *Task {
	return &Task{name: name, fn: fn}
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// Observer receives flush statistics. It is satisfied by metrics.Collector.
type Observer interface {
	ObserveFlush(tasks int, d time.Duration)
	TaskPanicked(name string)
}

// Scheduler batches tasks into frame flushes. It is not safe for concurrent
// use; call it from the goroutine that owns the host.
type Scheduler struct {
	host     loop.Host
	logger   *slog.Logger
	observer Observer

	pending []*Task
	queued  map[*Task]bool
	armed   bool

	onFlush []func(ran int)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger for recovered task panics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithObserver reports flush statistics to o.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// New creates a scheduler that arms its flushes on host.
func New(host loop.Host, opts ...Option) *Scheduler {
	s := &Scheduler{
		host:   host,
		logger: slog.Default(),
		queued: make(map[*Task]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule queues t for the next flush. The first task queued while the
// scheduler is idle requests a frame.
func (s *Scheduler) Schedule(t *Task) {
	if t == nil || s.queued[t] {
		return
	}
	s.queued[t] = true
	s.pending = append(s.pending, t)

	if !s.armed {
		s.armed = true
		s.host.RequestFrame(s.Flush)
	}
}

// ScheduleFunc queues fn as an anonymous task. Each call is a distinct task.
func (s *Scheduler) ScheduleFunc(name string, fn func()) {
	s.Schedule(NewTask(name, fn))
}

// Pending returns the number of queued tasks.
func (s *Scheduler) Pending() int {
	return len(s.pending)
}

// Armed reports whether a flush has been requested and not yet run.
func (s *Scheduler) Armed() bool {
	return s.armed
}

// OnFlush registers fn to run after every flush that ran at least one task.
func (s *Scheduler) OnFlush(fn func(ran int)) {
	s.onFlush = append(s.onFlush, fn)
}

// Flush runs every pending task once, in the order it was first scheduled.
// A panicking task is logged and the remaining tasks still run. Tasks
// scheduled while flushing go into the next flush.
//
// Flush is normally invoked by the host; calling it directly runs the
// pending tasks immediately.
func (s *Scheduler) Flush() {
	batch := s.pending
	s.pending = nil
	s.queued = make(map[*Task]bool)
	s.armed = false

	if len(batch) == 0 {
		return
	}

	start := time.Now()
	for _, t := range batch {
		s.run(t)
	}

	if s.observer != nil {
		s.observer.ObserveFlush(len(batch), time.Since(start))
	}
	for _, fn := range s.onFlush {
		fn(len(batch))
	}
}

func (s *Scheduler) run(t *Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panic",
				"task", t.name,
				"error", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			if s.observer != nil {
				s.observer.TaskPanicked(t.name)
			}
		}
	}()
	t.fn()
}
