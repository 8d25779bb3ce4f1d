// Package loop provides the single-threaded hosts that bound documents run
// on.
//
// Everything that touches a document, its scopes or its bindings runs on one
// goroutine. A Host offers three kinds of turns:
//
//   - Post: run as soon as the current turn ends.
//   - RequestFrame: run on the next animation frame.
//   - RequestIdle: run when no posted work is waiting.
//
// Loop is the real host, driven by a frame clock. Manual is a deterministic
// host for tests and one-shot rendering.
package loop

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Host schedules callbacks onto the goroutine that owns a document.
type Host interface {
	Post(fn func())
	RequestFrame(fn func())
	RequestIdle(fn func())
}

// Default timings.
const (
	DefaultFrameInterval = 16 * time.Millisecond
	DefaultFallbackDelay = 16 * time.Millisecond
)

// Config configures a Loop.
type Config struct {
	// FrameInterval is the animation frame period. Zero disables the frame
	// clock, and frame requests fall back to a fixed delay.
	FrameInterval time.Duration

	// FallbackDelay is the delay used for frame requests when the frame clock
	// is disabled.
	FallbackDelay time.Duration

	// Logger receives panics recovered from callbacks.
	Logger *slog.Logger
}

// Loop is a Host that serializes all callbacks on the goroutine running Run.
// Post, RequestFrame and RequestIdle are safe to call from any goroutine.
type Loop struct {
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	posted []func()
	frames []func()
	idle   []func()

	wake chan struct{}
	done chan struct{}
}

// New creates a Loop. Call Run to start processing.
func New(config Config) *Loop {
	if config.FallbackDelay <= 0 {
		config.FallbackDelay = DefaultFallbackDelay
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		config: config,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Post queues fn for the next turn.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	l.signal()
}

// RequestFrame queues fn for the next frame.
func (l *Loop) RequestFrame(fn func()) {
	if l.config.FrameInterval <= 0 {
		time.AfterFunc(l.config.FallbackDelay, func() { l.Post(fn) })
		return
	}
	l.mu.Lock()
	l.frames = append(l.frames, fn)
	l.mu.Unlock()
}

// RequestIdle queues fn for the next idle turn.
func (l *Loop) RequestIdle(fn func()) {
	l.mu.Lock()
	l.idle = append(l.idle, fn)
	l.mu.Unlock()
	l.signal()
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from the loop goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return context.Canceled
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run processes callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	var tick <-chan time.Time
	if l.config.FrameInterval > 0 {
		ticker := time.NewTicker(l.config.FrameInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if ctx.Err() != nil {
			return
		}
		l.drainPosted()

		select {
		case <-tick:
			l.runFrame()
			continue
		default:
		}

		if l.runIdle() {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		case <-tick:
			l.runFrame()
		}
	}
}

func (l *Loop) drainPosted() {
	for {
		l.mu.Lock()
		batch := l.posted
		l.posted = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			l.execute(fn)
		}
	}
}

func (l *Loop) runFrame() {
	l.mu.Lock()
	batch := l.frames
	l.frames = nil
	l.mu.Unlock()
	for _, fn := range batch {
		l.execute(fn)
	}
}

// runIdle runs one idle callback if nothing else is waiting.
func (l *Loop) runIdle() bool {
	l.mu.Lock()
	if len(l.posted) > 0 || len(l.idle) == 0 {
		l.mu.Unlock()
		return false
	}
	fn := l.idle[0]
	l.idle = l.idle[1:]
	l.mu.Unlock()

	l.execute(fn)
	return true
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop callback panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
