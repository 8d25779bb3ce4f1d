package loop

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestManualOrdering(t *testing.T) {
	m := NewManual()
	var order []string

	m.RequestIdle(func() { order = append(order, "idle") })
	m.RequestFrame(func() {
		order = append(order, "frame")
		m.Post(func() { order = append(order, "posted-in-frame") })
	})
	m.Post(func() { order = append(order, "posted") })

	m.Drain()

	want := []string{"posted", "frame", "posted-in-frame", "idle"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
	if m.Frames() != 1 {
		t.Errorf("expected 1 frame, got %d", m.Frames())
	}
}

func TestManualFrameDefersNestedRequests(t *testing.T) {
	m := NewManual()
	runs := 0

	m.RequestFrame(func() {
		runs++
		m.RequestFrame(func() { runs++ })
	})

	m.Frame()
	if runs != 1 {
		t.Fatalf("nested frame request should wait, runs = %d", runs)
	}
	m.Frame()
	if runs != 2 {
		t.Errorf("expected second frame to run nested request, runs = %d", runs)
	}
}

func TestManualIdleOneAtATime(t *testing.T) {
	m := NewManual()
	runs := 0
	m.RequestIdle(func() { runs++ })
	m.RequestIdle(func() { runs++ })

	if !m.Idle() || runs != 1 {
		t.Fatalf("expected one idle callback, runs = %d", runs)
	}
	m.Idle()
	if m.Idle() {
		t.Error("no idle callback should remain")
	}
}

func TestLoopSerializesPostedWork(t *testing.T) {
	l := New(Config{FrameInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 10; i++ {
		i := i
		l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}

	if err := l.Do(ctx, func() {}); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("posted work out of order: %v", got)
		}
	}
	if len(got) != 10 {
		t.Errorf("expected 10 callbacks, got %d", len(got))
	}
}

func TestLoopRunsFramesAndIdle(t *testing.T) {
	l := New(Config{FrameInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	frame := make(chan struct{})
	idle := make(chan struct{})
	l.Post(func() {
		l.RequestFrame(func() { close(frame) })
		l.RequestIdle(func() { close(idle) })
	})

	for _, ch := range []chan struct{}{frame, idle} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("callback did not run")
		}
	}
}

func TestLoopFallbackDelay(t *testing.T) {
	l := New(Config{FallbackDelay: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	ran := make(chan struct{})
	l.RequestFrame(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("frame request without a frame clock should fall back to a delay")
	}
}

func TestLoopRecoversPanics(t *testing.T) {
	l := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	l.Post(func() { panic("boom") })

	if err := l.Do(ctx, func() {}); err != nil {
		t.Fatalf("loop should survive a panicking callback: %v", err)
	}
}
