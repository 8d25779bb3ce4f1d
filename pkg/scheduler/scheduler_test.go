package scheduler

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/scopebind/pkg/loop"
)

type testObserver struct {
	flushes []int
	panics  []string
}

func (o *testObserver) ObserveFlush(tasks int, d time.Duration) { o.flushes = append(o.flushes, tasks) }
func (o *testObserver) TaskPanicked(name string)                 { o.panics = append(o.panics, name) }

func TestScheduleDeduplicates(t *testing.T) {
	host := loop.NewManual()
	s := New(host)

	runs := 0
	task := NewTask("count", func() { runs++ })
	for i := 0; i < 5; i++ {
		s.Schedule(task)
	}

	if runs != 0 {
		t.Fatal("task should not run before the flush")
	}
	if s.Pending() != 1 {
		t.Errorf("expected 1 pending task, got %d", s.Pending())
	}

	host.Frame()

	if runs != 1 {
		t.Errorf("expected 1 run, got %d", runs)
	}
}

func TestScheduleArmsOneFrame(t *testing.T) {
	host := loop.NewManual()
	s := New(host)

	s.ScheduleFunc("a", func() {})
	s.ScheduleFunc("b", func() {})
	s.ScheduleFunc("c", func() {})

	if host.Pending() != 1 {
		t.Errorf("expected one frame request, got %d", host.Pending())
	}
	if !s.Armed() {
		t.Error("scheduler should be armed")
	}

	host.Frame()

	if s.Armed() || s.Pending() != 0 {
		t.Error("flush should reset the armed flag and pending list")
	}

	s.ScheduleFunc("d", func() {})
	if host.Pending() != 1 {
		t.Error("a new burst should arm a fresh flush")
	}
}

func TestFlushInsertionOrder(t *testing.T) {
	host := loop.NewManual()
	s := New(host)

	var order []string
	a := NewTask("a", func() { order = append(order, "a") })
	b := NewTask("b", func() { order = append(order, "b") })
	c := NewTask("c", func() { order = append(order, "c") })

	s.Schedule(b)
	s.Schedule(a)
	s.Schedule(b)
	s.Schedule(c)

	host.Frame()

	if strings.Join(order, "") != "bac" {
		t.Errorf("expected bac, got %v", order)
	}
}

func TestFlushContainsPanics(t *testing.T) {
	host := loop.NewManual()
	var buf bytes.Buffer
	obs := &testObserver{}
	s := New(host,
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithObserver(obs))

	ran := 0
	s.ScheduleFunc("first", func() { ran++ })
	s.ScheduleFunc("broken", func() { panic("boom") })
	s.ScheduleFunc("last", func() { ran++ })

	host.Frame()

	if ran != 2 {
		t.Errorf("siblings of a panicking task should run, ran = %d", ran)
	}
	if !strings.Contains(buf.String(), "broken") {
		t.Errorf("panic should be logged with the task name, log: %s", buf.String())
	}
	if len(obs.panics) != 1 || obs.panics[0] != "broken" {
		t.Errorf("observer should see the panic, got %v", obs.panics)
	}
	if len(obs.flushes) != 1 || obs.flushes[0] != 3 {
		t.Errorf("observer should see one flush of 3 tasks, got %v", obs.flushes)
	}
}

func TestScheduleDuringFlushGoesToNextFlush(t *testing.T) {
	host := loop.NewManual()
	s := New(host)

	runs := 0
	var again *Task
	again = NewTask("again", func() {
		runs++
		if runs == 1 {
			s.Schedule(again)
		}
	})
	s.Schedule(again)

	host.Frame()
	if runs != 1 {
		t.Fatalf("expected 1 run in first flush, got %d", runs)
	}

	host.Frame()
	if runs != 2 {
		t.Errorf("rescheduled task should run in the next flush, got %d", runs)
	}
}

func TestOnFlush(t *testing.T) {
	host := loop.NewManual()
	s := New(host)

	var counts []int
	s.OnFlush(func(n int) { counts = append(counts, n) })

	s.Flush()
	s.ScheduleFunc("a", func() {})
	s.ScheduleFunc("b", func() {})
	host.Frame()

	if len(counts) != 1 || counts[0] != 2 {
		t.Errorf("expected one flush hook call with 2, got %v", counts)
	}
}
