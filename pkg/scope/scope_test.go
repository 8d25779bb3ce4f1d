package scope

import (
	"testing"

	"github.com/vango-dev/scopebind/pkg/keypath"
)

func TestSetNotifiesKeyListenersOnce(t *testing.T) {
	s := New(Plain{"count": 0})

	var calls []any
	var olds []any
	s.Observe("count", func(v, old any) {
		calls = append(calls, v)
		olds = append(olds, old)
	})
	s.Observe("other", func(v, old any) {
		t.Error("listener for another key should not run")
	})

	s.Set("count", 5)

	if len(calls) != 1 || calls[0] != 5 || olds[0] != 0 {
		t.Errorf("expected one call with (5, 0), got %v / %v", calls, olds)
	}
	if s.Get("count") != 5 {
		t.Errorf("expected stored value 5, got %v", s.Get("count"))
	}
}

func TestSetSameValueIsNoop(t *testing.T) {
	items := []any{1, 2}
	s := New(Plain{"count": 3, "name": "ada", "items": items})

	calls := 0
	s.Observe("count", func(v, old any) { calls++ })
	s.Observe("name", func(v, old any) { calls++ })
	s.Observe("items", func(v, old any) { calls++ })
	s.ObserveAll(func(key string, v, old any) { calls++ })

	s.Set("count", 3)
	s.Set("name", "ada")
	s.Set("items", items)

	if calls != 0 {
		t.Errorf("expected no notifications, got %d", calls)
	}
}

func TestSetFreshSliceNotifies(t *testing.T) {
	s := New(Plain{"items": []any{1, 2}})

	calls := 0
	s.Observe("items", func(v, old any) { calls++ })

	s.Set("items", []any{1, 2})

	if calls != 1 {
		t.Errorf("a fresh slice with equal contents should notify, got %d calls", calls)
	}
}

func TestWildcardFiresAfterKeyListeners(t *testing.T) {
	s := New(Plain{"a": 1})

	var order []string
	var gotKey string
	var gotVal, gotOld any
	s.ObserveAll(func(key string, v, old any) {
		order = append(order, "wild")
		gotKey, gotVal, gotOld = key, v, old
	})
	s.Observe("a", func(v, old any) {
		order = append(order, "key")
	})

	s.Set("a", 2)

	if len(order) != 2 || order[0] != "key" || order[1] != "wild" {
		t.Errorf("expected [key wild], got %v", order)
	}
	if gotKey != "a" || gotVal != 2 || gotOld != 1 {
		t.Errorf("wildcard got (%s, %v, %v)", gotKey, gotVal, gotOld)
	}
}

func TestWildcardOncePerSet(t *testing.T) {
	s := New(Plain{})

	calls := 0
	s.ObserveAll(func(string, any, any) { calls++ })

	s.Set("a", 1)
	s.Set("b", 2)
	s.Set("a", 3)

	if calls != 3 {
		t.Errorf("expected 3 wildcard calls, got %d", calls)
	}
}

func TestUnsubscribe(t *testing.T) {
	s := New(Plain{"a": 0})

	calls := 0
	unsub := s.Observe("a", func(v, old any) { calls++ })
	unsubAll := s.ObserveAll(func(string, any, any) { calls++ })

	unsub()
	unsub()
	unsubAll()

	s.Set("a", 1)

	if calls != 0 {
		t.Errorf("unsubscribed listeners ran %d times", calls)
	}
	if n := s.ListenerCount(); n != 0 {
		t.Errorf("expected 0 listeners, got %d", n)
	}
}

func TestUnsubscribeDuringNotify(t *testing.T) {
	s := New(Plain{"a": 0})

	var second int
	var unsubSecond Unsubscribe
	s.Observe("a", func(v, old any) { unsubSecond() })
	unsubSecond = s.Observe("a", func(v, old any) { second++ })

	s.Set("a", 1)

	if second != 0 {
		t.Errorf("listener removed mid-notify should not run, ran %d times", second)
	}
}

func TestNestedUpgradeAtCreation(t *testing.T) {
	s := New(Plain{"user": Plain{"name": "ada", "address": Plain{"city": "x"}}})

	user, ok := s.Get("user").(*Scope)
	if !ok {
		t.Fatalf("nested record should be a *Scope, got %T", s.Get("user"))
	}
	if _, ok := user.Get("address").(*Scope); !ok {
		t.Errorf("deeply nested record should be a *Scope, got %T", user.Get("address"))
	}
}

func TestAssignedRecordStaysPlain(t *testing.T) {
	s := New(Plain{})
	s.Set("user", Plain{"name": "ada"})

	if _, ok := s.Get("user").(map[string]any); !ok {
		t.Errorf("later assignment should stay plain, got %T", s.Get("user"))
	}

	s.Set("user", Upgrade(Plain{"name": "bob"}))
	if _, ok := s.Get("user").(*Scope); !ok {
		t.Errorf("Upgrade should produce a *Scope, got %T", s.Get("user"))
	}
}

func TestNewWrapsInPlace(t *testing.T) {
	raw := Plain{"a": 1}
	s := New(raw)

	s.Set("a", 2)

	if raw["a"] != 2 {
		t.Errorf("Set should write through to the wrapped record, got %v", raw["a"])
	}
}

func TestSelfReferenceUpgrade(t *testing.T) {
	raw := Plain{}
	raw["self"] = raw

	s := New(raw)
	if s.Get("self") != s {
		t.Error("self reference should upgrade to the same scope")
	}
}

func TestSnapshot(t *testing.T) {
	s := New(Plain{"a": 1, "nested": Plain{"b": 2}})

	snap := s.Snapshot()
	nested, ok := snap["nested"].(Plain)
	if !ok || nested["b"] != 2 {
		t.Errorf("unexpected snapshot %v", snap)
	}
}

func TestSame(t *testing.T) {
	m := map[string]any{}
	sl := []any{1}
	x := 1
	fn := func() {}

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nil", nil, nil, true},
		{"nil vs value", nil, 0, false},
		{"ints", 1, 1, true},
		{"int vs float", 1, 1.0, false},
		{"strings", "a", "a", true},
		{"same map", m, m, true},
		{"distinct maps", m, map[string]any{}, false},
		{"same slice", sl, sl, true},
		{"resliced", sl, sl[:0], false},
		{"pointers", &x, &x, true},
		{"funcs", fn, fn, false},
		{"uncomparable struct", struct{ v []int }{}, struct{ v []int }{}, false},
	}

	for _, tt := range tests {
		if got := Same(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: Same = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestResolveThroughNilScope(t *testing.T) {
	var user *Scope
	s := New(Plain{"user": user})

	if got := keypath.Parse("user.name").Resolve(s); got != nil {
		t.Errorf("user.name = %v, want nil", got)
	}
}
