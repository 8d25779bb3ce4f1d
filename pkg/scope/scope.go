// Package scope provides the observable record that bindings read from and
// write to.
//
// A Scope wraps a plain record and notifies listeners when a field is
// replaced through Set:
//
//	s := scope.New(scope.Plain{"count": 0})
//	unsub := s.Observe("count", func(v, old any) { ... })
//	s.Set("count", 1) // listener runs with (1, 0)
//	unsub()
//
// Nested plain records are upgraded to Scopes once, when New runs. A plain
// record assigned later with Set stays plain; call Upgrade on it first if it
// should be observable.
//
// Scopes are not safe for concurrent use. They belong to the event loop that
// owns the bound document.
package scope

import (
	"reflect"
	"sort"
)

// Wildcard is the pseudo-key that matches every field change.
const Wildcard = "*"

// Plain is a non-reactive record.
type Plain = map[string]any

// Listener receives the new and previous value of one field.
type Listener func(value, old any)

// WildcardListener receives every field change on a scope.
type WildcardListener func(key string, value, old any)

// Unsubscribe removes a listener. Calling it more than once is a no-op.
type Unsubscribe func()

type keyEntry struct {
	fn      Listener
	removed bool
}

type wildEntry struct {
	fn      WildcardListener
	removed bool
}

// Scope is an observable record.
type Scope struct {
	fields    Plain
	listeners map[string][]*keyEntry
	wildcard  []*wildEntry
}

// New upgrades a plain record into a Scope. The record is wrapped in place:
// Set writes through to it, and nested plain records inside it are replaced
// by their upgraded Scopes.
func New(fields Plain) *Scope {
	return upgrade(fields, map[uintptr]*Scope{})
}

func upgrade(fields Plain, seen map[uintptr]*Scope) *Scope {
	if fields == nil {
		fields = Plain{}
	}
	ptr := reflect.ValueOf(fields).Pointer()
	if s, ok := seen[ptr]; ok {
		return s
	}

	s := &Scope{
		fields:    fields,
		listeners: make(map[string][]*keyEntry),
	}
	seen[ptr] = s

	for k, v := range fields {
		if nested, ok := v.(map[string]any); ok {
			fields[k] = upgrade(nested, seen)
		}
	}
	return s
}

// Upgrade returns v as a Scope if it is a plain record, and v unchanged
// otherwise. It is the explicit upgrade step for records assigned after
// creation.
func Upgrade(v any) any {
	if m, ok := v.(map[string]any); ok {
		return New(m)
	}
	return v
}

// From returns v as a Scope, upgrading plain records.
func From(v any) (*Scope, bool) {
	switch rec := v.(type) {
	case *Scope:
		return rec, rec != nil
	case *ListState:
		if rec == nil {
			return nil, false
		}
		return rec.Scope, true
	case map[string]any:
		return New(rec), true
	}
	return nil, false
}

// Get returns the value of key, or nil.
func (s *Scope) Get(key string) any {
	return s.fields[key]
}

// Lookup returns the value of key and whether it is present.
func (s *Scope) Lookup(key string) (any, bool) {
	v, ok := s.fields[key]
	return v, ok
}

// Has reports whether key is present.
func (s *Scope) Has(key string) bool {
	_, ok := s.fields[key]
	return ok
}

// Len returns the number of fields.
func (s *Scope) Len() int {
	return len(s.fields)
}

// Keys returns the field names in sorted order.
func (s *Scope) Keys() []string {
	keys := make([]string, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow plain copy of the record. Nested scopes are
// snapshotted recursively.
func (s *Scope) Snapshot() Plain {
	out := make(Plain, len(s.fields))
	for k, v := range s.fields {
		switch nested := v.(type) {
		case *Scope:
			out[k] = nested.Snapshot()
		case *ListState:
			out[k] = nested.Snapshot()
		default:
			out[k] = v
		}
	}
	return out
}

// Set stores value under key and notifies listeners. It does nothing when
// value is identical to the current value (see Same). Key listeners run
// before wildcard listeners.
func (s *Scope) Set(key string, value any) {
	old := s.fields[key]
	if Same(old, value) {
		return
	}
	s.fields[key] = value

	// Copy before notify so listeners may unsubscribe during notification.
	entries := append([]*keyEntry(nil), s.listeners[key]...)
	for _, e := range entries {
		if !e.removed {
			e.fn(value, old)
		}
	}

	wild := append([]*wildEntry(nil), s.wildcard...)
	for _, e := range wild {
		if !e.removed {
			e.fn(key, value, old)
		}
	}
}

// Update replaces the value of key with fn(current).
func (s *Scope) Update(key string, fn func(old any) any) {
	s.Set(key, fn(s.fields[key]))
}

// Delete removes key without notifying listeners.
func (s *Scope) Delete(key string) {
	delete(s.fields, key)
}

// Observe registers fn for changes to key. Passing Wildcard is not
// supported here; use ObserveAll.
func (s *Scope) Observe(key string, fn Listener) Unsubscribe {
	e := &keyEntry{fn: fn}
	s.listeners[key] = append(s.listeners[key], e)

	return func() {
		if e.removed {
			return
		}
		e.removed = true
		list := s.listeners[key]
		for i, cur := range list {
			if cur == e {
				s.listeners[key] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(s.listeners[key]) == 0 {
			delete(s.listeners, key)
		}
	}
}

// ObserveAll registers fn for every change on the scope.
func (s *Scope) ObserveAll(fn WildcardListener) Unsubscribe {
	e := &wildEntry{fn: fn}
	s.wildcard = append(s.wildcard, e)

	return func() {
		if e.removed {
			return
		}
		e.removed = true
		for i, cur := range s.wildcard {
			if cur == e {
				s.wildcard = append(s.wildcard[:i:i], s.wildcard[i+1:]...)
				return
			}
		}
	}
}

// ListenerCount returns the number of key and wildcard listeners.
func (s *Scope) ListenerCount() int {
	n := len(s.wildcard)
	for _, list := range s.listeners {
		n += len(list)
	}
	return n
}

// Same reports whether a and b are the same value. Comparable values use ==.
// Maps, slices, pointers and channels compare by reference. Functions are
// never the same unless both are nil.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Func:
		return va.IsNil() && vb.IsNil()
	}

	if va.Comparable() && vb.Comparable() {
		return a == b
	}
	return false
}
