// Package actions provides parameterized click actions usable from markup
// without defining functions on the scope:
//
//	<button data-action="inc('count')">+</button>
//	<button data-action="toggle('open')">menu</button>
//	<th data-action="sort('people:name')">Name</th>
//	<button data-action="next('people')">next</button>
//
// Paths are resolved against the scope owning the clicked element.
package actions

import (
	"strings"

	"github.com/vango-dev/scopebind/pkg/bind"
	"github.com/vango-dev/scopebind/pkg/keypath"
	"github.com/vango-dev/scopebind/pkg/scope"
)

// Register installs every built-in action on e.
func Register(e *bind.Engine) {
	e.RegisterAction("inc", Inc)
	e.RegisterAction("dec", Dec)
	e.RegisterAction("toggle", Toggle)
	e.RegisterAction("clear", Clear)
	e.RegisterAction("sort", Sort)
	e.RegisterAction("next", Next)
	e.RegisterAction("prev", Prev)
}

// Inc adds one to the number at path.
func Inc(path string) bind.ActionHandler {
	return add(path, 1)
}

// Dec subtracts one from the number at path.
func Dec(path string) bind.ActionHandler {
	return add(path, -1)
}

func add(path string, delta int) bind.ActionHandler {
	return field(path, func(ev bind.ActionEvent, s *scope.Scope, key string) {
		switch n := s.Get(key).(type) {
		case nil:
			s.Set(key, delta)
		case int:
			s.Set(key, n+delta)
		case int64:
			s.Set(key, n+int64(delta))
		case float64:
			s.Set(key, n+float64(delta))
		default:
			ev.Engine.Logger().Warn("action target is not a number", "path", path)
		}
	})
}

// Toggle flips the boolean at path.
func Toggle(path string) bind.ActionHandler {
	return field(path, func(ev bind.ActionEvent, s *scope.Scope, key string) {
		switch v := s.Get(key).(type) {
		case nil:
			s.Set(key, true)
		case bool:
			s.Set(key, !v)
		default:
			ev.Engine.Logger().Warn("action target is not a bool", "path", path)
		}
	})
}

// Clear resets the value at path to the zero value of its type. Lists are
// emptied and their query is reset.
func Clear(path string) bind.ActionHandler {
	return func(ev bind.ActionEvent) {
		if l, ok := keypath.Parse(path).Resolve(ev.Scope).(*scope.ListState); ok {
			l.SetQuery("")
			l.SetItems(nil)
			return
		}
		field(path, func(_ bind.ActionEvent, s *scope.Scope, key string) {
			switch s.Get(key).(type) {
			case string:
				s.Set(key, "")
			case int:
				s.Set(key, 0)
			case float64:
				s.Set(key, 0.0)
			case bool:
				s.Set(key, false)
			default:
				s.Set(key, nil)
			}
		})(ev)
	}
}

// Sort takes "list:key" and sorts the list by key, flipping the direction
// on repeated use.
func Sort(arg string) bind.ActionHandler {
	path, key, ok := strings.Cut(arg, ":")
	if !ok || strings.TrimSpace(key) == "" {
		return malformed("sort", arg, "expected list:key")
	}
	return func(ev bind.ActionEvent) {
		if l, ok := list(ev, path); ok {
			l.SortBy(strings.TrimSpace(key))
		}
	}
}

// Next moves the list at path to its next page.
func Next(path string) bind.ActionHandler {
	return func(ev bind.ActionEvent) {
		if l, ok := list(ev, path); ok {
			l.NextPage()
		}
	}
}

// Prev moves the list at path to its previous page.
func Prev(path string) bind.ActionHandler {
	return func(ev bind.ActionEvent) {
		if l, ok := list(ev, path); ok {
			l.PrevPage()
		}
	}
}

// field resolves path to its owning scope and leaf key before calling fn.
func field(path string, fn func(ev bind.ActionEvent, s *scope.Scope, key string)) bind.ActionHandler {
	if err := keypath.Valid(path); err != nil {
		return malformed("action", path, err.Error())
	}
	p := keypath.Parse(path)
	return func(ev bind.ActionEvent) {
		owner, leaf, ok := p.Owner(ev.Scope)
		if !ok {
			ev.Engine.Logger().Warn("action path does not resolve", "path", path)
			return
		}
		s, ok := owner.(*scope.Scope)
		if !ok {
			if l, isList := owner.(*scope.ListState); isList {
				s = l.Scope
			} else {
				ev.Engine.Logger().Warn("action target is not reactive", "path", path)
				return
			}
		}
		fn(ev, s, leaf)
	}
}

func list(ev bind.ActionEvent, path string) (*scope.ListState, bool) {
	l, ok := keypath.Parse(strings.TrimSpace(path)).Resolve(ev.Scope).(*scope.ListState)
	if !ok {
		ev.Engine.Logger().Warn("action target is not a list", "path", path)
	}
	return l, ok
}

// malformed returns a handler that only reports the bad argument.
func malformed(action, arg, reason string) bind.ActionHandler {
	err := bind.Malformed(action, arg, reason)
	return func(ev bind.ActionEvent) {
		ev.Engine.Logger().Warn("malformed action argument", "error", err)
	}
}
