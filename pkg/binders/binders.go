// Package binders provides the leaf binding commands:
//
//	text:path        text content
//	value:path       value attribute, written back on input
//	show:path        hidden attribute, by truthiness
//	attr:name:path   attribute value, removed when nil or false
//	class:name:path  class toggled by truthiness
package binders

import (
	"fmt"
	"strings"

	"github.com/vango-dev/scopebind/pkg/bind"
	"github.com/vango-dev/scopebind/pkg/dom"
	"github.com/vango-dev/scopebind/pkg/keypath"
	"github.com/vango-dev/scopebind/pkg/scope"
)

// Register installs every leaf binder on e.
func Register(e *bind.Engine) {
	e.RegisterBinder("text", Text)
	e.RegisterBinder("value", Value)
	e.RegisterBinder("show", Show)
	e.RegisterBinder("attr", Attr)
	e.RegisterBinder("class", Class)
}

// Text sets the element's text to the formatted value.
func Text(b *bind.Binding) error {
	doc := b.Document()
	return b.Watch(b.Argument, func(v any) {
		doc.SetText(b.Element, Format(v))
	})
}

// Value keeps the value attribute in sync with the path and writes input
// back into the scope that owns the path.
func Value(b *bind.Binding) error {
	doc := b.Document()
	if err := b.Watch(b.Argument, func(v any) {
		doc.SetAttr(b.Element, "value", Format(v))
	}); err != nil {
		return err
	}

	path := keypath.Parse(b.Argument)
	b.OnCleanup(doc.AddEventListener(b.Element, "input", func(ev *dom.Event) {
		owner, leaf, ok := path.Owner(b.Scope)
		if !ok {
			return
		}
		s, ok := owner.(*scope.Scope)
		if !ok {
			b.Logger().Debug("input target is not reactive")
			return
		}
		s.Set(leaf, ev.Value)
	}))
	return nil
}

// Show sets the hidden attribute when the value is falsy.
func Show(b *bind.Binding) error {
	doc := b.Document()
	return b.Watch(b.Argument, func(v any) {
		if Truthy(v) {
			doc.RemoveAttr(b.Element, "hidden")
		} else {
			doc.SetAttr(b.Element, "hidden", "")
		}
	})
}

// Attr binds an attribute. true sets it empty; nil and false remove it.
func Attr(b *bind.Binding) error {
	name, path, err := split(b)
	if err != nil {
		return err
	}
	doc := b.Document()
	return b.Watch(path, func(v any) {
		switch val := v.(type) {
		case nil:
			doc.RemoveAttr(b.Element, name)
		case bool:
			if val {
				doc.SetAttr(b.Element, name, "")
			} else {
				doc.RemoveAttr(b.Element, name)
			}
		default:
			doc.SetAttr(b.Element, name, Format(v))
		}
	})
}

// Class toggles a class by truthiness.
func Class(b *bind.Binding) error {
	name, path, err := split(b)
	if err != nil {
		return err
	}
	doc := b.Document()
	return b.Watch(path, func(v any) {
		doc.ToggleClass(b.Element, name, Truthy(v))
	})
}

// split parses a name:path argument.
func split(b *bind.Binding) (name, path string, err error) {
	name, path, ok := strings.Cut(b.Argument, ":")
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	if !ok || name == "" || path == "" {
		return "", "", bind.Malformed(b.Command, b.Argument, "expected name:path")
	}
	return name, path, nil
}

// Format renders a value as text. nil renders empty.
func Format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *scope.Scope, *scope.ListState:
		return ""
	}
	return fmt.Sprint(v)
}

// Truthy reports whether v counts as true: not nil, false, zero, or empty.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case []any:
		return len(val) > 0
	case *scope.ListState:
		return val.Total() > 0
	}
	return true
}
