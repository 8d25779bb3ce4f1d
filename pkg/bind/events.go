package bind

import (
	"context"
	"fmt"
	"regexp"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html"

	sberrors "github.com/vango-dev/scopebind/internal/errors"
	"github.com/vango-dev/scopebind/pkg/dom"
	"github.com/vango-dev/scopebind/pkg/keypath"
	"github.com/vango-dev/scopebind/pkg/scope"
)

// ActionEvent is passed to action handlers.
type ActionEvent struct {
	// Element carries the action attribute.
	Element *html.Node

	// Scope is the scope owning Element.
	Scope *scope.Scope

	// Event is the click that triggered the action.
	Event *dom.Event

	// Engine is the engine that routed the click.
	Engine *Engine
}

// ActionHandler handles a delegated click.
type ActionHandler func(ActionEvent)

// ActionFactory builds a handler from the quoted argument of a call-form
// action such as select('admin'). A nil result means nothing to do.
type ActionFactory func(arg string) ActionHandler

// Action results, as reported to metrics.
const (
	ActionOK      = "ok"
	ActionIgnored = "ignored"
	ActionMissing = "missing"
	ActionPanic   = "panic"
)

var callForm = regexp.MustCompile(`^\s*([A-Za-z_$][A-Za-z0-9_$.-]*)\s*\(\s*'([^']*)'\s*\)\s*$`)

// RegisterAction adds a named action factory. Actions are looked up when
// the owning scope has no value at the action path.
func (e *Engine) RegisterAction(name string, f ActionFactory) {
	e.actions[name] = f
}

// route handles a click that reached a bound root.
func (e *Engine) route(root *html.Node, ev *dom.Event) {
	attrs := e.config.Attributes
	el := dom.Closest(ev.Target, func(n *html.Node) bool { return dom.HasAttr(n, attrs.Action) })
	if el == nil || !dom.Contains(root, el) {
		return
	}
	// A nested root handles its own actions.
	if owner := dom.Closest(el, func(n *html.Node) bool { return e.roots[n] != nil }); owner != root {
		return
	}

	s, ok := e.ScopeOf(el)
	if !ok {
		e.metrics.ActionDispatched(ActionIgnored)
		return
	}
	expr, _ := dom.Attr(el, attrs.Action)
	e.metrics.ActionDispatched(e.runAction(expr, ActionEvent{Element: el, Scope: s, Event: ev, Engine: e}))
}

// Dispatch runs an action expression against s as if el had been clicked.
// It returns the action result.
func (e *Engine) Dispatch(expr string, el *html.Node, s *scope.Scope) string {
	return e.runAction(expr, ActionEvent{Element: el, Scope: s, Engine: e})
}

func (e *Engine) runAction(expr string, ae ActionEvent) (result string) {
	_, span := e.tracer.Start(context.Background(), "scopebind.action")
	span.SetAttributes(attribute.String("scopebind.action", expr))
	defer func() {
		if r := recover(); r != nil {
			err := handlerRuntime(expr, fmt.Errorf("%v", r))
			e.logger.Error("action panic",
				"action", expr,
				"error", err,
				"stack", string(debug.Stack()))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			result = ActionPanic
		}
		span.SetAttributes(attribute.String("scopebind.result", result))
		span.End()
	}()

	if m := callForm.FindStringSubmatch(expr); m != nil {
		return e.callAction(m[1], m[2], ae)
	}
	return e.bareAction(expr, ae)
}

// bareAction invokes the function at path with the owning scope as context.
func (e *Engine) bareAction(path string, ae ActionEvent) string {
	if keypath.Valid(path) != nil {
		e.logger.Warn("malformed action", "action", path)
		return ActionIgnored
	}
	v, ok := keypath.Parse(path).Lookup(ae.Scope)
	if !ok || v == nil {
		f, ok := e.actions[path]
		if !ok {
			return e.missing(path)
		}
		h := f("")
		if h == nil {
			return ActionOK
		}
		v = h
	}

	switch fn := v.(type) {
	case func():
		fn()
	case func(*scope.Scope):
		fn(ae.Scope)
	case ActionHandler:
		fn(ae)
	case func(ActionEvent):
		fn(ae)
	default:
		e.logger.Warn("action is not callable", "action", path, "type", fmt.Sprintf("%T", v))
		return ActionIgnored
	}
	return ActionOK
}

// callAction invokes the factory at name with arg, then invokes the
// handler it returns.
func (e *Engine) callAction(name, arg string, ae ActionEvent) string {
	var handler ActionHandler
	v, ok := keypath.Parse(name).Lookup(ae.Scope)
	switch fn := v.(type) {
	case ActionFactory:
		handler = fn(arg)
	case func(string) ActionHandler:
		handler = fn(arg)
	case func(string):
		fn(arg)
		return ActionOK
	default:
		if ok && v != nil {
			e.logger.Warn("action is not a factory", "action", name, "type", fmt.Sprintf("%T", v))
			return ActionIgnored
		}
		f, found := e.actions[name]
		if !found {
			return e.missing(name)
		}
		handler = f(arg)
	}

	if handler != nil {
		handler(ae)
	}
	return ActionOK
}

func (e *Engine) missing(name string) string {
	e.logger.Warn("action not found",
		"action", name,
		"error", sberrors.New(sberrors.CodeActionMissing).WithDetail(name))
	return ActionMissing
}
