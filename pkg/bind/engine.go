// Package bind connects observable scopes to a live document.
//
// An Engine owns the binder registry, the scope registry, the scheduler and
// the lifecycle tracker for one document. Bind walks a subtree, dispatches
// every token of every data-bind attribute to its binder, and installs one
// delegated click listener on the root:
//
//	doc, _ := dom.ParseString(page)
//	host := loop.NewManual()
//	engine := bind.New(doc, bind.WithHost(host))
//	binders.Register(engine)
//
//	s, err := engine.Bind("#app", scope.Plain{"count": 0})
//	s.Set("count", 5)
//	host.Drain() // the next frame writes "5"
//
// An Engine and everything it binds belong to the goroutine that runs its
// host.
package bind

import (
	"context"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"

	"github.com/vango-dev/scopebind/internal/config"
	"github.com/vango-dev/scopebind/pkg/dom"
	"github.com/vango-dev/scopebind/pkg/lifecycle"
	"github.com/vango-dev/scopebind/pkg/loop"
	"github.com/vango-dev/scopebind/pkg/metrics"
	"github.com/vango-dev/scopebind/pkg/scheduler"
	"github.com/vango-dev/scopebind/pkg/scope"
)

// TracerName is the default otel tracer name.
const TracerName = "github.com/vango-dev/scopebind/pkg/bind"

// Engine binds scopes to one document.
type Engine struct {
	doc      *dom.Document
	host     loop.Host
	config   *config.Config
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   trace.Tracer
	registry *Registry

	sched   *scheduler.Scheduler
	tracker *lifecycle.Tracker

	actions map[string]ActionFactory
	scopes  map[string]*scope.Scope
	roots   map[*html.Node]*rootEntry
	nextID  uint64

	// templates holds the row template of every list element bound so far,
	// so a rebind after Unbind renders from the original markup.
	templates map[*html.Node]*html.Node
	detach  func()
}

type rootEntry struct {
	scope  *scope.Scope
	remove func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithHost sets the event loop that runs scheduled flushes and idle chunks.
// The default is a loop.Manual that runs nothing until drained.
func WithHost(h loop.Host) Option {
	return func(e *Engine) { e.host = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithConfig sets attribute names and render thresholds.
func WithConfig(c *config.Config) Option {
	return func(e *Engine) { e.config = c }
}

// WithMetrics records engine, scheduler and tracker metrics.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer sets the tracer for Bind, Unbind and action spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithRegistry uses r instead of a fresh registry. Engines sharing a
// registry share their binders.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// New creates an Engine for doc. The view, list and table binders are
// always registered; leaf binders come from package binders.
func New(doc *dom.Document, opts ...Option) *Engine {
	e := &Engine{
		doc:     doc,
		actions: make(map[string]ActionFactory),
		scopes:  make(map[string]*scope.Scope),
		roots:   make(map[*html.Node]*rootEntry),

		templates: make(map[*html.Node]*html.Node),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.host == nil {
		e.host = loop.NewManual()
	}
	if e.config == nil {
		e.config = config.New()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(TracerName)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}

	schedOpts := []scheduler.Option{scheduler.WithLogger(e.logger)}
	trackOpts := []lifecycle.Option{lifecycle.WithLogger(e.logger)}
	if e.metrics != nil {
		schedOpts = append(schedOpts, scheduler.WithObserver(e.metrics))
		trackOpts = append(trackOpts, lifecycle.WithObserver(e.metrics))
	}
	e.sched = scheduler.New(e.host, schedOpts...)
	e.tracker = lifecycle.New(trackOpts...)

	doc.SetDelivery(func(deliver func()) { e.host.Post(deliver) })
	e.detach = e.tracker.Attach(doc)

	e.registry.Register("view", e.bindView, WithChildren())
	e.registry.Register("list", e.bindList, WithChildren())
	e.registry.Register("table", e.bindTable, WithChildren())
	return e
}

// Document returns the bound document.
func (e *Engine) Document() *dom.Document { return e.doc }

// Host returns the event loop.
func (e *Engine) Host() loop.Host { return e.host }

// Scheduler returns the update scheduler.
func (e *Engine) Scheduler() *scheduler.Scheduler { return e.sched }

// Tracker returns the lifecycle tracker.
func (e *Engine) Tracker() *lifecycle.Tracker { return e.tracker }

// Registry returns the binder registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config { return e.config }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Flush runs the pending scheduled tasks now.
func (e *Engine) Flush() { e.sched.Flush() }

// RegisterBinder adds a binder to the engine's registry.
func (e *Engine) RegisterBinder(name string, h Handler, opts ...RegisterOption) {
	e.registry.Register(name, h, opts...)
}

// ListState creates a list state with the configured default page size.
func (e *Engine) ListState(items []any) *scope.ListState {
	l := scope.NewListState(items)
	if n := e.config.Render.PageSize; n > 0 {
		l.SetPageSize(n)
	}
	return l
}

// Bind wires the subtree at target to data and returns the root scope.
//
// target is a CSS selector or an *html.Node element. data is a
// scope.Plain record, a *scope.Scope or a *scope.ListState; nil binds an
// empty scope. Binding a root that is already bound releases the previous
// binding first.
func (e *Engine) Bind(target any, data any) (*scope.Scope, error) {
	_, span := e.tracer.Start(context.Background(), "scopebind.Bind")
	defer span.End()

	el, err := e.resolve(target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var s *scope.Scope
	if data == nil {
		s = scope.New(nil)
	} else {
		var ok bool
		if s, ok = scope.From(data); !ok {
			err := invalidTarget("data is not a record")
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	if _, bound := e.roots[el]; bound {
		e.logger.Debug("rebinding root", "root", el.Data)
		e.release(el)
	}

	e.boundary(el, s)
	stack := &Stack{}
	stack.Push(Frame{Element: el, Scope: s})
	e.walk(el, true, stack)

	entry := &rootEntry{
		scope:  s,
		remove: e.doc.AddEventListener(el, "click", func(ev *dom.Event) { e.route(el, ev) }),
	}
	e.roots[el] = entry
	e.metrics.RootBound(1)
	e.tracker.Register(el, func() {
		entry.remove()
		if e.roots[el] == entry {
			delete(e.roots, el)
			e.metrics.RootBound(-1)
		}
	})

	span.SetAttributes(attribute.Int("scopebind.scopes", len(e.scopes)))
	span.SetStatus(codes.Ok, "")
	return s, nil
}

// Unbind releases every subscription under target, removes its click
// listener and scope registry entries, and strips the scope boundary markers
// so a later Bind starts from fresh boundaries.
//
// The data-bind attributes and the rendered content stay in place. Binding
// the same element again rewires the whole subtree from that markup; lists
// reuse the row template recorded when they were first bound.
func (e *Engine) Unbind(target any) error {
	_, span := e.tracer.Start(context.Background(), "scopebind.Unbind")
	defer span.End()

	el, err := e.resolve(target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	e.release(el)
	span.SetStatus(codes.Ok, "")
	return nil
}

func (e *Engine) release(el *html.Node) {
	e.tracker.Cleanup(el)
	attr := e.config.Attributes.Scope
	dom.Walk(el, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			e.doc.RemoveAttr(n, attr)
		}
		return true
	})
}

// Bound reports whether el is a bound root.
func (e *Engine) Bound(el *html.Node) bool {
	_, ok := e.roots[el]
	return ok
}

// Scopes returns the number of registered scope boundaries.
func (e *Engine) Scopes() int {
	return len(e.scopes)
}

// ScopeOf returns the scope of the nearest boundary enclosing n.
func (e *Engine) ScopeOf(n *html.Node) (*scope.Scope, bool) {
	attr := e.config.Attributes.Scope
	b := dom.Closest(n, func(el *html.Node) bool { return dom.HasAttr(el, attr) })
	if b == nil {
		return nil, false
	}
	id, _ := dom.Attr(b, attr)
	s, ok := e.scopes[id]
	return s, ok && s != nil
}

// Close detaches the engine from the document's mutation records.
func (e *Engine) Close() {
	if e.detach != nil {
		e.detach()
		e.detach = nil
	}
}

func (e *Engine) resolve(target any) (*html.Node, error) {
	switch t := target.(type) {
	case string:
		n, err := e.doc.Query(t)
		if err != nil {
			return nil, targetMissing(err.Error())
		}
		if n == nil {
			return nil, targetMissing(t)
		}
		return n, nil
	case *html.Node:
		if t == nil {
			return nil, targetMissing("nil element")
		}
		if t.Type != html.ElementNode {
			return nil, invalidTarget("node is not an element")
		}
		return t, nil
	case nil:
		return nil, targetMissing("nil target")
	}
	return nil, invalidTarget("unsupported target type")
}

// boundary marks el as a scope boundary for s and registers the scope. The
// registry entry is dropped when el is cleaned up.
func (e *Engine) boundary(el *html.Node, s *scope.Scope) string {
	e.nextID++
	id := "s" + strconv.FormatUint(e.nextID, 36)
	e.scopes[id] = s
	e.doc.SetAttr(el, e.config.Attributes.Scope, id)
	e.tracker.Register(el, func() { delete(e.scopes, id) })
	return id
}
