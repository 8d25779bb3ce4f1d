// Package lifecycle tracks the cleanup callbacks owned by document nodes.
//
// Every subscription a binding creates is registered against the element it
// was created for. Cleanup runs and discards those callbacks for a node and
// its whole subtree. Explicit cleanup (unbind) is the primary release path;
// Attach adds automatic cleanup for subtrees removed from the document.
package lifecycle

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"golang.org/x/net/html"

	"github.com/vango-dev/scopebind/pkg/dom"
)

// Observer receives cleanup counts. *metrics.Collector implements it.
type Observer interface {
	CleanupsRun(n int)
}

// Tracker maps nodes to their cleanup sets.
type Tracker struct {
	sets     map[*html.Node][]func()
	logger   *slog.Logger
	observer Observer
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used for panicking cleanups.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithObserver sets the cleanup observer.
func WithObserver(o Observer) Option {
	return func(t *Tracker) { t.observer = o }
}

// New creates an empty Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		sets:   make(map[*html.Node][]func()),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register adds fn to the cleanup set of node.
func (t *Tracker) Register(node *html.Node, fn func()) {
	if node == nil || fn == nil {
		return
	}
	t.sets[node] = append(t.sets[node], fn)
}

// Has reports whether node has a cleanup set.
func (t *Tracker) Has(node *html.Node) bool {
	_, ok := t.sets[node]
	return ok
}

// Len returns the number of nodes with a cleanup set.
func (t *Tracker) Len() int {
	return len(t.sets)
}

// Cleanup runs and discards the cleanup set of node, then does the same for
// each of its descendants. Each callback runs at most once.
func (t *Tracker) Cleanup(node *html.Node) {
	if node == nil {
		return
	}
	ran := 0
	dom.Walk(node, func(n *html.Node) bool {
		ran += t.run(n)
		return true
	})
	if t.observer != nil {
		t.observer.CleanupsRun(ran)
	}
}

// CleanupChildren cleans every child subtree of node but not node itself.
func (t *Tracker) CleanupChildren(node *html.Node) {
	if node == nil {
		return
	}
	for c := node.FirstChild; c != nil; {
		next := c.NextSibling
		t.Cleanup(c)
		c = next
	}
}

func (t *Tracker) run(n *html.Node) int {
	fns, ok := t.sets[n]
	if !ok {
		return 0
	}
	delete(t.sets, n)
	for _, fn := range fns {
		t.call(n, fn)
	}
	return len(fns)
}

func (t *Tracker) call(n *html.Node, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("cleanup panic",
				"node", n.Data,
				"error", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

// Attach cleans subtrees removed from doc once the removal records are
// delivered. Subtrees that were moved and are connected again by then are
// left alone.
func (t *Tracker) Attach(doc *dom.Document) (detach func()) {
	return doc.Observe(func(removed []*html.Node) {
		for _, n := range removed {
			if !doc.IsConnected(n) {
				t.Cleanup(n)
			}
		}
	})
}
