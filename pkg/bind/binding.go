package bind

import (
	"log/slog"

	"golang.org/x/net/html"

	"github.com/vango-dev/scopebind/pkg/dom"
	"github.com/vango-dev/scopebind/pkg/keypath"
	"github.com/vango-dev/scopebind/pkg/scheduler"
	"github.com/vango-dev/scopebind/pkg/scope"
)

// Binding is the context handed to a Handler for one token on one element.
type Binding struct {
	// Element is the element carrying the token.
	Element *html.Node

	// Scope is the innermost scope enclosing Element.
	Scope *scope.Scope

	// Command and Argument are the parsed token.
	Command  string
	Argument string

	// Stack is the chain of enclosing scopes, innermost last.
	Stack *Stack

	engine *Engine
}

func (b *Binding) token() string {
	return Token{Command: b.Command, Argument: b.Argument}.String()
}

// Engine returns the engine running the binding.
func (b *Binding) Engine() *Engine { return b.engine }

// Document returns the bound document.
func (b *Binding) Document() *dom.Document { return b.engine.doc }

// Logger returns the engine logger annotated with the token.
func (b *Binding) Logger() *slog.Logger {
	return b.engine.logger.With("command", b.Command, "argument", b.Argument)
}

// Meta returns the parsed metadata attribute of the element.
func (b *Binding) Meta() map[string]string {
	v, _ := dom.Attr(b.Element, b.engine.config.Attributes.Meta)
	return ParseMeta(v)
}

// Resolve reads a dotted path against the binding's scope.
func (b *Binding) Resolve(path string) any {
	return keypath.Parse(path).Resolve(b.Scope)
}

// NewTask creates a scheduler task named after the binding.
func (b *Binding) NewTask(fn func()) *scheduler.Task {
	return scheduler.NewTask(b.token(), fn)
}

// Schedule queues t for the next flush.
func (b *Binding) Schedule(t *scheduler.Task) {
	b.engine.sched.Schedule(t)
}

// OnCleanup registers fn to run when the element is unbound or removed.
func (b *Binding) OnCleanup(fn func()) {
	b.engine.tracker.Register(b.Element, fn)
}

// BindChildren binds the element's descendants against s, making the
// element the boundary of s. It returns false if s already encloses the
// element.
func (b *Binding) BindChildren(s *scope.Scope) bool {
	if b.Stack.Contains(s) {
		return false
	}
	b.engine.walk(b.Element, false, b.Stack.with(Frame{Element: b.Element, Scope: s}))
	return true
}

// Walk binds n and its descendants against s, with n pushed as a frame on
// top of the binding's stack. Binders use it for content they create.
func (b *Binding) Walk(n *html.Node, s *scope.Scope) {
	b.engine.walk(n, true, b.Stack.with(Frame{Element: n, Scope: s}))
}

// Watch applies apply to the current value of path, then again on the
// next flush after any scope along the path changes. Intermediate records
// that are reassigned to other scopes are followed. The subscription is
// released with the element.
//
// Watch returns an ErrMalformedArgument error, without calling apply, when
// path is not a valid key path.
func (b *Binding) Watch(path string, apply func(value any)) error {
	if err := keypath.Valid(path); err != nil {
		return Malformed(b.Command, b.Argument, err.Error())
	}
	w := &watcher{b: b, path: keypath.Parse(path), apply: apply}
	w.task = scheduler.NewTask(b.token(), w.run)

	apply(w.path.Resolve(b.Scope))
	w.subscribe()
	b.OnCleanup(w.close)
	return nil
}

type watcher struct {
	b     *Binding
	path  keypath.Path
	apply func(any)
	task  *scheduler.Task

	chain  []*scope.Scope
	unsubs []scope.Unsubscribe
	closed bool
}

func (w *watcher) run() {
	if w.closed {
		return
	}
	w.subscribe()
	w.apply(w.path.Resolve(w.b.Scope))
}

// subscribe observes each segment of the path on the scope that owns it,
// resubscribing only when the chain of scopes changed.
func (w *watcher) subscribe() {
	segs := w.path.Segments()
	chain := []*scope.Scope{w.b.Scope}
	for _, seg := range segs[:len(segs)-1] {
		next, ok := reactive(chain[len(chain)-1].Get(seg))
		if !ok {
			break
		}
		chain = append(chain, next)
	}
	if sameChain(chain, w.chain) {
		return
	}

	w.release()
	w.chain = chain
	for i, s := range chain {
		w.unsubs = append(w.unsubs, s.Observe(segs[i], func(_, _ any) {
			if !w.closed {
				w.b.engine.sched.Schedule(w.task)
			}
		}))
	}
}

func (w *watcher) release() {
	for _, u := range w.unsubs {
		u()
	}
	w.unsubs = nil
	w.chain = nil
}

func (w *watcher) close() {
	w.closed = true
	w.release()
}

func sameChain(a, b []*scope.Scope) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// reactive returns v as a Scope without upgrading plain records.
func reactive(v any) (*scope.Scope, bool) {
	switch s := v.(type) {
	case *scope.Scope:
		return s, s != nil
	case *scope.ListState:
		if s == nil {
			return nil, false
		}
		return s.Scope, true
	}
	return nil, false
}
