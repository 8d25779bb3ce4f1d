package bind

import (
	"errors"
	"fmt"
	"runtime/debug"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	sberrors "github.com/vango-dev/scopebind/internal/errors"
	"github.com/vango-dev/scopebind/pkg/dom"
)

// walk binds start's subtree depth-first in document order against the
// scope on top of stack. When includeStart is false only the descendants
// are bound.
func (e *Engine) walk(start *html.Node, includeStart bool, stack *Stack) {
	var todo []*html.Node
	if includeStart {
		todo = append(todo, start)
	} else {
		todo = pushChildren(todo, start)
	}

	attrs := e.config.Attributes
	for len(todo) > 0 {
		n := todo[len(todo)-1]
		todo = todo[:len(todo)-1]

		if n.Type != html.ElementNode {
			continue
		}
		if n.DataAtom == atom.Template || dom.HasAttr(n, attrs.Template) {
			continue
		}

		descend := true
		if value, ok := dom.Attr(n, attrs.Bind); ok {
			descend = e.dispatch(n, value, stack)
		}
		if descend {
			todo = pushChildren(todo, n)
		}
	}
}

// pushChildren appends n's children in reverse so they pop in order.
func pushChildren(todo []*html.Node, n *html.Node) []*html.Node {
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		todo = append(todo, c)
	}
	return todo
}

// dispatch runs every token of a binding attribute against the innermost
// scope. It reports whether the walker should descend into n.
func (e *Engine) dispatch(n *html.Node, value string, stack *Stack) bool {
	top, ok := stack.Top()
	if !ok {
		return false
	}

	descend := true
	for _, tok := range ParseTokens(value) {
		h, ok := e.registry.Lookup(tok.Command)
		if !ok {
			e.logger.Debug("skipping unknown binding command",
				"command", tok.Command,
				"error", sberrors.New(sberrors.CodeUnknownCommand).WithDetail(tok.String()).Wrap(ErrUnknownCommand))
			continue
		}
		if e.registry.OwnsChildren(tok.Command) {
			descend = false
		}
		e.invoke(h, &Binding{
			Element:  n,
			Scope:    top.Scope,
			Command:  tok.Command,
			Argument: tok.Argument,
			Stack:    stack,
			engine:   e,
		})
	}
	return descend
}

// invoke runs a binder, containing its errors and panics.
func (e *Engine) invoke(h Handler, b *Binding) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("binder panic",
				"command", b.Command,
				"argument", b.Argument,
				"error", handlerRuntime(b.token(), fmt.Errorf("%v", r)),
				"stack", string(debug.Stack()))
		}
	}()

	err := h(b)
	switch {
	case err == nil:
	case errors.Is(err, ErrMalformedArgument):
		e.logger.Warn("malformed binding argument",
			"command", b.Command,
			"argument", b.Argument,
			"error", err)
	default:
		e.logger.Error("binder failed",
			"command", b.Command,
			"argument", b.Argument,
			"error", handlerRuntime(b.token(), err))
	}
}
