package bind

import (
	sberrors "github.com/vango-dev/scopebind/internal/errors"
	"github.com/vango-dev/scopebind/pkg/keypath"
	"github.com/vango-dev/scopebind/pkg/scope"
)

// bindView implements view:path. The element becomes the boundary of the
// record at path and its children are bound against that record's scope.
// Reassigning path to another scope rebinds the children.
func (e *Engine) bindView(b *Binding) error {
	if err := keypath.Valid(b.Argument); err != nil {
		return Malformed(b.Command, b.Argument, err.Error())
	}
	path := keypath.Parse(b.Argument)

	var (
		current *scope.Scope
		closed  bool
	)
	id := e.boundary(b.Element, nil)

	mount := func(v any) {
		if closed {
			return
		}
		var s *scope.Scope
		switch rec := v.(type) {
		case nil:
		case map[string]any:
			s = scope.New(rec)
		default:
			s, _ = reactive(rec)
		}
		current = s
		e.scopes[id] = s
		if s == nil {
			return
		}
		if !b.BindChildren(s) {
			current = nil
			e.scopes[id] = nil
			b.Logger().Warn("view scope already encloses this element",
				"error", sberrors.New(sberrors.CodeScopeCycle).WithDetail(b.Argument))
		}
	}
	mount(path.Resolve(b.Scope))

	owner, leaf, ok := path.Owner(b.Scope)
	if !ok {
		return nil
	}
	parent, ok := reactive(owner)
	if !ok {
		return nil
	}

	task := b.NewTask(func() {
		if closed {
			return
		}
		v := path.Resolve(b.Scope)
		if _, plain := v.(map[string]any); plain {
			b.Logger().Warn("view record reassigned without upgrade",
				"error", sberrors.New(sberrors.CodeNotReactive).WithDetail(b.Argument))
			return
		}
		next, _ := reactive(v)
		if next == current {
			return
		}
		e.tracker.CleanupChildren(b.Element)
		mount(v)
	})
	b.OnCleanup(parent.Observe(leaf, func(_, _ any) { e.sched.Schedule(task) }))
	b.OnCleanup(func() { closed = true })
	return nil
}

