package bind

import "sort"

// Handler implements one binding command. It applies the binding once,
// synchronously, and subscribes to whatever the binding depends on, usually
// through Binding.Watch.
type Handler func(b *Binding) error

type binder struct {
	handler  Handler
	children bool
}

// RegisterOption configures a registered binder.
type RegisterOption func(*binder)

// WithChildren marks a binder that owns its element's children. The walker
// does not descend into elements bound with such a command; the binder binds
// (or renders) the children itself.
func WithChildren() RegisterOption {
	return func(b *binder) { b.children = true }
}

// Registry maps command names to binders.
type Registry struct {
	binders map[string]binder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{binders: make(map[string]binder)}
}

// Register adds or replaces the binder for name.
func (r *Registry) Register(name string, h Handler, opts ...RegisterOption) {
	b := binder{handler: h}
	for _, opt := range opts {
		opt(&b)
	}
	r.binders[name] = b
}

// Lookup returns the handler registered for name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	b, ok := r.binders[name]
	return b.handler, ok
}

// OwnsChildren reports whether the binder for name was registered with
// WithChildren.
func (r *Registry) OwnsChildren(name string) bool {
	return r.binders[name].children
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.binders))
	for name := range r.binders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
