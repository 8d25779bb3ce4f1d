package dom

import "golang.org/x/net/html"

// Event is a dispatched DOM event.
type Event struct {
	Type string

	// Target is the node the event was dispatched on.
	Target *html.Node

	// CurrentTarget is the node whose listener is running.
	CurrentTarget *html.Node

	// Value carries the new value for "input" and "change" events.
	Value string

	stopped bool
}

// StopPropagation prevents the event from reaching further ancestors.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Stopped reports whether propagation was stopped.
func (e *Event) Stopped() bool {
	return e.stopped
}

type listener struct {
	typ     string
	fn      func(*Event)
	removed bool
}

// AddEventListener registers fn for events of type typ reaching n.
func (d *Document) AddEventListener(n *html.Node, typ string, fn func(*Event)) (remove func()) {
	l := &listener{typ: typ, fn: fn}
	d.listeners[n] = append(d.listeners[n], l)
	return func() {
		if l.removed {
			return
		}
		l.removed = true
		list := d.listeners[n]
		for i, cur := range list {
			if cur == l {
				list = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(d.listeners, n)
		} else {
			d.listeners[n] = list
		}
	}
}

// ListenerCount returns the number of listeners attached to n.
func (d *Document) ListenerCount(n *html.Node) int {
	return len(d.listeners[n])
}

// Dispatch delivers ev to its target and then to each ancestor, stopping
// when a listener calls StopPropagation.
func (d *Document) Dispatch(ev *Event) {
	var path []*html.Node
	for cur := ev.Target; cur != nil; cur = cur.Parent {
		path = append(path, cur)
	}
	for _, n := range path {
		list := d.listeners[n]
		if len(list) == 0 {
			continue
		}
		ev.CurrentTarget = n
		for _, l := range append([]*listener(nil), list...) {
			if l.removed || l.typ != ev.Type {
				continue
			}
			l.fn(ev)
		}
		if ev.stopped {
			break
		}
	}
	ev.CurrentTarget = nil
}

// Click dispatches a click event on n.
func (d *Document) Click(n *html.Node) {
	d.Dispatch(&Event{Type: "click", Target: n})
}

// Input sets the value attribute of n and dispatches an input event.
func (d *Document) Input(n *html.Node, value string) {
	d.SetAttr(n, "value", value)
	d.Dispatch(&Event{Type: "input", Target: n, Value: value})
}
