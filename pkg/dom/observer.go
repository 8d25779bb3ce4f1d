package dom

import "golang.org/x/net/html"

// Observe registers fn to receive the roots of removed subtrees. Records
// are delivered in batches: immediately after the mutation by default, or
// on the turn chosen by the function given to SetDelivery.
func (d *Document) Observe(fn func(removed []*html.Node)) (cancel func()) {
	o := &observer{fn: fn}
	d.observers = append(d.observers, o)
	return func() {
		if o.cancelled {
			return
		}
		o.cancelled = true
		for i, cur := range d.observers {
			if cur == o {
				d.observers = append(d.observers[:i:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

// SetDelivery defers mutation delivery. schedule is called once per batch
// with the function that delivers the pending records. A nil schedule
// delivers synchronously.
func (d *Document) SetDelivery(schedule func(deliver func())) {
	d.schedule = schedule
}

// TakeRecords returns and clears the pending removal records without
// delivering them.
func (d *Document) TakeRecords() []*html.Node {
	out := d.removed
	d.removed = nil
	return out
}

// DeliverMutations hands the pending records to every observer.
func (d *Document) DeliverMutations() {
	d.scheduled = false
	records := d.TakeRecords()
	if len(records) == 0 {
		return
	}
	observers := append([]*observer(nil), d.observers...)
	for _, o := range observers {
		if !o.cancelled {
			o.fn(records)
		}
	}
}

func (d *Document) record(n *html.Node) {
	if len(d.observers) == 0 {
		return
	}
	d.removed = append(d.removed, n)

	if d.schedule == nil {
		return
	}
	if !d.scheduled {
		d.scheduled = true
		d.schedule(d.DeliverMutations)
	}
}

// flushSync delivers records at the end of a mutating call when no
// delivery turn is set.
func (d *Document) flushSync() {
	if d.schedule == nil && len(d.removed) > 0 {
		d.DeliverMutations()
	}
}
