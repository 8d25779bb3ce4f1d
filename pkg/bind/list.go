package bind

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/scopebind/pkg/dom"
	"github.com/vango-dev/scopebind/pkg/keypath"
	"github.com/vango-dev/scopebind/pkg/scheduler"
	"github.com/vango-dev/scopebind/pkg/scope"
)

// Metadata keys understood by list and table.
const (
	MetaPageSize = "pageSize"
	MetaPage     = "page"
	MetaSort     = "sort"
	MetaDir      = "dir"
	MetaCols     = "cols"
	MetaChunk    = "chunk"
)

// Render strategies, as reported to metrics.
const (
	StrategyFull        = "full"
	StrategyIncremental = "incremental"
	StrategySkipped     = "skipped"
)

// listRenderer renders a ListState into a container, one template clone per
// visible row.
type listRenderer struct {
	e         *Engine
	b         *Binding
	container *html.Node
	tpl       *html.Node

	state *scope.ListState
	owned bool
	unsub scope.Unsubscribe

	table   *html.Node
	cols    []string
	headers map[string]*html.Node

	rows     []*html.Node
	last     []*scope.Scope
	rendered bool
	gen      int
	closed   bool

	threshold int
	chunk     int

	task   *scheduler.Task
	header *scheduler.Task
}

func (e *Engine) bindList(b *Binding) error {
	return e.bindCollection(b, false)
}

func (e *Engine) bindTable(b *Binding) error {
	return e.bindCollection(b, true)
}

func (e *Engine) bindCollection(b *Binding, table bool) error {
	if err := keypath.Valid(b.Argument); err != nil {
		return Malformed(b.Command, b.Argument, err.Error())
	}
	path := keypath.Parse(b.Argument)
	meta := b.Meta()

	r := &listRenderer{
		e:         e,
		b:         b,
		container: b.Element,
		threshold: e.config.Render.ChunkThreshold,
		chunk:     e.config.Render.ChunkSize,
		headers:   make(map[string]*html.Node),
	}
	r.task = b.NewTask(r.render)
	r.header = scheduler.NewTask(b.Command+":header", r.updateHeader)
	if n, err := strconv.Atoi(meta[MetaChunk]); err == nil && n > 0 {
		r.chunk = n
	}
	if r.chunk <= 0 {
		r.chunk = 1
	}

	if !r.attach(path.Resolve(b.Scope)) {
		return Malformed(b.Command, b.Argument, "path does not hold a list")
	}
	r.applyMeta(meta)

	if table {
		r.table = b.Element
		r.container = r.tbody()
		r.cols = splitCols(meta[MetaCols])
	}
	r.tpl = r.template()
	if r.table != nil && len(r.cols) > 0 {
		r.buildHeader()
	}

	r.render()

	if owner, leaf, ok := path.Owner(b.Scope); ok {
		if parent, ok := reactive(owner); ok {
			reattach := b.NewTask(func() { r.reattach(path.Resolve(b.Scope)) })
			b.OnCleanup(parent.Observe(leaf, func(_, _ any) { e.sched.Schedule(reattach) }))
		}
	}
	b.OnCleanup(r.close)
	b.OnCleanup(r.forget)
	return nil
}

// attach starts rendering from v, which must be a ListState or a slice. A
// slice is wrapped in a ListState owned by the renderer.
func (r *listRenderer) attach(v any) bool {
	var state *scope.ListState
	owned := false
	switch items := v.(type) {
	case *scope.ListState:
		state = items
	case []any:
		state = r.e.ListState(items)
		owned = true
	case []*scope.Scope:
		all := make([]any, len(items))
		for i, s := range items {
			all[i] = s
		}
		state = r.e.ListState(all)
		owned = true
	}
	if state == nil {
		return false
	}

	if r.unsub != nil {
		r.unsub()
	}
	r.state = state
	r.owned = owned
	r.unsub = state.ObserveAll(r.changed)
	return true
}

func (r *listRenderer) reattach(v any) {
	if r.closed {
		return
	}
	if r.owned {
		switch items := v.(type) {
		case []any:
			r.state.SetItems(items)
			return
		case []*scope.Scope:
			all := make([]any, len(items))
			for i, s := range items {
				all[i] = s
			}
			r.state.SetItems(all)
			return
		}
	}
	if v == r.state {
		return
	}
	if !r.attach(v) {
		r.b.Logger().Warn("list path no longer holds a list")
		return
	}
	r.render()
	r.updateHeader()
}

func (r *listRenderer) applyMeta(meta map[string]string) {
	if n, err := strconv.Atoi(meta[MetaPageSize]); err == nil && n >= 0 {
		r.state.SetPageSize(n)
	}
	if n, err := strconv.Atoi(meta[MetaPage]); err == nil {
		r.state.SetPage(n)
	}
	if key := meta[MetaSort]; key != "" {
		dir := scope.SortAsc
		if strings.EqualFold(meta[MetaDir], scope.SortDesc) {
			dir = scope.SortDesc
		}
		r.state.SetSort(key, dir)
	}
}

// changed is the list state observer. It schedules a render unless the
// visible slice is the one already rendered.
func (r *listRenderer) changed(key string, _, _ any) {
	if r.closed || !r.rendered {
		return
	}
	if key == scope.KeySortKey || key == scope.KeySortDir {
		r.e.sched.Schedule(r.header)
	}
	if r.rendered && sameRows(r.state.Visible(), r.last) {
		return
	}
	r.e.sched.Schedule(r.task)
}

func (r *listRenderer) render() {
	if r.closed {
		return
	}
	visible := r.state.Visible()
	if r.rendered && sameRows(visible, r.last) {
		r.e.metrics.ListRendered(StrategySkipped)
		return
	}
	r.last = visible
	r.rendered = true
	r.gen++

	if r.threshold > 0 && len(visible) > r.threshold {
		r.e.metrics.ListRendered(StrategyIncremental)
		r.renderIncremental(visible, r.gen)
		return
	}
	r.e.metrics.ListRendered(StrategyFull)
	r.clear()
	r.appendRows(visible)
}

// renderIncremental produces rows in chunks on successive idle turns. The
// first chunk clears the previous rows. A newer render abandons the rest.
func (r *listRenderer) renderIncremental(visible []*scope.Scope, gen int) {
	var step func(start int)
	step = func(start int) {
		if r.closed || gen != r.gen {
			return
		}
		if start == 0 {
			r.clear()
		}
		end := min(start+r.chunk, len(visible))
		r.appendRows(visible[start:end])
		if end < len(visible) {
			r.e.host.RequestIdle(func() { step(end) })
		}
	}
	r.e.host.RequestIdle(func() { step(0) })
}

// clear releases and removes every rendered row.
func (r *listRenderer) clear() {
	for _, row := range r.rows {
		r.e.doc.Remove(row)
		r.e.tracker.Cleanup(row)
	}
	r.rows = nil
}

// appendRows binds one template clone per row scope and appends them in a
// single batch.
func (r *listRenderer) appendRows(rows []*scope.Scope) {
	clones := make([]*html.Node, 0, len(rows))
	for _, row := range rows {
		clone := dom.Clone(r.tpl)
		r.e.boundary(clone, row)
		r.e.walk(clone, true, r.b.Stack.with(Frame{Element: clone, Scope: row}))
		clones = append(clones, clone)
	}
	r.e.doc.AppendChildren(r.container, clones)
	r.rows = append(r.rows, clones...)
}

func (r *listRenderer) close() {
	r.closed = true
	if r.unsub != nil {
		r.unsub()
		r.unsub = nil
	}
}

// template picks the row template: the one recorded when this element was
// first bound, else the content of a <template> child or a child marked with
// the template attribute, else the first element child of the container,
// else a generic fallback. Existing content other than the
// template holder is treated as rendered rows so the first render replaces
// it.
func (r *listRenderer) template() *html.Node {
	attr := r.e.config.Attributes.Template
	var holder, first *html.Node
	search := []*html.Node{r.container}
	if r.table != nil && r.table != r.container {
		search = append(search, r.table)
	}
	for _, parent := range search {
		for c := parent.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if holder == nil && (c.DataAtom == atom.Template || dom.HasAttr(c, attr)) {
				holder = c
			}
		}
	}
	for c := r.container.FirstChild; c != nil; c = c.NextSibling {
		if c == holder {
			continue
		}
		if first == nil && c.Type == html.ElementNode {
			first = c
		}
		r.rows = append(r.rows, c)
	}

	if saved, ok := r.e.templates[r.b.Element]; ok {
		return dom.Clone(saved)
	}
	var tpl *html.Node
	if holder != nil {
		tpl = dom.FirstElementChild(holder)
	}
	if tpl == nil {
		tpl = first
	}
	if tpl == nil {
		return r.fallback()
	}
	tpl = dom.Clone(tpl)
	stripAttr(tpl, r.e.config.Attributes.Scope)
	r.e.templates[r.b.Element] = dom.Clone(tpl)
	return tpl
}

// forget drops the recorded template once the list element has left the
// document. An Unbind keeps it.
func (r *listRenderer) forget() {
	if !r.e.doc.IsConnected(r.b.Element) {
		delete(r.e.templates, r.b.Element)
	}
}

func (r *listRenderer) fallback() *html.Node {
	bindAttr := r.e.config.Attributes.Bind
	switch {
	case r.table != nil:
		tr := dom.NewElement("tr")
		cols := r.cols
		if len(cols) == 0 {
			cols = []string{scope.ValueKey}
		}
		for _, col := range cols {
			td := dom.NewElement("td")
			td.Attr = append(td.Attr, html.Attribute{Key: bindAttr, Val: "text:" + col})
			tr.AppendChild(td)
		}
		return tr
	case r.container.DataAtom == atom.Ul || r.container.DataAtom == atom.Ol:
		li := dom.NewElement("li")
		li.Attr = append(li.Attr, html.Attribute{Key: bindAttr, Val: "text:" + scope.ValueKey})
		return li
	}
	div := dom.NewElement("div")
	div.Attr = append(div.Attr, html.Attribute{Key: bindAttr, Val: "text:" + scope.ValueKey})
	return div
}

func sameRows(a, b []*scope.Scope) bool {
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

func stripAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func splitCols(v string) []string {
	var cols []string
	for _, c := range strings.Split(v, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}
