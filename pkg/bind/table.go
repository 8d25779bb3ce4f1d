package bind

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/scopebind/pkg/dom"
	"github.com/vango-dev/scopebind/pkg/scope"
)

// SortKeyAttr marks generated header cells with the column they sort.
const SortKeyAttr = "data-sort-key"

// tbody returns the table's first <tbody>, creating it when missing.
func (r *listRenderer) tbody() *html.Node {
	for c := r.table.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Tbody {
			return c
		}
	}
	body := dom.NewElement("tbody")
	r.e.doc.AppendChild(r.table, body)
	return body
}

// buildHeader generates one <th> per column in the table's <thead>.
// Clicking a header sorts by its column, toggling the direction when it is
// already the sort key.
func (r *listRenderer) buildHeader() {
	var thead *html.Node
	for c := r.table.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Thead {
			thead = c
			break
		}
	}
	if thead == nil {
		thead = dom.NewElement("thead")
		r.e.doc.InsertBefore(r.table, thead, r.container)
	} else {
		r.e.tracker.CleanupChildren(thead)
		r.e.doc.ClearChildren(thead)
	}

	tr := dom.NewElement("tr")
	for _, col := range r.cols {
		col := col
		th := dom.NewElement("th")
		th.Attr = append(th.Attr, html.Attribute{Key: SortKeyAttr, Val: col})
		th.AppendChild(dom.NewText(col))
		tr.AppendChild(th)
		r.headers[col] = th
		r.b.OnCleanup(r.e.doc.AddEventListener(th, "click", func(*dom.Event) {
			if !r.closed {
				r.state.SortBy(col)
			}
		}))
	}
	r.e.doc.AppendChild(thead, tr)
	r.updateHeader()
}

// updateHeader sets aria-sort on the header of the current sort column.
func (r *listRenderer) updateHeader() {
	if r.closed || len(r.headers) == 0 {
		return
	}
	key := r.state.SortKey()
	for col, th := range r.headers {
		if col != key {
			r.e.doc.RemoveAttr(th, "aria-sort")
			continue
		}
		if r.state.SortDir() == scope.SortDesc {
			r.e.doc.SetAttr(th, "aria-sort", "descending")
		} else {
			r.e.doc.SetAttr(th, "aria-sort", "ascending")
		}
	}
}
