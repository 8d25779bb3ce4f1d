package actions_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/scopebind/pkg/actions"
	"github.com/vango-dev/scopebind/pkg/bind"
	"github.com/vango-dev/scopebind/pkg/dom"
	"github.com/vango-dev/scopebind/pkg/loop"
	"github.com/vango-dev/scopebind/pkg/scope"
)

type page struct {
	doc   *dom.Document
	scope *scope.Scope
}

func setup(t *testing.T, body string, data scope.Plain) *page {
	t.Helper()
	doc, err := dom.ParseString("<html><body>" + body + "</body></html>")
	require.NoError(t, err)

	e := bind.New(doc,
		bind.WithHost(loop.NewManual()),
		bind.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	actions.Register(e)

	s, err := e.Bind("#app", data)
	require.NoError(t, err)
	return &page{doc: doc, scope: s}
}

func (p *page) click(t *testing.T, sel string) {
	t.Helper()
	n, err := p.doc.Query(sel)
	require.NoError(t, err)
	require.NotNil(t, n)
	p.doc.Click(n)
}

func TestCounterActions(t *testing.T) {
	p := setup(t, `<div id="app">`+
		`<button id="inc" data-action="inc('count')"></button>`+
		`<button id="dec" data-action="dec('stats.total')"></button>`+
		`<button id="fresh" data-action="inc('fresh')"></button>`+
		`<button id="bad" data-action="inc('label')"></button>`+
		`</div>`, scope.Plain{
		"count": 1,
		"label": "text",
		"stats": scope.Plain{"total": 2.5},
	})

	p.click(t, "#inc")
	p.click(t, "#inc")
	p.click(t, "#dec")
	p.click(t, "#fresh")
	p.click(t, "#bad")

	assert.Equal(t, 3, p.scope.Get("count"))
	assert.Equal(t, 1.5, p.scope.Get("stats").(*scope.Scope).Get("total"))
	assert.Equal(t, 1, p.scope.Get("fresh"))
	assert.Equal(t, "text", p.scope.Get("label"))
}

func TestToggleAndClear(t *testing.T) {
	p := setup(t, `<div id="app">`+
		`<button id="toggle" data-action="toggle('open')"></button>`+
		`<button id="clear" data-action="clear('query')"></button>`+
		`<button id="empty" data-action="clear('items')"></button>`+
		`</div>`, scope.Plain{
		"query": "abc",
		"items": scope.NewListState([]any{"a", "b"}),
	})

	p.click(t, "#toggle")
	assert.Equal(t, true, p.scope.Get("open"))
	p.click(t, "#toggle")
	assert.Equal(t, false, p.scope.Get("open"))

	p.click(t, "#clear")
	assert.Equal(t, "", p.scope.Get("query"))

	p.click(t, "#empty")
	assert.Empty(t, p.scope.Get("items").(*scope.ListState).Items())
}

func TestListActions(t *testing.T) {
	var rows []any
	for _, name := range []string{"cy", "al", "bo"} {
		rows = append(rows, scope.Plain{"name": name})
	}
	items := scope.NewListState(rows)
	items.SetPageSize(1)

	p := setup(t, `<div id="app">`+
		`<button id="sort" data-action="sort('people:name')"></button>`+
		`<button id="next" data-action="next('people')"></button>`+
		`<button id="prev" data-action="prev('people')"></button>`+
		`<button id="malformed" data-action="sort('people')"></button>`+
		`</div>`, scope.Plain{"people": items})

	p.click(t, "#sort")
	assert.Equal(t, "name", items.SortKey())
	assert.Equal(t, scope.SortAsc, items.SortDir())
	p.click(t, "#sort")
	assert.Equal(t, scope.SortDesc, items.SortDir())

	p.click(t, "#next")
	p.click(t, "#next")
	assert.Equal(t, 3, items.Page())
	p.click(t, "#next")
	assert.Equal(t, 3, items.Page())
	p.click(t, "#prev")
	assert.Equal(t, 2, items.Page())

	p.click(t, "#malformed")
	assert.Equal(t, scope.SortDesc, items.SortDir())
}
