package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const page = `<!DOCTYPE html><html><head></head><body>` +
	`<div id="app" class="card"><span id="a">one</span><ul id="list"><li>x</li><li>y</li></ul></div>` +
	`<template id="row"><li class="row"><b></b></li></template>` +
	`</body></html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	d, err := ParseString(page)
	require.NoError(t, err)
	return d
}

func mustQuery(t *testing.T, d *Document, sel string) *html.Node {
	t.Helper()
	n, err := d.Query(sel)
	require.NoError(t, err)
	require.NotNil(t, n, "no match for %s", sel)
	return n
}

func TestQuery(t *testing.T) {
	d := mustParse(t)

	app := mustQuery(t, d, "#app")
	assert.Equal(t, "div", app.Data)

	items, err := d.QueryAll("#list > li")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	missing, err := d.Query("#nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = d.Query("[[")
	assert.Error(t, err)

	assert.Equal(t, "body", d.Body().Data)
}

func TestTemplateContentIsQueryable(t *testing.T) {
	d := mustParse(t)
	tpl := mustQuery(t, d, "#row")

	first := FirstElementChild(tpl)
	require.NotNil(t, first)
	assert.Equal(t, "li", first.Data)
	assert.True(t, HasClass(first, "row"))
}

func TestAttributes(t *testing.T) {
	d := mustParse(t)
	app := mustQuery(t, d, "#app")

	before := d.Mutations()
	d.SetAttr(app, "title", "hello")
	v, ok := Attr(app, "title")
	assert.True(t, ok)
	assert.Equal(t, "hello", v)
	assert.Equal(t, before+1, d.Mutations())

	d.SetAttr(app, "title", "hello")
	assert.Equal(t, before+1, d.Mutations(), "unchanged value is not a mutation")

	d.RemoveAttr(app, "title")
	assert.False(t, HasAttr(app, "title"))

	d.ToggleClass(app, "active", true)
	assert.True(t, HasClass(app, "active"))
	assert.True(t, HasClass(app, "card"))
	d.ToggleClass(app, "active", false)
	d.ToggleClass(app, "card", false)
	assert.False(t, HasAttr(app, "class"))
}

func TestSetText(t *testing.T) {
	d := mustParse(t)
	span := mustQuery(t, d, "#a")

	before := d.Mutations()
	d.SetText(span, "one")
	assert.Equal(t, before, d.Mutations())

	d.SetText(span, "two")
	assert.Equal(t, "two", TextContent(span))
	assert.Equal(t, before+1, d.Mutations())

	d.SetText(span, "")
	assert.Nil(t, span.FirstChild)
}

func TestTreeMutation(t *testing.T) {
	d := mustParse(t)
	list := mustQuery(t, d, "#list")

	li := NewElement("li")
	li.AppendChild(NewText("z"))
	d.AppendChild(list, li)
	assert.Len(t, ElementChildren(list), 3)
	assert.True(t, d.IsConnected(li))

	d.Remove(li)
	assert.False(t, d.IsConnected(li))
	assert.Len(t, ElementChildren(list), 2)

	d.ClearChildren(list)
	assert.Empty(t, ElementChildren(list))

	batch := []*html.Node{NewElement("li"), NewElement("li")}
	before := d.Mutations()
	d.AppendChildren(list, batch)
	assert.Equal(t, before+1, d.Mutations())
	assert.Len(t, ElementChildren(list), 2)
}

func TestClone(t *testing.T) {
	d := mustParse(t)
	tpl := FirstElementChild(mustQuery(t, d, "#row"))

	c := Clone(tpl)
	assert.Nil(t, c.Parent)
	assert.Equal(t, OuterHTML(tpl), OuterHTML(c))

	d.SetAttr(c, "class", "changed")
	assert.True(t, HasClass(tpl, "row"), "clone must not share attributes")
}

func TestObserveRemovals(t *testing.T) {
	d := mustParse(t)
	list := mustQuery(t, d, "#list")

	var got [][]*html.Node
	cancel := d.Observe(func(removed []*html.Node) {
		got = append(got, removed)
	})

	first := FirstElementChild(list)
	d.Remove(first)
	require.Len(t, got, 1)
	assert.Equal(t, []*html.Node{first}, got[0])

	cancel()
	d.ClearChildren(list)
	assert.Len(t, got, 1)
}

func TestDeferredDelivery(t *testing.T) {
	d := mustParse(t)
	list := mustQuery(t, d, "#list")

	var scheduled []func()
	d.SetDelivery(func(deliver func()) { scheduled = append(scheduled, deliver) })

	var batches int
	var removed int
	d.Observe(func(nodes []*html.Node) {
		batches++
		removed += len(nodes)
	})

	d.ClearChildren(list)
	d.Remove(mustQuery(t, d, "#a"))
	require.Len(t, scheduled, 1, "one delivery per batch")
	assert.Zero(t, batches)

	scheduled[0]()
	assert.Equal(t, 1, batches)
	assert.Equal(t, 3, removed)
}

func TestElementPath(t *testing.T) {
	d := mustParse(t)
	items, err := d.QueryAll("#list > li")
	require.NoError(t, err)

	path := ElementPath(items[1])
	assert.Same(t, items[1], d.ElementAt(path))

	assert.Nil(t, d.ElementAt([]int{0, 9, 9}))
	assert.Nil(t, d.ElementAt(nil))
}

func TestRender(t *testing.T) {
	d := mustParse(t)
	span := mustQuery(t, d, "#a")

	assert.Equal(t, `<span id="a">one</span>`, OuterHTML(span))
	assert.Equal(t, "one", InnerHTML(span))
	assert.Contains(t, d.String(), `<div id="app" class="card">`)
}
