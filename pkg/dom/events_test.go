package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchBubbles(t *testing.T) {
	d := mustParse(t)
	app := mustQuery(t, d, "#app")
	span := mustQuery(t, d, "#a")

	var order []string
	d.AddEventListener(span, "click", func(e *Event) {
		order = append(order, "span")
		assert.Same(t, span, e.Target)
		assert.Same(t, span, e.CurrentTarget)
	})
	d.AddEventListener(app, "click", func(e *Event) {
		order = append(order, "app")
		assert.Same(t, span, e.Target)
		assert.Same(t, app, e.CurrentTarget)
	})
	d.AddEventListener(app, "input", func(*Event) {
		order = append(order, "input")
	})

	d.Click(span)
	assert.Equal(t, []string{"span", "app"}, order)
}

func TestStopPropagation(t *testing.T) {
	d := mustParse(t)
	app := mustQuery(t, d, "#app")
	span := mustQuery(t, d, "#a")

	reached := false
	d.AddEventListener(span, "click", func(e *Event) { e.StopPropagation() })
	d.AddEventListener(app, "click", func(*Event) { reached = true })

	d.Click(span)
	assert.False(t, reached)
}

func TestRemoveListener(t *testing.T) {
	d := mustParse(t)
	span := mustQuery(t, d, "#a")

	calls := 0
	remove := d.AddEventListener(span, "click", func(*Event) { calls++ })
	assert.Equal(t, 1, d.ListenerCount(span))

	d.Click(span)
	remove()
	remove()
	d.Click(span)

	assert.Equal(t, 1, calls)
	assert.Zero(t, d.ListenerCount(span))
}

func TestInputSetsValue(t *testing.T) {
	d := mustParse(t)
	span := mustQuery(t, d, "#a")

	var got string
	d.AddEventListener(span, "input", func(e *Event) { got = e.Value })
	d.Input(span, "typed")

	v, _ := Attr(span, "value")
	assert.Equal(t, "typed", v)
	assert.Equal(t, "typed", got)
}
