// Package dom is the live document that bindings write to.
//
// A Document wraps a golang.org/x/net/html node tree. Reads go straight to
// the nodes; writes go through Document methods so that the document can
// count mutations, record removed subtrees for mutation observers, and keep
// event listeners attached to nodes.
//
// Like a browser DOM, a Document belongs to one goroutine.
package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a mutable HTML tree with mutation observers and event
// listeners.
type Document struct {
	root *html.Node

	listeners map[*html.Node][]*listener

	observers []*observer
	removed   []*html.Node
	schedule  func(deliver func())
	scheduled bool

	mutations uint64
}

type observer struct {
	fn        func(removed []*html.Node)
	cancelled bool
}

// New wraps an existing node tree. root is normally an html.DocumentNode.
func New(root *html.Node) *Document {
	return &Document{
		root:      root,
		listeners: make(map[*html.Node][]*listener),
	}
}

// Parse parses a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return New(root), nil
}

// ParseString parses a full HTML document from s.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the <body> element, or nil.
func (d *Document) Body() *html.Node {
	return findElement(d.root, atom.Body)
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// Query returns the first element matching the CSS selector, or nil.
func (d *Document) Query(selector string) (*html.Node, error) {
	return QueryIn(d.root, selector)
}

// QueryAll returns every element matching the CSS selector.
func (d *Document) QueryAll(selector string) ([]*html.Node, error) {
	return QueryAllIn(d.root, selector)
}

// QueryIn returns the first element under n (or n itself) matching the
// selector.
func QueryIn(n *html.Node, selector string) (*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("dom: selector %q: %w", selector, err)
	}
	return sel.MatchFirst(n), nil
}

// QueryAllIn returns every element under n (or n itself) matching the
// selector.
func QueryAllIn(n *html.Node, selector string) ([]*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("dom: selector %q: %w", selector, err)
	}
	return sel.MatchAll(n), nil
}

// NewElement creates a detached element.
func NewElement(tag string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

// NewText creates a detached text node.
func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Clone returns a deep copy of n, detached from any parent. Event listeners
// are not copied.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}
	return c
}

// Mutations returns the number of mutations applied through the document.
func (d *Document) Mutations() uint64 {
	return d.mutations
}

// AppendChild appends child to parent, detaching it from its old parent
// first.
func (d *Document) AppendChild(parent, child *html.Node) {
	if child.Parent != nil {
		d.detach(child)
	}
	parent.AppendChild(child)
	d.mutations++
	d.flushSync()
}

// AppendChildren appends every child to parent as one mutation.
func (d *Document) AppendChildren(parent *html.Node, children []*html.Node) {
	if len(children) == 0 {
		return
	}
	for _, c := range children {
		if c.Parent != nil {
			d.detach(c)
		}
		parent.AppendChild(c)
	}
	d.mutations++
	d.flushSync()
}

// InsertBefore inserts child before ref under parent. A nil ref appends.
func (d *Document) InsertBefore(parent, child, ref *html.Node) {
	if child.Parent != nil {
		d.detach(child)
	}
	parent.InsertBefore(child, ref)
	d.mutations++
	d.flushSync()
}

// Remove detaches n from its parent and records it as removed.
func (d *Document) Remove(n *html.Node) {
	if n.Parent == nil {
		return
	}
	d.detach(n)
	d.mutations++
	d.flushSync()
}

// ClearChildren removes every child of n as one mutation.
func (d *Document) ClearChildren(n *html.Node) {
	if n.FirstChild == nil {
		return
	}
	for n.FirstChild != nil {
		d.detach(n.FirstChild)
	}
	d.mutations++
	d.flushSync()
}

func (d *Document) detach(n *html.Node) {
	n.Parent.RemoveChild(n)
	if n.Type == html.ElementNode || n.FirstChild != nil {
		d.record(n)
	}
}

// SetText replaces the children of n with a single text node. It does
// nothing when the text is unchanged.
func (d *Document) SetText(n *html.Node, s string) {
	if c := n.FirstChild; c != nil && c.NextSibling == nil && c.Type == html.TextNode && c.Data == s {
		return
	}
	if n.FirstChild == nil && s == "" {
		return
	}
	for n.FirstChild != nil {
		d.detach(n.FirstChild)
	}
	if s != "" {
		n.AppendChild(NewText(s))
	}
	d.mutations++
	d.flushSync()
}

// Attr returns the value of the named attribute.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether n carries the attribute.
func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// SetAttr sets an attribute. It does nothing when the value is unchanged.
func (d *Document) SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			if a.Val == val {
				return
			}
			n.Attr[i].Val = val
			d.mutations++
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	d.mutations++
}

// RemoveAttr removes an attribute if present.
func (d *Document) RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			d.mutations++
			return
		}
	}
}

// HasClass reports whether n's class list contains name.
func HasClass(n *html.Node, name string) bool {
	classes, _ := Attr(n, "class")
	for _, c := range strings.Fields(classes) {
		if c == name {
			return true
		}
	}
	return false
}

// ToggleClass adds or removes a class.
func (d *Document) ToggleClass(n *html.Node, name string, on bool) {
	if HasClass(n, name) == on {
		return
	}
	classes, _ := Attr(n, "class")
	fields := strings.Fields(classes)
	if on {
		fields = append(fields, name)
	} else {
		kept := fields[:0]
		for _, c := range fields {
			if c != name {
				kept = append(kept, c)
			}
		}
		fields = kept
	}
	if len(fields) == 0 {
		d.RemoveAttr(n, "class")
		return
	}
	d.SetAttr(n, "class", strings.Join(fields, " "))
}

// ElementChildren returns the element children of n.
func ElementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// FirstElementChild returns the first element child of n, or nil.
func FirstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// Closest returns the nearest of n and its ancestors that satisfies match.
func Closest(n *html.Node, match func(*html.Node) bool) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && match(cur) {
			return cur
		}
	}
	return nil
}

// Contains reports whether n is ancestor or a descendant of it.
func Contains(ancestor, n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// IsConnected reports whether n is attached to the document.
func (d *Document) IsConnected(n *html.Node) bool {
	return Contains(d.root, n)
}

// Walk calls fn for n and each descendant in document order. Returning
// false from fn skips that node's children.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		Walk(c, fn)
		c = next
	}
}
