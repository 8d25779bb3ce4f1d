package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Render writes the whole document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String returns the whole document as HTML.
func (d *Document) String() string {
	var buf bytes.Buffer
	_ = d.Render(&buf)
	return buf.String()
}

// OuterHTML renders n and its subtree.
func OuterHTML(n *html.Node) string {
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// TextContent returns the concatenated text of n's subtree.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

// ElementPath returns the element-child indexes leading from the document
// node to n. It returns nil when n is not an element.
func ElementPath(n *html.Node) []int {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	var path []int
	for cur := n; cur.Parent != nil; cur = cur.Parent {
		i := 0
		for s := cur.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode {
				i++
			}
		}
		path = append(path, i)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// ElementAt resolves a path produced by ElementPath. It returns nil when
// the path no longer leads to an element.
func (d *Document) ElementAt(path []int) *html.Node {
	cur := d.root
	for _, idx := range path {
		if idx < 0 {
			return nil
		}
		var next *html.Node
		i := 0
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if i == idx {
				next = c
				break
			}
			i++
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	if cur == d.root {
		return nil
	}
	return cur
}
