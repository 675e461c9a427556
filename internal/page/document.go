// Package page reads the HTML page that hosts the speech toggles. It
// resolves element ids to readable text and discovers the toggles with
// their attributes.
package page

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hammamikhairi/readaloud/internal/logger"
)

// ControlTag is the element name of a speech toggle in the page markup.
const ControlTag = "speech-toggle"

// Document is a parsed page with an id index.
type Document struct {
	root *html.Node
	byID map[string]*html.Node
	log  *logger.Logger
}

// Parse reads an HTML page. Only the first element carrying a given id is
// indexed, like a browser's getElementById.
func Parse(r io.Reader, log *logger.Logger) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	d := &Document{root: root, byID: make(map[string]*html.Node), log: log}
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if id := attr(n, "id"); id != "" {
				if _, dup := d.byID[id]; !dup {
					d.byID[id] = n
				}
			}
		}
		return true
	})

	log.Debug("page: parsed %d element id(s)", len(d.byID))
	return d, nil
}

// Text returns the visible text of the element with the given id, with
// runs of whitespace collapsed. The boolean is false when no element has
// that id.
func (d *Document) Text(id string) (string, bool) {
	n, ok := d.byID[id]
	if !ok {
		return "", false
	}
	return innerText(n), true
}

// Title returns the text of the page's <title>, or "" without one.
func (d *Document) Title() string {
	var title string
	walk(d.root, func(n *html.Node) bool {
		if title == "" && n.Type == html.ElementNode && n.DataAtom == atom.Title {
			title = innerText(n)
			return false
		}
		return true
	})
	return title
}

// innerText gathers text below n, skipping script, style and template
// content. Block elements are separated by a space.
func innerText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
			return
		case html.ElementNode:
			switch c.DataAtom {
			case atom.Script, atom.Style, atom.Template, atom.Noscript:
				return
			}
		}
		block := c.Type == html.ElementNode && !inline[c.DataAtom]
		if block {
			b.WriteByte(' ')
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
		if block {
			b.WriteByte(' ')
		}
	}
	visit(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// inline elements do not break words apart.
var inline = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.B: true, atom.Code: true,
	atom.Em: true, atom.I: true, atom.Mark: true, atom.Q: true,
	atom.S: true, atom.Small: true, atom.Span: true, atom.Strong: true,
	atom.Sub: true, atom.Sup: true, atom.U: true,
}

// walk visits n and its descendants depth-first in document order. When
// fn returns false the children of that node are skipped.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// hasAttr reports whether the attribute is present, even when empty.
func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
