// Package dom holds the client's page document: the server-rendered shell
// parsed with golang.org/x/net/html, acting as the host for the active
// theme style.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dmitrijs2005/usertheme/internal/common"
)

const emptyPage = `<!DOCTYPE html><html><head></head><body></body></html>`

// styleCloseTag matches what would end a style element's raw text early.
var styleCloseTag = regexp.MustCompile(`(?i)</style`)

// Document is safe for concurrent use.
type Document struct {
	mu   sync.Mutex
	root *html.Node
	head *html.Node
	body *html.Node
}

// Parse reads an HTML page. The parser always synthesizes head and body.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	d := &Document{root: root}
	d.head = findFirst(root, func(n *html.Node) bool { return n.DataAtom == atom.Head })
	d.body = findFirst(root, func(n *html.Node) bool { return n.DataAtom == atom.Body })
	if d.head == nil || d.body == nil {
		return nil, fmt.Errorf("parse page: missing head or body")
	}
	return d, nil
}

func ParseString(page string) (*Document, error) {
	return Parse(strings.NewReader(page))
}

// New returns an empty page.
func New() *Document {
	d, _ := ParseString(emptyPage)
	return d
}

// InjectStyle creates or updates the managed style element id.
func (d *Document) InjectStyle(id, version, css string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.byID(id)
	if n == nil {
		n = &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
		setAttr(n, "id", id)
		d.head.AppendChild(n)
	}
	setAttr(n, common.ManagedByAttr, common.ManagedByValue)
	setAttr(n, "data-version", version)
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: css})
}

// RemoveStyle removes the element id. The official theme is never removed.
func (d *Document) RemoveStyle(id string) bool {
	if id == common.OfficialStyleID {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.byID(id)
	if n == nil || n.Parent == nil {
		return false
	}
	n.Parent.RemoveChild(n)
	return true
}

// RemoveAllManagedStyles removes every element tagged as managed plus any
// legacy element whose id starts with the user theme prefix.
func (d *Document) RemoveAllManagedStyles() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	doomed := findAll(d.root, func(n *html.Node) bool {
		id := attr(n, "id")
		if id == common.OfficialStyleID {
			return false
		}
		return attr(n, common.ManagedByAttr) == common.ManagedByValue ||
			strings.HasPrefix(id, common.StyleIDPrefix)
	})
	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return len(doomed)
}

// InlineStyle returns the text of the style the shell rendered for version.
func (d *Document) InlineStyle(version string) (string, bool) {
	return d.StyleText(common.StyleID(version))
}

func (d *Document) StyleText(id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.byID(id)
	if n == nil || n.DataAtom != atom.Style {
		return "", false
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String(), true
}

// ManagedStyleIDs lists the ids of managed styles in document order.
func (d *Document) ManagedStyleIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ids []string
	for _, n := range findAll(d.root, func(n *html.Node) bool {
		return attr(n, common.ManagedByAttr) == common.ManagedByValue
	}) {
		ids = append(ids, attr(n, "id"))
	}
	return ids
}

// SetBodyClass adds or removes class on the body element.
func (d *Document) SetBodyClass(class string, on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	classes := strings.Fields(attr(d.body, "class"))
	has := slices.Contains(classes, class)
	switch {
	case on && !has:
		classes = append(classes, class)
	case !on && has:
		classes = slices.DeleteFunc(classes, func(c string) bool { return c == class })
	default:
		return
	}

	if len(classes) == 0 {
		removeAttr(d.body, "class")
		return
	}
	setAttr(d.body, "class", strings.Join(classes, " "))
}

func (d *Document) HasBodyClass(class string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Contains(strings.Fields(attr(d.body, "class")), class)
}

// Render writes the document as HTML.
// Render writes the page. Style text keeps the raw stylesheet in the tree;
// only the serialized form has its closing-tag sequences escaped.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	styles := findAll(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Style })
	var saved []*html.Node
	var raw []string
	for _, el := range styles {
		for c := el.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode && styleCloseTag.MatchString(c.Data) {
				saved = append(saved, c)
				raw = append(raw, c.Data)
				c.Data = styleCloseTag.ReplaceAllString(c.Data, `<\/style`)
			}
		}
	}
	defer func() {
		for i, c := range saved {
			c.Data = raw[i]
		}
	}()

	return html.Render(w, d.root)
}

func (d *Document) String() string {
	var buf bytes.Buffer
	_ = d.Render(&buf)
	return buf.String()
}

func (d *Document) byID(id string) *html.Node {
	return findFirst(d.root, func(n *html.Node) bool { return attr(n, "id") == id })
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}
