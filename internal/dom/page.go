// Package dom hosts the new-tab page as an HTML node tree: selector
// lookup, click dispatch with bubbling, and the bookmark box surface
// that renders panel views into it.
package dom

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nikbrunner/bmbox/internal/panel"
)

//go:embed newtab.html
var defaultPage string

// ErrNotFound is returned when a selector matches nothing.
var ErrNotFound = errors.New("element not found")

// Page is a parsed HTML document. All access to the tree goes through
// the page lock; event handlers run without it.
type Page struct {
	mu       sync.Mutex
	doc      *html.Node
	handlers map[*html.Node][]Handler
	waiters  map[string][]*panel.Ready
}

// ParsePage parses an HTML document.
func ParsePage(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return &Page{
		doc:      doc,
		handlers: make(map[*html.Node][]Handler),
		waiters:  make(map[string][]*panel.Ready),
	}, nil
}

// DefaultPage returns the built-in new-tab page.
func DefaultPage() *Page {
	p, err := ParsePage(strings.NewReader(defaultPage))
	if err != nil {
		panic(err) // embedded asset
	}
	return p
}

// Document returns the root node. Reads outside Update race with
// surface writes.
func (p *Page) Document() *html.Node {
	return p.doc
}

// Update runs fn with the page lock held.
func (p *Page) Update(fn func(doc *html.Node)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.doc)
}

func compile(selector string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", selector, err)
	}
	return sel, nil
}

// Query returns the first element matching selector.
func (p *Page) Query(selector string) (*html.Node, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n := sel.MatchFirst(p.doc)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return n, nil
}

// QueryAll returns every element matching selector.
func (p *Page) QueryAll(selector string) ([]*html.Node, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return sel.MatchAll(p.doc), nil
}

// ByID returns the element with the given id, or nil.
func (p *Page) ByID(id string) *html.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return byID(p.doc, id)
}

func byID(root *html.Node, id string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			if v, ok := GetAttr(n, "id"); ok && v == id {
				found = n
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

// WhenPresent returns a signal resolved once an element with id exists,
// immediately if it already does.
func (p *Page) WhenPresent(id string) *panel.Ready {
	ready := panel.NewReady()

	p.mu.Lock()
	defer p.mu.Unlock()
	if byID(p.doc, id) != nil {
		ready.Resolve()
		return ready
	}
	p.waiters[id] = append(p.waiters[id], ready)
	return ready
}

// AppendHTML parses fragment in the context of the element matching
// selector and appends the result to it. Pending WhenPresent signals are
// resolved for ids that now exist.
func (p *Page) AppendHTML(selector, fragment string) error {
	sel, err := compile(selector)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	parent := sel.MatchFirst(p.doc)
	if parent == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, selector)
	}

	fragCtx := &html.Node{Type: html.ElementNode, Data: parent.Data, DataAtom: parent.DataAtom}
	if fragCtx.DataAtom == 0 {
		fragCtx.Data, fragCtx.DataAtom = "div", atom.Div
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), fragCtx)
	if err != nil {
		return fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}

	for id, waiters := range p.waiters {
		if byID(p.doc, id) == nil {
			continue
		}
		for _, r := range waiters {
			r.Resolve()
		}
		delete(p.waiters, id)
	}
	return nil
}

// Render writes the document as HTML.
func (p *Page) Render(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return html.Render(w, p.doc)
}

// String returns the rendered document.
func (p *Page) String() string {
	var buf bytes.Buffer
	_ = p.Render(&buf)
	return buf.String()
}
