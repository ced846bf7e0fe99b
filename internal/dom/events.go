package dom

import (
	"golang.org/x/net/html"
)

// Event is a click travelling from its target up to the document.
type Event struct {
	Target        *html.Node
	CurrentTarget *html.Node
	stopped       bool
}

// StopPropagation keeps the event from reaching further ancestors.
// Other handlers on the current node still run.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Handler handles an Event.
type Handler func(e *Event)

// On registers h for clicks on n or its descendants.
func (p *Page) On(n *html.Node, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[n] = append(p.handlers[n], h)
}

// forget drops handlers on n and its subtree. Caller holds the lock.
func (p *Page) forget(n *html.Node) {
	delete(p.handlers, n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.forget(c)
	}
}

// Click dispatches a click event at target.
func (p *Page) Click(target *html.Node) {
	type hop struct {
		node     *html.Node
		handlers []Handler
	}

	// Snapshot the propagation path so handlers may mutate the tree
	p.mu.Lock()
	var path []hop
	for n := target; n != nil; n = n.Parent {
		if hs := p.handlers[n]; len(hs) > 0 {
			path = append(path, hop{node: n, handlers: append([]Handler(nil), hs...)})
		}
	}
	p.mu.Unlock()

	e := &Event{Target: target}
	for _, h := range path {
		e.CurrentTarget = h.node
		for _, fn := range h.handlers {
			fn(e)
		}
		if e.stopped {
			return
		}
	}
}

// ClickSelector clicks the first element matching selector.
func (p *Page) ClickSelector(selector string) error {
	n, err := p.Query(selector)
	if err != nil {
		return err
	}
	p.Click(n)
	return nil
}
