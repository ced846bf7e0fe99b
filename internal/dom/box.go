package dom

import (
	"errors"
	"sync"

	"golang.org/x/net/html"

	"github.com/nikbrunner/bmbox/internal/panel"
)

// Element ids and classes the host page provides.
const (
	BoxID        = "aesthetic-bookmark-box"
	ToggleID     = "bookmark-box-toggle"
	HeaderClass  = "bookmark-box-header"
	ContentClass = "bookmark-box-content"
	BarListClass = "bookmark-list"
	foldersClass = "bookmark-folders"
	itemsClass   = "bookmark-items"
	folderIDAttr = "data-folder-id"
	toggleOpened = "−"
	toggleClosed = "+"
	folderArrow  = "▶"
	emptyIcon    = "📚"
	errorIcon    = "⚠️"
)

// ErrNoContainer is returned when the page lacks the bookmark box markup.
var ErrNoContainer = errors.New("bookmark box container not found")

// Controller is what the box's click handlers drive.
type Controller interface {
	TogglePanel() bool
	ToggleFolder(id string) (expanded, ok bool)
}

// Box renders panel views into the page's bookmark box container.
// It implements panel.Surface and panel.BarSurface.
type Box struct {
	page    *Page
	box     *html.Node
	content *html.Node
	header  *html.Node
	toggle  *html.Node

	mu       sync.Mutex
	ctrl     Controller
	folders  map[string]*html.Node
	onChange func()
}

// NewBox attaches to the container in page. The header and toggle are
// optional; the content element is not.
func NewBox(page *Page) (*Box, error) {
	b := &Box{page: page, folders: make(map[string]*html.Node)}

	var err error
	page.Update(func(doc *html.Node) {
		b.box = byID(doc, BoxID)
		if b.box == nil {
			err = ErrNoContainer
			return
		}
		b.content = firstByClass(b.box, ContentClass)
		if b.content == nil {
			err = ErrNoContainer
			return
		}
		b.header = firstByClass(b.box, HeaderClass)
		b.toggle = byID(doc, ToggleID)
		if b.header != nil {
			SetAttr(b.header, "style", "cursor: pointer")
		}
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// OnChange registers fn to run after every change to the box.
func (b *Box) OnChange(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

func (b *Box) changed() {
	b.mu.Lock()
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Bind installs the header and toggle click handlers. A click on the
// toggle flips the panel once and stops there; a click anywhere else in
// the header flips it too.
func (b *Box) Bind(ctrl Controller) {
	b.mu.Lock()
	b.ctrl = ctrl
	b.mu.Unlock()

	if b.toggle != nil {
		b.page.On(b.toggle, func(e *Event) {
			e.StopPropagation()
			ctrl.TogglePanel()
		})
	}
	if b.header != nil {
		b.page.On(b.header, func(e *Event) {
			if e.Target != b.toggle {
				ctrl.TogglePanel()
			}
		})
	}
}

func (b *Box) controller() Controller {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctrl
}

// ClickHeader clicks the box header.
func (b *Box) ClickHeader() {
	if b.header != nil {
		b.page.Click(b.header)
	}
}

// ClickToggle clicks the toggle control.
func (b *Box) ClickToggle() {
	if b.toggle != nil {
		b.page.Click(b.toggle)
	}
}

// ClickFolder clicks the header of the folder with the given section id.
func (b *Box) ClickFolder(id string) bool {
	b.mu.Lock()
	folder := b.folders[id]
	b.mu.Unlock()
	if folder == nil {
		return false
	}

	var header *html.Node
	b.page.Update(func(*html.Node) {
		header = firstByClass(folder, "bookmark-folder-header")
	})
	if header == nil {
		return false
	}
	b.page.Click(header)
	return true
}

// SetCollapsed implements panel.Surface.
func (b *Box) SetCollapsed(collapsed bool) {
	b.page.Update(func(*html.Node) {
		SetClass(b.box, "collapsed", collapsed)
		SetClass(b.box, "expanded", !collapsed)
		if b.toggle != nil {
			if collapsed {
				SetText(b.toggle, toggleClosed)
			} else {
				SetText(b.toggle, toggleOpened)
			}
		}
	})
	b.changed()
}

// SetFolderExpanded implements panel.Surface.
func (b *Box) SetFolderExpanded(id string, expanded bool) {
	b.mu.Lock()
	folder := b.folders[id]
	b.mu.Unlock()
	if folder == nil {
		return
	}
	b.page.Update(func(*html.Node) {
		SetClass(folder, "expanded", expanded)
	})
	b.changed()
}

// Render implements panel.Surface.
func (b *Box) Render(v panel.View) {
	folders := make(map[string]*html.Node)

	b.page.Update(func(*html.Node) {
		foldersEl, itemsEl := b.containers()
		for _, n := range RemoveChildren(foldersEl) {
			b.page.forget(n)
		}
		for _, n := range RemoveChildren(itemsEl) {
			b.page.forget(n)
		}

		switch v.Status {
		case panel.StatusLoading:
			foldersEl.AppendChild(message("bookmark-box-loading", v.Message))
		case panel.StatusEmpty:
			foldersEl.AppendChild(message("bookmark-box-empty", emptyIcon+" "+v.Message))
		case panel.StatusError:
			foldersEl.AppendChild(message("bookmark-box-empty", errorIcon+" "+v.Message))
		case panel.StatusReady:
			for _, s := range v.Sections {
				foldersEl.AppendChild(b.folderElement(s, folders))
			}
		}
	})

	b.mu.Lock()
	b.folders = folders
	b.mu.Unlock()

	b.changed()
}

// containers returns the folders and items lists, recreating the content
// structure when either is missing. Caller holds the page lock.
func (b *Box) containers() (folders, items *html.Node) {
	folders = firstByClass(b.content, foldersClass)
	items = firstByClass(b.content, itemsClass)
	if folders != nil && items != nil {
		return folders, items
	}

	for _, n := range RemoveChildren(b.content) {
		b.page.forget(n)
	}
	folders = Element("div", Attr{"class", foldersClass})
	items = Element("div", Attr{"class", itemsClass})
	Append(b.content, folders, items)
	return folders, items
}

func message(class, text string) *html.Node {
	return Append(Element("div", Attr{"class", class}), Text(text))
}

// folderElement builds the markup for one section. Caller holds the page lock.
func (b *Box) folderElement(s *panel.Section, index map[string]*html.Node) *html.Node {
	class := "bookmark-folder"
	if s.Expanded {
		class += " expanded"
	}
	folder := Element("div", Attr{"class", class}, Attr{folderIDAttr, s.ID})
	index[s.ID] = folder

	header := Element("div", Attr{"class", "bookmark-folder-header"})
	title := Append(Element("div", Attr{"class", "bookmark-folder-title"}),
		Append(Element("span", Attr{"class", "bookmark-folder-icon"}), Text(s.Icon)),
		Append(Element("span"), Text(s.Title)),
	)
	toggle := Append(Element("span", Attr{"class", "bookmark-folder-toggle"}), Text(folderArrow))
	Append(header, title, toggle)

	items := Element("div", Attr{"class", "bookmark-folder-items"})
	for _, e := range s.Children {
		switch {
		case e.Link != nil:
			items.AppendChild(linkElement(e.Link))
		case e.Section != nil:
			items.AppendChild(b.folderElement(e.Section, index))
		}
	}
	Append(folder, header, items)

	id := s.ID
	b.page.handlers[header] = append(b.page.handlers[header], func(e *Event) {
		e.StopPropagation()
		if ctrl := b.controller(); ctrl != nil {
			ctrl.ToggleFolder(id)
		}
	})
	return folder
}

func linkElement(l *panel.Link) *html.Node {
	a := Element("a",
		Attr{"class", "bookmark-item"},
		Attr{"href", l.URL},
		Attr{"target", "_blank"},
		Attr{"title", l.Title},
	)
	return Append(a,
		Element("img", Attr{"class", "bookmark-favicon"}, Attr{"alt", ""}, Attr{"src", l.IconSrc}),
		Append(Element("div", Attr{"class", "bookmark-title"}), Text(l.Title)),
		Append(Element("div", Attr{"class", "bookmark-url"}), Text(l.Domain)),
	)
}

// RenderBar implements panel.BarSurface. Pages without a bar list are left alone.
func (b *Box) RenderBar(links []panel.Link) {
	rendered := false
	b.page.Update(func(doc *html.Node) {
		list := firstByClass(doc, BarListClass)
		if list == nil {
			return
		}
		RemoveChildren(list)
		for _, l := range links {
			a := Append(Element("a",
				Attr{"href", l.URL},
				Attr{"title", l.Title},
				Attr{"target", "_self"},
			), Element("img", Attr{"src", l.IconSrc}, Attr{"alt", l.Title}, Attr{"class", "bookmark-icon"}))
			list.AppendChild(Append(Element("li"), a))
		}
		rendered = true
	})
	if rendered {
		b.changed()
	}
}

// firstByClass returns the first element below root (inclusive) with class c.
func firstByClass(root *html.Node, c string) *html.Node {
	if root.Type == html.ElementNode && HasClass(root, c) {
		return root
	}
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if found := firstByClass(n, c); found != nil {
			return found
		}
	}
	return nil
}
