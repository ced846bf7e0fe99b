// Package panel builds the bookmark box: it loads the bookmark tree,
// turns it into nested collapsible sections and keeps the panel's
// visibility state and favicon cache in the store.
package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nikbrunner/bmbox/internal/favicon"
	"github.com/nikbrunner/bmbox/internal/logging"
	"github.com/nikbrunner/bmbox/internal/model"
	"github.com/nikbrunner/bmbox/internal/provider"
	"github.com/nikbrunner/bmbox/internal/storage"
)

// Surface receives render output. Implementations must not call back
// into the Engine from these methods.
type Surface interface {
	Render(v View)
	SetCollapsed(collapsed bool)
	SetFolderExpanded(id string, expanded bool)
}

// BarSurface is implemented by surfaces that also show the bookmark bar strip.
type BarSurface interface {
	RenderBar(links []Link)
}

// Refresher is what other page components get to trigger a full refresh.
type Refresher interface {
	RefreshAll(ctx context.Context)
}

var _ Refresher = (*Engine)(nil)

type nopSurface struct{}

func (nopSurface) Render(View) {}
func (nopSurface) SetCollapsed(bool) {}
func (nopSurface) SetFolderExpanded(string, bool) {}

// Engine is the bookmark panel controller.
type Engine struct {
	mu       sync.Mutex
	provider provider.Provider
	store    storage.Store
	surface  Surface
	icons    *favicon.Pipeline
	log      *logrus.Entry

	state model.PanelState
	view  View
	gen   uint64 // bumped by every load; stale loads are dropped
}

// Params holds parameters for creating an Engine.
type Params struct {
	Provider provider.Provider // nil behaves as unavailable
	Store    storage.Store
	Surface  Surface           // optional
	Icons    *favicon.Pipeline // optional, built over Store if nil
	Ready    *Ready            // optional, awaited before first use
	Logger   *logrus.Entry     // optional
}

// New waits for the container, loads persisted state and applies the
// collapse state to the surface. It does not load bookmarks.
func New(ctx context.Context, params Params) (*Engine, error) {
	log := params.Logger
	if log == nil {
		log = logging.NewLogger("panel")
	}

	if params.Store == nil {
		return nil, errors.New("panel: store is required")
	}

	if params.Ready != nil {
		if err := params.Ready.Wait(ctx); err != nil {
			log.WithError(err).Warn("bookmark box container not found")
			return nil, err
		}
	}

	state := model.DefaultPanelState()
	if raw, ok := params.Store.Get(storage.KeyPanelState); ok {
		state = model.DecodePanelState(raw)
	}

	icons := params.Icons
	if icons == nil {
		icons = favicon.NewPipeline(favicon.PipelineParams{
			Cache:  favicon.LoadCache(params.Store),
			Logger: log.WithField("component", "favicon"),
		})
	}

	surface := params.Surface
	if surface == nil {
		surface = nopSurface{}
	}

	e := &Engine{
		provider: params.Provider,
		store:    params.Store,
		surface:  surface,
		icons:    icons,
		log:      log,
		state:    state,
		view:     View{Status: StatusLoading, Message: MsgLoading, Collapsed: state.IsCollapsed},
	}
	surface.SetCollapsed(state.IsCollapsed)
	return e, nil
}

// Icons returns the favicon pipeline.
func (e *Engine) Icons() *favicon.Pipeline {
	return e.icons
}

// Collapsed reports whether the panel is collapsed.
func (e *Engine) Collapsed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.IsCollapsed
}

// View returns a copy of the current render tree.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.Clone()
}

// Wait blocks until all background favicon tasks have finished.
func (e *Engine) Wait() {
	e.icons.Wait()
}

// showLoading renders the loading state and returns the new load generation.
func (e *Engine) showLoading() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	e.view = View{Status: StatusLoading, Message: MsgLoading, Collapsed: e.state.IsCollapsed}
	e.surface.Render(e.view.Clone())
	return e.gen
}

// LoadAndRender fetches the tree and renders it. Failures are rendered as
// error states, never returned. A load superseded by a newer one is dropped.
func (e *Engine) LoadAndRender(ctx context.Context) View {
	gen := e.showLoading()

	view := e.load(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return e.view.Clone()
	}
	view.Collapsed = e.state.IsCollapsed
	e.view = view
	e.surface.Render(e.view.Clone())
	return e.view.Clone()
}

func (e *Engine) load(ctx context.Context) View {
	if e.provider == nil {
		e.log.Warn("no bookmarks provider configured")
		return View{Status: StatusError, Message: MsgUnavailable}
	}

	root, err := e.provider.GetTree(ctx)
	if errors.Is(err, provider.ErrUnavailable) {
		e.log.WithError(err).Warn("bookmarks provider unavailable")
		return View{Status: StatusError, Message: MsgUnavailable}
	}
	if err == nil && root == nil {
		err = errors.New("provider returned no tree")
	}
	if err != nil {
		e.log.WithError(err).Error("error loading bookmarks")
		return View{Status: StatusError, Message: MsgLoadFailed}
	}

	view := View{Status: StatusReady, Sections: e.buildSections(root)}
	if len(view.Sections) == 0 {
		view.Status = StatusEmpty
		view.Message = MsgEmpty
	}

	sections, links := view.Counts()
	e.log.WithFields(logrus.Fields{"sections": sections, "links": links}).Debug("bookmarks rendered")
	return view
}

// buildSections turns the top-level folders into sections. The bar folder,
// empty top-level folders and top-level bookmarks are skipped.
func (e *Engine) buildSections(root *model.Node) []*Section {
	var sections []*Section
	for i, child := range root.Children {
		if !child.IsFolder() || child.IsBar() || len(child.Children) == 0 {
			continue
		}
		sections = append(sections, e.buildSection(child, 0, fmt.Sprintf("s%d", i)))
	}
	return sections
}

func (e *Engine) buildSection(folder *model.Node, depth int, path string) *Section {
	id := folder.ID
	if id == "" {
		id = path
	}

	s := &Section{
		ID:       id,
		Title:    folder.Title,
		Depth:    depth,
		Icon:     FolderIcon(depth),
		Children: make([]Entry, 0, len(folder.Children)),
	}

	for i, child := range folder.Children {
		if child.IsFolder() {
			sub := e.buildSection(child, depth+1, fmt.Sprintf("%s.%d", path, i))
			s.Children = append(s.Children, Entry{Section: sub})
			continue
		}
		s.Children = append(s.Children, Entry{Link: e.buildLink(child)})
	}
	return s
}

func (e *Engine) buildLink(leaf *model.Node) *Link {
	domain := favicon.Domain(leaf.URL)
	src, _ := e.icons.Resolve(domain)
	return &Link{
		Title:   leaf.Title,
		URL:     leaf.URL,
		Domain:  domain,
		IconSrc: src,
	}
}

// TogglePanel flips the collapse state, applies it and persists it.
// It returns the new state.
func (e *Engine) TogglePanel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.IsCollapsed = !e.state.IsCollapsed
	e.view.Collapsed = e.state.IsCollapsed
	e.surface.SetCollapsed(e.state.IsCollapsed)

	if err := e.store.Set(storage.KeyPanelState, e.state.Encode()); err != nil {
		e.log.WithError(err).Warn("failed to persist panel state")
	}
	return e.state.IsCollapsed
}

// ToggleFolder flips one section's expanded flag for the current render.
// It returns the new flag, and false for ok if no such section exists.
func (e *Engine) ToggleFolder(id string) (expanded, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.view.FindSection(id)
	if s == nil {
		return false, false
	}
	s.Expanded = !s.Expanded
	e.surface.SetFolderExpanded(id, s.Expanded)
	return s.Expanded, true
}

// RefreshAll clears the favicon cache and its persisted copy, then
// reloads. Background tasks already in flight are not cancelled.
func (e *Engine) RefreshAll(ctx context.Context) {
	if err := e.icons.Cache().Clear(); err != nil {
		e.log.WithError(err).Warn("failed to clear favicon cache")
	}
	e.log.Info("favicon cache cleared, reloading bookmarks")
	e.LoadAndRender(ctx)
}

// Domains returns the distinct domains of every bookmark in the tree,
// bar included, in tree order. Used to warm the cache.
func (e *Engine) Domains(ctx context.Context) ([]string, error) {
	if e.provider == nil {
		return nil, provider.ErrUnavailable
	}
	root, err := e.provider.GetTree(ctx)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, provider.ErrUnavailable
	}
	seen := make(map[string]bool)
	var domains []string
	for _, leaf := range root.Leaves() {
		d := favicon.Domain(leaf.URL)
		if !seen[d] {
			seen[d] = true
			domains = append(domains, d)
		}
	}
	return domains, nil
}

// LoadBar lists every bookmark under the bar folder, subfolders flattened,
// with placeholder icons. Surfaces implementing BarSurface receive it too.
func (e *Engine) LoadBar(ctx context.Context) ([]Link, error) {
	if e.provider == nil {
		return nil, provider.ErrUnavailable
	}
	root, err := e.provider.GetTree(ctx)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, provider.ErrUnavailable
	}

	links := []Link{}
	if bar := root.Bar(); bar != nil {
		for _, leaf := range bar.Leaves() {
			domain := favicon.Domain(leaf.URL)
			links = append(links, Link{
				Title:   leaf.Title,
				URL:     leaf.URL,
				Domain:  domain,
				IconSrc: e.icons.Placeholder(domain),
			})
		}
	}

	if bs, ok := e.surface.(BarSurface); ok {
		bs.RenderBar(links)
	}
	return links, nil
}
