package tui

import (
	"context"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nikbrunner/bmbox/internal/panel"
	"github.com/nikbrunner/bmbox/internal/search"
)

// Engine is the part of the panel engine the TUI drives.
type Engine interface {
	View() panel.View
	Collapsed() bool
	LoadAndRender(ctx context.Context) panel.View
	TogglePanel() bool
	ToggleFolder(id string) (expanded, ok bool)
	RefreshAll(ctx context.Context)
}

// MessageType determines the styling of status messages.
type MessageType int

const (
	MessageInfo MessageType = iota
	MessageSuccess
	MessageWarning
	MessageError
)

// ViewChangedMsg carries a freshly rendered view into the update loop.
type ViewChangedMsg struct {
	View panel.View
}

type refreshedMsg struct {
	View panel.View
}

type openedMsg struct {
	URL string
	Err error
}

// App is the main Bubble Tea model.
type App struct {
	ctx    context.Context
	engine Engine
	keys   KeyMap
	styles Styles
	opener func(url string) error
	copier func(text string) error

	view   panel.View
	rows   []Row
	cursor int

	filterInput textinput.Model
	filtering   bool // typing into the filter
	matches     []search.Result

	showHelp    bool
	messageText string
	messageType MessageType

	width  int
	height int

	// For gg command
	lastKeyWasG bool
}

// AppParams holds parameters for creating a new App.
type AppParams struct {
	Context context.Context // optional, used for loads
	Engine  Engine
	Keys    *KeyMap                 // optional, uses DefaultKeyMap if nil
	Styles  *Styles                 // optional, uses DefaultStyles if nil
	Opener  func(url string) error  // optional, uses OpenURL if nil
	Copier  func(text string) error // optional, uses the system clipboard if nil
}

// NewApp creates a new App with the given parameters.
func NewApp(params AppParams) App {
	keys := DefaultKeyMap()
	if params.Keys != nil {
		keys = *params.Keys
	}

	styles := DefaultStyles()
	if params.Styles != nil {
		styles = *params.Styles
	}

	ctx := params.Context
	if ctx == nil {
		ctx = context.Background()
	}

	opener := params.Opener
	if opener == nil {
		opener = OpenURL
	}
	copier := params.Copier
	if copier == nil {
		copier = clipboard.WriteAll
	}

	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.CharLimit = 100

	app := App{
		ctx:         ctx,
		engine:      params.Engine,
		keys:        keys,
		styles:      styles,
		opener:      opener,
		copier:      copier,
		filterInput: ti,
	}
	app.setView(params.Engine.View())
	return app
}

// setView replaces the displayed view and keeps the cursor in range.
func (a *App) setView(v panel.View) {
	a.view = v
	a.rows = flattenView(v)
	if a.filterInput.Value() != "" {
		a.matches = search.FuzzySearchLinks(a.view.Links(), a.filterInput.Value())
	}
	a.clampCursor()
}

func (a *App) clampCursor() {
	n := len(a.Rows())
	if a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

// Rows returns the rows currently listed, filter results included.
func (a App) Rows() []Row {
	if a.filterInput.Value() == "" {
		return a.rows
	}
	rows := make([]Row, len(a.matches))
	for i, m := range a.matches {
		link := m.Link
		rows[i] = Row{Kind: RowLink, Link: &link, MatchedIndexes: m.MatchedIndexes}
	}
	return rows
}

// Cursor returns the current cursor position.
func (a App) Cursor() int {
	return a.cursor
}

// CurrentView returns the view being displayed.
func (a App) CurrentView() panel.View {
	return a.view
}

// Message returns the current status message.
func (a App) Message() (string, MessageType) {
	return a.messageText, a.messageType
}

// Filtering reports whether the filter input has focus.
func (a App) Filtering() bool {
	return a.filtering
}

func (a *App) setMessage(mt MessageType, text string) {
	a.messageType = mt
	a.messageText = text
}

func (a App) selected() (Row, bool) {
	rows := a.Rows()
	if a.cursor < 0 || a.cursor >= len(rows) {
		return Row{}, false
	}
	return rows[a.cursor], true
}

// Init loads the bookmarks.
func (a App) Init() tea.Cmd {
	return a.loadCmd()
}

func (a App) loadCmd() tea.Cmd {
	engine, ctx := a.engine, a.ctx
	return func() tea.Msg {
		return ViewChangedMsg{View: engine.LoadAndRender(ctx)}
	}
}

func (a App) refreshCmd() tea.Cmd {
	engine, ctx := a.engine, a.ctx
	return func() tea.Msg {
		engine.RefreshAll(ctx)
		return refreshedMsg{View: engine.View()}
	}
}

func (a App) openCmd(url string) tea.Cmd {
	opener := a.opener
	return func() tea.Msg {
		return openedMsg{URL: url, Err: opener(url)}
	}
}

// Update handles messages and returns the updated model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case ViewChangedMsg:
		a.setView(msg.View)
		return a, nil

	case refreshedMsg:
		a.setView(msg.View)
		a.setMessage(MessageSuccess, "Favicon cache cleared")
		return a, nil

	case openedMsg:
		if msg.Err != nil {
			a.setMessage(MessageError, "Failed to open: "+msg.Err.Error())
		} else {
			a.setMessage(MessageInfo, "Opened "+msg.URL)
		}
		return a, nil

	case tea.KeyMsg:
		if a.filtering {
			return a.updateFilter(msg)
		}
		return a.updateNormal(msg)
	}

	return a, nil
}

func (a App) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.filtering = false
		a.filterInput.Blur()
		a.filterInput.SetValue("")
		a.matches = nil
		a.cursor = 0
		return a, nil
	case tea.KeyEnter:
		a.filtering = false
		a.filterInput.Blur()
		if row, ok := a.selected(); ok && row.Link != nil {
			return a, a.openCmd(row.Link.URL)
		}
		return a, nil
	case tea.KeyUp, tea.KeyCtrlP:
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil
	case tea.KeyDown, tea.KeyCtrlN:
		if a.cursor < len(a.Rows())-1 {
			a.cursor++
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.filterInput, cmd = a.filterInput.Update(msg)
	a.matches = search.FuzzySearchLinks(a.view.Links(), a.filterInput.Value())
	a.cursor = 0
	return a, cmd
}

func (a App) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key dismisses the previous message
	a.messageText = ""

	// Handle gg sequence
	if key.Matches(msg, a.keys.Top) {
		if a.lastKeyWasG {
			a.cursor = 0
			a.lastKeyWasG = false
			return a, nil
		}
		a.lastKeyWasG = true
		return a, nil
	}
	a.lastKeyWasG = false

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Help):
		a.showHelp = !a.showHelp
		return a, nil

	case key.Matches(msg, a.keys.TogglePanel):
		if a.engine.TogglePanel() {
			a.setMessage(MessageInfo, "Panel collapsed")
		} else {
			a.setMessage(MessageInfo, "Panel expanded")
		}
		a.setView(a.engine.View())
		return a, nil

	case key.Matches(msg, a.keys.Reload):
		return a, a.loadCmd()

	case key.Matches(msg, a.keys.Refresh):
		a.setMessage(MessageInfo, "Refreshing favicons...")
		return a, a.refreshCmd()

	case key.Matches(msg, a.keys.Cancel):
		if a.filterInput.Value() != "" {
			a.filterInput.SetValue("")
			a.matches = nil
			a.cursor = 0
		}
		a.showHelp = false
		return a, nil
	}

	// Everything below works on the panel content
	if a.view.Collapsed {
		return a, nil
	}

	switch {
	case key.Matches(msg, a.keys.Down):
		if a.cursor < len(a.Rows())-1 {
			a.cursor++
		}

	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}

	case key.Matches(msg, a.keys.Bottom):
		if n := len(a.Rows()); n > 0 {
			a.cursor = n - 1
		}

	case key.Matches(msg, a.keys.Filter):
		a.filtering = true
		a.filterInput.Focus()
		return a, textinput.Blink

	case key.Matches(msg, a.keys.Right):
		row, ok := a.selected()
		if !ok {
			break
		}
		if row.IsSection() {
			if !row.Section.Expanded {
				a.toggleFolder(row.Section.ID)
			}
			break
		}
		return a, a.openCmd(row.Link.URL)

	case key.Matches(msg, a.keys.Open):
		row, ok := a.selected()
		if !ok {
			break
		}
		if row.IsSection() {
			a.toggleFolder(row.Section.ID)
			break
		}
		return a, a.openCmd(row.Link.URL)

	case key.Matches(msg, a.keys.Left):
		row, ok := a.selected()
		if !ok {
			break
		}
		if row.IsSection() && row.Section.Expanded {
			a.toggleFolder(row.Section.ID)
			break
		}
		a.moveToParent(row)

	case key.Matches(msg, a.keys.YankURL):
		row, ok := a.selected()
		if !ok || row.Link == nil {
			break
		}
		if err := a.copier(row.Link.URL); err != nil {
			a.setMessage(MessageError, "Failed to copy: "+err.Error())
			break
		}
		a.setMessage(MessageSuccess, "Copied: "+row.Link.URL)
	}

	return a, nil
}

func (a *App) toggleFolder(id string) {
	if _, ok := a.engine.ToggleFolder(id); !ok {
		a.setMessage(MessageWarning, "Folder no longer exists")
	}
	a.setView(a.engine.View())
}

func (a *App) moveToParent(row Row) {
	if row.Parent == "" {
		return
	}
	for i, r := range a.Rows() {
		if r.IsSection() && r.Section.ID == row.Parent {
			a.cursor = i
			return
		}
	}
}

// View renders the UI.
func (a App) View() string {
	return a.renderView()
}
