package tui_test

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nikbrunner/bmbox/internal/favicon"
	"github.com/nikbrunner/bmbox/internal/logging"
	"github.com/nikbrunner/bmbox/internal/model"
	"github.com/nikbrunner/bmbox/internal/panel"
	"github.com/nikbrunner/bmbox/internal/provider"
	"github.com/nikbrunner/bmbox/internal/storage"
	"github.com/nikbrunner/bmbox/internal/tui"
)

func leaf(title, url string) *model.Node {
	return model.NewLeaf(model.NewLeafParams{Title: title, URL: url})
}

func testTree() *model.Node {
	return model.NewFolder(model.NewFolderParams{ID: "0", Children: []*model.Node{
		model.NewFolder(model.NewFolderParams{ID: "1", Title: "Bookmarks bar", Children: []*model.Node{
			leaf("Go", "https://go.dev"),
		}}),
		model.NewFolder(model.NewFolderParams{ID: "2", Title: "Dev", Children: []*model.Node{
			leaf("GitHub", "https://github.com"),
			leaf("Go Docs", "https://pkg.go.dev"),
			model.NewFolder(model.NewFolderParams{ID: "3", Title: "Tools", Children: []*model.Node{
				leaf("Example", "https://example.com"),
			}}),
		}}),
		model.NewFolder(model.NewFolderParams{ID: "4", Title: "Reading", Children: []*model.Node{
			leaf("Blog", "https://blog.example.org"),
		}}),
	}})
}

type testEnv struct {
	engine *panel.Engine
	store  *storage.MemoryStore
	opened []string
	copied []string
}

// newTestEnv builds an engine over testTree. The panel starts expanded
// unless collapsed is set.
func newTestEnv(t *testing.T, collapsed bool) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore()
	if !collapsed {
		if err := store.Set(storage.KeyPanelState, `{"isCollapsed":false}`); err != nil {
			t.Fatal(err)
		}
	}
	icons := favicon.NewPipeline(favicon.PipelineParams{
		Cache: favicon.LoadCache(store),
		Fetcher: favicon.FetcherFunc(func(ctx context.Context, iconURL string) (string, error) {
			return "data:image/png;base64,AA", nil
		}),
		Logger: logging.Discard(),
	})
	engine, err := panel.New(context.Background(), panel.Params{
		Provider: provider.Static{Root: testTree()},
		Store:    store,
		Icons:    icons,
		Logger:   logging.Discard(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(engine.Wait)
	return &testEnv{engine: engine, store: store}
}

func (e *testEnv) newApp(t *testing.T) tui.App {
	t.Helper()
	app := tui.NewApp(tui.AppParams{
		Engine: e.engine,
		Opener: func(url string) error {
			e.opened = append(e.opened, url)
			return nil
		},
		Copier: func(text string) error {
			e.copied = append(e.copied, text)
			return nil
		},
	})
	return run(app, app.Init())
}

// run executes cmd and feeds its message back into the app.
func run(app tui.App, cmd tea.Cmd) tui.App {
	if cmd == nil {
		return app
	}
	updated, _ := app.Update(cmd())
	return updated.(tui.App)
}

func press(app tui.App, keys string) (tui.App, tea.Cmd) {
	var cmd tea.Cmd
	for _, r := range keys {
		var updated tea.Model
		updated, cmd = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		app = updated.(tui.App)
	}
	return app, cmd
}

func send(app tui.App, keyType tea.KeyType) (tui.App, tea.Cmd) {
	updated, cmd := app.Update(tea.KeyMsg{Type: keyType})
	return updated.(tui.App), cmd
}

func titles(app tui.App) []string {
	var out []string
	for _, r := range app.Rows() {
		out = append(out, r.Title())
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApp_InitLoadsSections(t *testing.T) {
	env := newTestEnv(t, false)
	app := env.newApp(t)

	if app.CurrentView().Status != panel.StatusReady {
		t.Fatalf("expected ready view, got %s", app.CurrentView().Status)
	}
	want := []string{"Dev", "Reading"}
	if got := titles(app); !equalStrings(got, want) {
		t.Errorf("expected rows %v, got %v", want, got)
	}
}

func TestApp_Navigation_JK(t *testing.T) {
	app := newTestEnv(t, false).newApp(t)

	app, _ = press(app, "j")
	if app.Cursor() != 1 {
		t.Errorf("after j, expected cursor 1, got %d", app.Cursor())
	}

	// j at bottom should stay (no wrap)
	app, _ = press(app, "j")
	if app.Cursor() != 1 {
		t.Errorf("j at bottom should stay at 1, got %d", app.Cursor())
	}

	app, _ = press(app, "kk")
	if app.Cursor() != 0 {
		t.Errorf("k at top should stay at 0, got %d", app.Cursor())
	}
}

func TestApp_Navigation_GG_G(t *testing.T) {
	app := newTestEnv(t, false).newApp(t)
	app, _ = press(app, "l") // expand Dev

	app, _ = press(app, "G")
	if want := len(app.Rows()) - 1; app.Cursor() != want {
		t.Errorf("after G, expected cursor %d, got %d", want, app.Cursor())
	}

	// Single g does nothing
	app, _ = press(app, "g")
	if app.Cursor() == 0 {
		t.Error("single g should not move to top")
	}

	app, _ = press(app, "g")
	if app.Cursor() != 0 {
		t.Errorf("after gg, expected cursor 0, got %d", app.Cursor())
	}
}

func TestApp_ExpandAndCollapseFolder(t *testing.T) {
	env := newTestEnv(t, false)
	app := env.newApp(t)

	app, _ = press(app, "l")
	want := []string{"Dev", "GitHub", "Go Docs", "Tools", "Reading"}
	if got := titles(app); !equalStrings(got, want) {
		t.Fatalf("expected rows %v, got %v", want, got)
	}
	if s := env.engine.View().FindSection("2"); s == nil || !s.Expanded {
		t.Error("expected engine to track Dev as expanded")
	}

	// l on an expanded folder keeps it open
	app, _ = press(app, "l")
	if len(app.Rows()) != 5 {
		t.Errorf("l on expanded folder should not collapse it, rows %v", titles(app))
	}

	// Nested folder
	app, _ = press(app, "jjjl")
	want = []string{"Dev", "GitHub", "Go Docs", "Tools", "Example", "Reading"}
	if got := titles(app); !equalStrings(got, want) {
		t.Fatalf("expected rows %v, got %v", want, got)
	}
	if app.Rows()[4].Depth != 2 {
		t.Errorf("expected Example at depth 2, got %d", app.Rows()[4].Depth)
	}

	// h on a child moves to its parent, h again collapses
	app, _ = press(app, "j")
	app, _ = press(app, "h")
	if app.Cursor() != 3 {
		t.Errorf("h on child should move to parent row 3, got %d", app.Cursor())
	}
	app, _ = press(app, "h")
	want = []string{"Dev", "GitHub", "Go Docs", "Tools", "Reading"}
	if got := titles(app); !equalStrings(got, want) {
		t.Errorf("expected Tools collapsed, got %v", got)
	}
}

func TestApp_EnterTogglesFolderAndOpensLink(t *testing.T) {
	env := newTestEnv(t, false)
	app := env.newApp(t)

	app, _ = send(app, tea.KeyEnter)
	if len(app.Rows()) != 5 {
		t.Fatalf("enter on folder should expand it, rows %v", titles(app))
	}

	app, _ = press(app, "j")
	app, cmd := send(app, tea.KeyEnter)
	if cmd == nil {
		t.Fatal("enter on link should return an open command")
	}
	app = run(app, cmd)

	if !equalStrings(env.opened, []string{"https://github.com"}) {
		t.Errorf("expected github opened, got %v", env.opened)
	}
	if text, _ := app.Message(); text != "Opened https://github.com" {
		t.Errorf("unexpected message %q", text)
	}

	// enter on the expanded folder collapses it
	app, _ = press(app, "k")
	app, _ = send(app, tea.KeyEnter)
	if len(app.Rows()) != 2 {
		t.Errorf("enter on expanded folder should collapse it, rows %v", titles(app))
	}
}

func TestApp_OpenError(t *testing.T) {
	env := newTestEnv(t, false)
	app := tui.NewApp(tui.AppParams{
		Engine: env.engine,
		Opener: func(string) error { return errors.New("no browser") },
	})
	app = run(app, app.Init())

	app, _ = press(app, "lj")
	app, cmd := press(app, "l")
	app = run(app, cmd)

	text, mt := app.Message()
	if mt != tui.MessageError || text != "Failed to open: no browser" {
		t.Errorf("expected open error message, got %q (%d)", text, mt)
	}
}

func TestApp_YankURL(t *testing.T) {
	env := newTestEnv(t, false)
	app := env.newApp(t)

	// Yanking a folder does nothing
	app, _ = press(app, "Y")
	if len(env.copied) != 0 {
		t.Errorf("yank on folder should copy nothing, got %v", env.copied)
	}

	app, _ = press(app, "ljjY")
	if !equalStrings(env.copied, []string{"https://pkg.go.dev"}) {
		t.Errorf("expected pkg.go.dev copied, got %v", env.copied)
	}
	text, mt := app.Message()
	if mt != tui.MessageSuccess || text != "Copied: https://pkg.go.dev" {
		t.Errorf("unexpected message %q (%d)", text, mt)
	}

	// Next key clears the message
	app, _ = press(app, "k")
	if text, _ := app.Message(); text != "" {
		t.Errorf("expected message cleared, got %q", text)
	}
}

func TestApp_TogglePanel(t *testing.T) {
	env := newTestEnv(t, false)
	app := env.newApp(t)

	app, _ = send(app, tea.KeySpace)
	if !env.engine.Collapsed() || !app.CurrentView().Collapsed {
		t.Fatal("space should collapse the panel")
	}
	raw, _ := env.store.Get(storage.KeyPanelState)
	if raw != `{"isCollapsed":true}` {
		t.Errorf("expected collapsed state persisted, got %s", raw)
	}

	// Content keys are ignored while collapsed
	app, _ = press(app, "j")
	if app.Cursor() != 0 {
		t.Errorf("j while collapsed should not move, got %d", app.Cursor())
	}

	app, _ = send(app, tea.KeyTab)
	if env.engine.Collapsed() {
		t.Error("tab should expand the panel again")
	}
	if text, _ := app.Message(); text != "Panel expanded" {
		t.Errorf("unexpected message %q", text)
	}
}

func TestApp_StartsCollapsedByDefault(t *testing.T) {
	app := newTestEnv(t, true).newApp(t)

	if !app.CurrentView().Collapsed {
		t.Error("expected panel collapsed with no stored state")
	}
}

func TestApp_Filter(t *testing.T) {
	env := newTestEnv(t, false)
	app := env.newApp(t)

	app, _ = press(app, "/")
	if !app.Filtering() {
		t.Fatal("expected filter mode after /")
	}

	// Filter covers links in collapsed folders too
	updated, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("blog")})
	app = updated.(tui.App)
	if got := titles(app); !equalStrings(got, []string{"Blog"}) {
		t.Fatalf("expected only Blog, got %v", got)
	}
	if len(app.Rows()[0].MatchedIndexes) != 4 {
		t.Errorf("expected 4 matched indexes, got %v", app.Rows()[0].MatchedIndexes)
	}

	app, cmd := send(app, tea.KeyEnter)
	if app.Filtering() {
		t.Error("enter should leave filter input")
	}
	run(app, cmd)
	if !equalStrings(env.opened, []string{"https://blog.example.org"}) {
		t.Errorf("expected blog opened, got %v", env.opened)
	}

	// Esc outside the input clears the results
	app, _ = send(app, tea.KeyEsc)
	if got := titles(app); !equalStrings(got, []string{"Dev", "Reading"}) {
		t.Errorf("expected sections after clearing filter, got %v", got)
	}
}

func TestApp_FilterEscCancels(t *testing.T) {
	app := newTestEnv(t, false).newApp(t)

	app, _ = press(app, "/")
	updated, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("go")})
	app = updated.(tui.App)
	if len(app.Rows()) == 0 {
		t.Fatal("expected matches for go")
	}

	app, _ = send(app, tea.KeyEsc)
	if app.Filtering() {
		t.Error("esc should leave filter mode")
	}
	if len(app.Rows()) != 2 {
		t.Errorf("esc should restore section rows, got %v", titles(app))
	}
}

func TestApp_ReloadResetsExpansion(t *testing.T) {
	app := newTestEnv(t, false).newApp(t)

	app, _ = press(app, "l")
	if len(app.Rows()) != 5 {
		t.Fatalf("expected Dev expanded, rows %v", titles(app))
	}

	app, cmd := press(app, "r")
	app = run(app, cmd)
	if len(app.Rows()) != 2 {
		t.Errorf("reload should collapse all folders, rows %v", titles(app))
	}
}

func TestApp_RefreshFavicons(t *testing.T) {
	env := newTestEnv(t, false)
	app := env.newApp(t)
	env.engine.Wait()

	if env.engine.Icons().Cache().Len() == 0 {
		t.Fatal("expected icons cached after first render")
	}

	app, cmd := press(app, "R")
	if text, _ := app.Message(); text != "Refreshing favicons..." {
		t.Errorf("unexpected message %q", text)
	}
	app = run(app, cmd)

	text, mt := app.Message()
	if mt != tui.MessageSuccess || text != "Favicon cache cleared" {
		t.Errorf("unexpected message %q (%d)", text, mt)
	}
	if app.CurrentView().Status != panel.StatusReady {
		t.Errorf("expected ready view after refresh, got %s", app.CurrentView().Status)
	}
}

func TestApp_ViewChangedMsg(t *testing.T) {
	app := newTestEnv(t, false).newApp(t)
	app, _ = press(app, "j")

	updated, _ := app.Update(tui.ViewChangedMsg{View: panel.View{Status: panel.StatusEmpty, Message: panel.MsgEmpty}})
	app = updated.(tui.App)

	if app.CurrentView().Status != panel.StatusEmpty {
		t.Errorf("expected empty view, got %s", app.CurrentView().Status)
	}
	if app.Cursor() != 0 {
		t.Errorf("cursor should be clamped to 0, got %d", app.Cursor())
	}
}

func TestApp_Quit(t *testing.T) {
	app := newTestEnv(t, false).newApp(t)

	_, cmd := press(app, "q")
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestNotifier_DropsRendersWithoutProgram(t *testing.T) {
	n := tui.NewNotifier()
	defer n.Close()

	// Must not block or panic
	n.Render(panel.View{Status: panel.StatusReady})
	n.SetCollapsed(true)
	n.SetFolderExpanded("x", true)
}
