package tui_test

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/bmbox/internal/logging"
	"github.com/nikbrunner/bmbox/internal/panel"
	"github.com/nikbrunner/bmbox/internal/provider"
	"github.com/nikbrunner/bmbox/internal/storage"
	"github.com/nikbrunner/bmbox/internal/tui"
)

func TestView_Collapsed(t *testing.T) {
	app := newTestEnv(t, true).newApp(t)

	out := app.View()
	assert.Assert(t, is.Contains(out, "📚 Bookmarks"))
	assert.Assert(t, is.Contains(out, "[+]"))
	assert.Assert(t, !strings.Contains(out, "Dev"), "collapsed panel hides its content")
}

func TestView_Sections(t *testing.T) {
	app := newTestEnv(t, false).newApp(t)

	out := app.View()
	assert.Assert(t, is.Contains(out, "[−]"))
	assert.Assert(t, is.Contains(out, "▶ 📁 Dev"))
	assert.Assert(t, is.Contains(out, "▶ 📁 Reading"))
	assert.Assert(t, !strings.Contains(out, "GitHub"))

	app, _ = press(app, "l")
	out = app.View()
	assert.Assert(t, is.Contains(out, "▼ 📁 Dev"))
	assert.Assert(t, is.Contains(out, "GitHub"))
	assert.Assert(t, is.Contains(out, "github.com"))
	assert.Assert(t, is.Contains(out, "  ▶ 📂 Tools"))
}

func TestView_Messages(t *testing.T) {
	tests := []struct {
		name string
		p    provider.Provider
		want string
	}{
		{"unavailable", provider.Unavailable{}, "⚠️ " + panel.MsgUnavailable},
		{"empty", provider.Static{Root: testTree().Children[0]}, "📚 " + panel.MsgEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			assert.NilError(t, store.Set(storage.KeyPanelState, `{"isCollapsed":false}`))
			engine, err := panel.New(context.Background(), panel.Params{
				Provider: tt.p,
				Store:    store,
				Logger:   logging.Discard(),
			})
			assert.NilError(t, err)
			t.Cleanup(engine.Wait)

			app := tui.NewApp(tui.AppParams{Engine: engine})
			app = run(app, app.Init())
			assert.Assert(t, is.Contains(app.View(), tt.want))
		})
	}
}

func TestView_StatusMessageLine(t *testing.T) {
	app := newTestEnv(t, false).newApp(t)

	app, _ = press(app, "ljY")
	assert.Assert(t, is.Contains(app.View(), "✓ Copied: https://github.com"))
}

func TestView_FilterInput(t *testing.T) {
	app := newTestEnv(t, false).newApp(t)

	app, _ = press(app, "/")
	updated, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("exa")})
	app = updated.(tui.App)

	out := app.View()
	assert.Assert(t, is.Contains(out, "exa"))
	assert.Assert(t, is.Contains(out, "example.com"))
	assert.Assert(t, is.Contains(out, "esc clear"))
}

func TestView_HelpOverlay(t *testing.T) {
	app := newTestEnv(t, false).newApp(t)

	app, _ = press(app, "?")
	out := app.View()
	assert.Assert(t, is.Contains(out, "refresh favicons"))
	assert.Assert(t, !strings.Contains(out, "📚 Bookmarks"))

	app, _ = send(app, tea.KeyEsc)
	assert.Assert(t, is.Contains(app.View(), "📚 Bookmarks"))
}

func TestView_KeepsCursorOnScreen(t *testing.T) {
	app := newTestEnv(t, false).newApp(t)
	updated, _ := app.Update(tea.WindowSizeMsg{Width: 80, Height: 11})
	app = updated.(tui.App)

	// Expand everything, then walk to the bottom
	app, _ = press(app, "ljjjlG")
	out := app.View()
	assert.Assert(t, is.Contains(out, "Reading"))
}
