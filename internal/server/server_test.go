package server_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/bmbox/internal/dom"
	"github.com/nikbrunner/bmbox/internal/favicon"
	"github.com/nikbrunner/bmbox/internal/logging"
	"github.com/nikbrunner/bmbox/internal/model"
	"github.com/nikbrunner/bmbox/internal/panel"
	"github.com/nikbrunner/bmbox/internal/provider"
	"github.com/nikbrunner/bmbox/internal/server"
	"github.com/nikbrunner/bmbox/internal/storage"
)

func testTree() *model.Node {
	leaf := func(title, url string) *model.Node {
		return model.NewLeaf(model.NewLeafParams{Title: title, URL: url})
	}
	return model.NewFolder(model.NewFolderParams{ID: "0", Children: []*model.Node{
		model.NewFolder(model.NewFolderParams{ID: "1", Title: "Bookmarks bar", Children: []*model.Node{
			leaf("Go", "https://go.dev"),
		}}),
		model.NewFolder(model.NewFolderParams{ID: "2", Title: "Reading", Children: []*model.Node{
			leaf("Blog", "https://blog.example.org"),
		}}),
	}})
}

type fixture struct {
	srv    *server.Server
	engine *panel.Engine
	store  *storage.MemoryStore
}

func newFixture(t *testing.T, p provider.Provider) *fixture {
	t.Helper()
	page := dom.DefaultPage()
	box, err := dom.NewBox(page)
	assert.NilError(t, err)

	store := storage.NewMemoryStore()
	icons := favicon.NewPipeline(favicon.PipelineParams{
		Cache: favicon.LoadCache(store),
		Fetcher: favicon.FetcherFunc(func(ctx context.Context, iconURL string) (string, error) {
			return "data:image/png;base64,AA", nil
		}),
		Logger: logging.Discard(),
	})
	engine, err := panel.New(context.Background(), panel.Params{
		Provider: p,
		Store:    store,
		Surface:  box,
		Icons:    icons,
		Ready:    page.WhenPresent(dom.BoxID),
		Logger:   logging.Discard(),
	})
	assert.NilError(t, err)
	t.Cleanup(engine.Wait)
	box.Bind(engine)

	srv := server.New(server.Params{Page: page, Box: box, Engine: engine, Logger: logging.Discard()})
	engine.LoadAndRender(context.Background())
	return &fixture{srv: srv, engine: engine, store: store}
}

func (f *fixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	assert.NilError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHandlePage(t *testing.T) {
	f := newFixture(t, provider.Static{Root: testTree()})

	rec := f.do(t, http.MethodGet, "/")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Assert(t, is.Contains(rec.Header().Get("Content-Type"), "text/html"))

	body := rec.Body.String()
	assert.Assert(t, is.Contains(body, `id="aesthetic-bookmark-box"`))
	assert.Assert(t, is.Contains(body, "Reading"))
	assert.Assert(t, is.Contains(body, "blog.example.org"))

	assert.Equal(t, f.do(t, http.MethodGet, "/nope").Code, http.StatusNotFound)
}

func TestHandleTogglePanel(t *testing.T) {
	f := newFixture(t, provider.Static{Root: testTree()})

	rec := f.do(t, http.MethodPost, "/api/panel/toggle")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.DeepEqual(t, decode(t, rec), map[string]any{"isCollapsed": false})

	raw, ok := f.store.Get(storage.KeyPanelState)
	assert.Assert(t, ok)
	assert.Equal(t, raw, `{"isCollapsed":false}`)

	assert.Equal(t, f.do(t, http.MethodGet, "/api/panel/toggle").Code, http.StatusMethodNotAllowed)
}

func TestHandleToggleFolder(t *testing.T) {
	f := newFixture(t, provider.Static{Root: testTree()})

	rec := f.do(t, http.MethodPost, "/api/folders/2/toggle")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.DeepEqual(t, decode(t, rec), map[string]any{"id": "2", "expanded": true})

	// Folder clicks never bubble to the panel toggle
	assert.Assert(t, f.engine.Collapsed())

	assert.Equal(t, f.do(t, http.MethodPost, "/api/folders/nope/toggle").Code, http.StatusNotFound)
}

func TestHandleGetView(t *testing.T) {
	tests := []struct {
		name string
		p    provider.Provider
		want map[string]any
	}{
		{
			name: "ready",
			p:    provider.Static{Root: testTree()},
			want: map[string]any{"status": "ready", "isCollapsed": true, "sections": 1.0, "links": 1.0},
		},
		{
			name: "unavailable",
			p:    provider.Unavailable{},
			want: map[string]any{
				"status": "error", "message": panel.MsgUnavailable,
				"isCollapsed": true, "sections": 0.0, "links": 0.0,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.p)
			rec := f.do(t, http.MethodGet, "/api/view")
			assert.Equal(t, rec.Code, http.StatusOK)
			assert.DeepEqual(t, decode(t, rec), tt.want)
		})
	}
}

func TestHandleGetBar(t *testing.T) {
	f := newFixture(t, provider.Static{Root: testTree()})

	rec := f.do(t, http.MethodGet, "/api/bar")
	assert.Equal(t, rec.Code, http.StatusOK)

	var links []map[string]string
	assert.NilError(t, json.NewDecoder(rec.Body).Decode(&links))
	assert.Equal(t, len(links), 1)
	assert.Equal(t, links[0]["url"], "https://go.dev")
	assert.Equal(t, links[0]["iconSrc"], favicon.LookupURL("", "go.dev"))

	f = newFixture(t, provider.Unavailable{})
	assert.Equal(t, f.do(t, http.MethodGet, "/api/bar").Code, http.StatusServiceUnavailable)
}

func TestHandleRefresh(t *testing.T) {
	f := newFixture(t, provider.Static{Root: testTree()})
	f.engine.Wait()
	assert.Equal(t, f.engine.Icons().Cache().Len(), 1)

	rec := f.do(t, http.MethodPost, "/api/favicons/refresh")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, decode(t, rec)["status"], "ready")

	// The reload re-populates the cleared cache in the background
	f.engine.Wait()
	assert.Equal(t, f.engine.Icons().Cache().Len(), 1)
}

func TestHandleRefresh_DroppedClientKeepsBookmarks(t *testing.T) {
	tree := testTree()
	f := newFixture(t, provider.Func(func(ctx context.Context) (*model.Node, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return tree, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/favicons/refresh", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, decode(t, rec)["status"], "ready")
	assert.Equal(t, f.engine.View().Status, panel.StatusReady)
}

func TestHandleStream(t *testing.T) {
	f := newFixture(t, provider.Static{Root: testTree()})
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	assert.NilError(t, err)
	resp, err := http.DefaultClient.Do(req)
	assert.NilError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, resp.Header.Get("Content-Type"), "text/event-stream")

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	assert.NilError(t, err)
	assert.Equal(t, line, ": connected\n")

	f.engine.TogglePanel()

	event := readEvent(t, r)
	assert.Assert(t, is.Contains(event, "event: render"))
	assert.Assert(t, is.Contains(event, `"isCollapsed":false`))
}

// readEvent reads lines up to the next non-empty event.
func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	var b strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			t.Fatal("stream closed before an event arrived")
		}
		assert.NilError(t, err)
		if line == "\n" {
			if b.Len() > 0 {
				return b.String()
			}
			continue
		}
		b.WriteString(line)
	}
}

func TestShutdownWithoutServe(t *testing.T) {
	f := newFixture(t, provider.Static{Root: testTree()})
	assert.NilError(t, f.srv.Shutdown(context.Background()))
}
