// Package server serves the new-tab page with its bookmark box over HTTP,
// plus the endpoints the page script calls to toggle and refresh.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/nikbrunner/bmbox/internal/dom"
	"github.com/nikbrunner/bmbox/internal/logging"
	"github.com/nikbrunner/bmbox/internal/panel"
)

// Server manages the page's HTTP server.
type Server struct {
	ctx    context.Context
	logger *logrus.Entry
	page   *dom.Page
	box    *dom.Box
	engine *panel.Engine
	icons  panel.Refresher
	mux    *http.ServeMux
	server *http.Server

	mu          sync.Mutex
	subscribers map[chan struct{}]struct{}
}

// Params holds parameters for creating a Server.
type Params struct {
	Context context.Context // bounds reloads started by requests; optional
	Page    *dom.Page
	Box     *dom.Box // must be bound to Engine
	Engine  *panel.Engine
	Logger  *logrus.Entry // optional
}

// New creates a Server and subscribes it to box changes.
func New(params Params) *Server {
	logger := params.Logger
	if logger == nil {
		logger = logging.NewLogger("server")
	}
	ctx := params.Context
	if ctx == nil {
		ctx = context.Background()
	}

	s := &Server{
		ctx:         ctx,
		logger:      logger,
		page:        params.Page,
		box:         params.Box,
		engine:      params.Engine,
		icons:       params.Engine,
		subscribers: make(map[chan struct{}]struct{}),
	}
	s.box.OnChange(s.broadcast)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /api/view", s.handleGetView)
	mux.HandleFunc("GET /api/bar", s.handleGetBar)
	mux.HandleFunc("POST /api/panel/toggle", s.handleTogglePanel)
	mux.HandleFunc("POST /api/folders/{id}/toggle", s.handleToggleFolder)
	mux.HandleFunc("POST /api/favicons/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/stream", s.handleStream)
	s.mux = mux

	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until the server stops or fails.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener, speaking HTTP/1.1 and
// HTTP/2 cleartext.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.server = &http.Server{
		Handler:           h2c.NewHandler(s.mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.WithField("addr", listener.Addr().String()).Info("Serving new tab page")
	err := srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server and ends open event streams.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	s.mu.Lock()
	srv := s.server
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()

	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// subscribe registers a channel that is signalled after each box change.
func (s *Server) subscribe() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.subscribers[ch] = struct{}{}
	return ch
}

func (s *Server) unsubscribe(ch chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// broadcast runs under the engine lock, so it never blocks.
func (s *Server) broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// viewResponse is the JSON summary of the panel's current view.
type viewResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	IsCollapsed bool   `json:"isCollapsed"`
	Sections    int    `json:"sections"`
	Links       int    `json:"links"`
}

func summarize(v panel.View) viewResponse {
	sections, links := v.Counts()
	return viewResponse{
		Status:      v.Status.String(),
		Message:     v.Message,
		IsCollapsed: v.Collapsed,
		Sections:    sections,
		Links:       links,
	}
}

type linkResponse struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Domain  string `json:"domain"`
	IconSrc string `json:"iconSrc"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handlePage renders the page with the box in its current state.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.page.Render(w); err != nil {
		s.logger.WithError(err).Error("Failed to render page")
	}
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, summarize(s.engine.View()))
}

// handleGetBar reloads the bar strip and returns its links.
func (s *Server) handleGetBar(w http.ResponseWriter, r *http.Request) {
	links, err := s.engine.LoadBar(r.Context())
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load bookmark bar")
		http.Error(w, "bookmarks unavailable", http.StatusServiceUnavailable)
		return
	}
	out := make([]linkResponse, len(links))
	for i, l := range links {
		out[i] = linkResponse{Title: l.Title, URL: l.URL, Domain: l.Domain, IconSrc: l.IconSrc}
	}
	writeJSON(w, out)
}

// handleTogglePanel clicks the box toggle.
func (s *Server) handleTogglePanel(w http.ResponseWriter, r *http.Request) {
	s.box.ClickToggle()
	writeJSON(w, map[string]bool{"isCollapsed": s.engine.Collapsed()})
}

// handleToggleFolder clicks a folder header.
func (s *Server) handleToggleFolder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.box.ClickFolder(id) {
		http.Error(w, "folder not found", http.StatusNotFound)
		return
	}
	s.logger.WithField("folder", id).Debug("Folder toggled")

	expanded := false
	if sec := s.engine.View().FindSection(id); sec != nil {
		expanded = sec.Expanded
	}
	writeJSON(w, map[string]any{"id": id, "expanded": expanded})
}

// handleRefresh clears the favicon cache and reloads the bookmarks.
// The reload outlives the request so a dropped client can't fail it.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.icons.RefreshAll(s.ctx)
	writeJSON(w, summarize(s.engine.View()))
}

// handleStream sends a "render" Server-Sent Event after every box change.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	s.logger.Debug("SSE client connected")

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(summarize(s.engine.View()))
			if err != nil {
				s.logger.WithError(err).Error("Failed to marshal view")
				continue
			}
			fmt.Fprintf(w, "event: render\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
