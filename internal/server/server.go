// Package server implements the loam development server: it serves the
// build output directory, injects the import map and live-reload client
// into HTML responses, and pushes reload notifications to connected
// browsers over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/loam/internal/config"
	"github.com/conneroisu/loam/internal/importmap"
	"github.com/conneroisu/loam/internal/logging"
	"github.com/conneroisu/loam/internal/version"
)

// DevServer serves a built site for local development.
type DevServer struct {
	cfg    *config.Config
	logger logging.Logger
	mux    *http.ServeMux

	httpServer *http.Server
	serverMu   sync.RWMutex
	isShutdown bool

	// Resolved import map JSON, refreshed after each build so newly added
	// user entries reach the browser without a server restart.
	importMapMu sync.RWMutex
	importMap   []byte

	// WebSocket hub state, mutated only by the hub goroutine and guarded
	// for the broadcast fan-out.
	clients    map[*websocket.Conn]*client
	clientsMu  sync.RWMutex
	register   chan *client
	unregister chan *websocket.Conn
	broadcast  chan []byte
}

// reloadMessage is pushed to every connected browser after a rebuild.
var reloadMessage = []byte(`{"type":"reload"}`)

// New creates a DevServer for cfg. The output directory does not need to
// exist yet; the initial build usually runs after construction.
func New(cfg *config.Config, logger logging.Logger) (*DevServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server: config cannot be nil")
	}
	if logger == nil {
		logger = logging.NewLogger(nil)
	}

	s := &DevServer{
		cfg:        cfg,
		logger:     logger.WithComponent("server"),
		mux:        http.NewServeMux(),
		clients:    make(map[*websocket.Conn]*client),
		register:   make(chan *client, 16),
		unregister: make(chan *websocket.Conn, 16),
		broadcast:  make(chan []byte, 16),
	}

	if err := s.RefreshImportMap(); err != nil {
		return nil, err
	}

	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc(importmap.ModuleRoot, s.handleClientRuntime)
	s.mux.HandleFunc("/", s.handleSite)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Start runs the HTTP listener and the WebSocket hub until ctx is
// cancelled or the listener fails, then shuts down gracefully.
func (s *DevServer) Start(ctx context.Context) error {
	hubCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(hubCtx)

	g.Go(func() error {
		s.runHub(gctx)
		return nil
	})

	g.Go(func() error {
		s.logger.Info(gctx, "dev server listening", "addr", s.Addr())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("dev server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown stops accepting connections and drains in-flight requests.
// Safe to call more than once.
func (s *DevServer) Shutdown(ctx context.Context) error {
	s.serverMu.Lock()
	defer s.serverMu.Unlock()

	if s.isShutdown {
		return nil
	}
	s.isShutdown = true

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("dev server shutdown: %w", err)
	}
	return nil
}

// Addr returns the address the server binds to.
func (s *DevServer) Addr() string {
	return s.httpServer.Addr
}

// URL returns the browsable root URL of the dev server.
func (s *DevServer) URL() string {
	return fmt.Sprintf("http://%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
}

// NotifyReload pushes a reload message to every connected browser. Called
// after a successful rebuild; drops the message if the hub is saturated
// rather than blocking the build loop.
func (s *DevServer) NotifyReload() {
	select {
	case s.broadcast <- reloadMessage:
	default:
	}
}

// RefreshImportMap rebuilds the import map served to browsers from the
// current configuration.
func (s *DevServer) RefreshImportMap() error {
	var user *importmap.ImportMap
	if s.cfg.ImportMap.Path != "" {
		loaded, err := importmap.Load(s.cfg.ImportMap.Path)
		if err != nil {
			return err
		}
		user = loaded
	}

	m, err := importmap.Build(user, s.cfg.Site.BaseURL)
	if err != nil {
		return err
	}
	data, err := m.JSON()
	if err != nil {
		return err
	}

	s.importMapMu.Lock()
	s.importMap = data
	s.importMapMu.Unlock()
	return nil
}

// handleSite serves files from the output directory. HTML responses pass
// through the injection step so every page carries the import map and the
// live-reload client.
func (s *DevServer) handleSite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rel := strings.TrimPrefix(filepath.Clean("/"+r.URL.Path), "/")
	path := filepath.Join(s.cfg.Build.OutputDir, rel)

	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		path = filepath.Join(path, "index.html")
		info, err = os.Stat(path)
	}
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if strings.EqualFold(filepath.Ext(path), ".html") {
		content, err := os.ReadFile(path)
		if err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		s.importMapMu.RLock()
		imports := s.importMap
		s.importMapMu.RUnlock()

		injected, err := injectScripts(content, imports)
		if err != nil {
			s.logger.Warn(r.Context(), err, "script injection failed, serving page unmodified", "path", path)
			injected = content
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(injected)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, path)
}

// handleHealth reports server liveness for tooling.
func (s *DevServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.RLock()
	connected := len(s.clients)
	s.clientsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"version": version.GetVersion(),
		"clients": connected,
	})
}
