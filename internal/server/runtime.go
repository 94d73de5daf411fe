package server

import (
	"net/http"
	"strings"

	"github.com/conneroisu/loam/internal/importmap"
)

// loamJS is the entry module the canonical import map points "loam" at. It
// re-exports the live-reload client so user modules can import either name.
const loamJS = `export * from "loam/live-reload";
`

// liveReloadJS reconnects with backoff so browsers survive server restarts
// during development.
const liveReloadJS = `const endpoint = (location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws";

let retryDelay = 500;

function connect() {
  const socket = new WebSocket(endpoint);

  socket.addEventListener("open", () => {
    retryDelay = 500;
  });

  socket.addEventListener("message", (event) => {
    let message;
    try {
      message = JSON.parse(event.data);
    } catch {
      return;
    }
    if (message.type === "reload") {
      location.reload();
    }
  });

  socket.addEventListener("close", () => {
    setTimeout(connect, retryDelay);
    retryDelay = Math.min(retryDelay * 2, 10000);
  });
}

connect();

export {};
`

// handleClientRuntime serves loam's own browser modules, the targets of the
// canonical import map entries.
func (s *DevServer) handleClientRuntime(w http.ResponseWriter, r *http.Request) {
	var body string
	switch strings.TrimPrefix(r.URL.Path, importmap.ModuleRoot) {
	case "loam.js":
		body = loamJS
	case "live-reload.js":
		body = liveReloadJS
	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(body))
}
