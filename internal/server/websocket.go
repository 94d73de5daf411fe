package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed between reads before the connection is considered dead.
	readWait = 60 * time.Second

	// Maximum message size allowed from peer. Browsers only listen; they
	// never send anything meaningful.
	maxMessageSize = 512
)

// client is one connected browser.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *DevServer
}

func (s *DevServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin already validated above
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, 16),
		server: s,
	}

	go c.writePump()
	go c.readPump()

	s.register <- c
}

// checkOrigin validates the request origin. Connections from the server's
// own host and the loopback aliases are always allowed; anything else must
// appear in server.allowed_origins.
func (s *DevServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return false
	}

	allowed := []string{
		fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		fmt.Sprintf("localhost:%d", s.cfg.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", s.cfg.Server.Port),
	}
	allowed = append(allowed, s.cfg.Server.AllowedOrigins...)

	for _, host := range allowed {
		if originURL.Host == host {
			return true
		}
	}
	return false
}

// runHub owns the client set: registrations, disconnects and broadcast
// fan-out all pass through here.
func (s *DevServer) runHub(ctx context.Context) {
	defer s.closeAllClients()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-s.register:
			s.clientsMu.Lock()
			s.clients[c.conn] = c
			total := len(s.clients)
			s.clientsMu.Unlock()
			s.logger.Debug(ctx, "browser connected", "clients", total)

		case conn := <-s.unregister:
			s.clientsMu.Lock()
			if c, ok := s.clients[conn]; ok {
				delete(s.clients, conn)
				close(c.send)
			}
			total := len(s.clients)
			s.clientsMu.Unlock()
			s.logger.Debug(ctx, "browser disconnected", "clients", total)

		case message := <-s.broadcast:
			s.clientsMu.RLock()
			var stalled []*websocket.Conn
			for conn, c := range s.clients {
				select {
				case c.send <- message:
				default:
					stalled = append(stalled, conn)
				}
			}
			s.clientsMu.RUnlock()

			// Drop clients that stopped draining their queue.
			s.clientsMu.Lock()
			for _, conn := range stalled {
				if c, ok := s.clients[conn]; ok {
					delete(s.clients, conn)
					close(c.send)
					_ = conn.Close(websocket.StatusPolicyViolation, "send queue full")
				}
			}
			s.clientsMu.Unlock()
		}
	}
}

func (s *DevServer) closeAllClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for conn, c := range s.clients {
		delete(s.clients, conn)
		close(c.send)
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

// readPump drains the connection until the peer goes away, then reports the
// disconnect to the hub.
func (c *client) readPump() {
	defer func() {
		c.server.unregister <- c.conn
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		readCtx, cancel := context.WithTimeout(context.Background(), readWait)
		_, _, err := c.conn.Read(readCtx)
		cancel()
		if err != nil {
			return
		}
	}
}

// writePump forwards queued messages to the peer until the hub closes the
// send channel.
func (c *client) writePump() {
	defer func() {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for message := range c.send {
		writeCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		err := c.conn.Write(writeCtx, websocket.MessageText, message)
		cancel()
		if err != nil {
			return
		}
	}
}
