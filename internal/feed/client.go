package feed

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vango-dev/pathwatch/pkg/depmon"
	"github.com/vango-dev/pathwatch/pkg/observe"
)

// client is one WebSocket subscriber.
type client struct {
	id      string
	server  *Server
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	sub     *observe.Subscription
	session *depmon.Session

	closeOnce sync.Once
}

// handleEvents subscribes before upgrading, so no event emitted after the
// handshake completes can be missed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	c := &client{
		id:     uuid.NewString(),
		server: s,
		send:   make(chan []byte, s.config.SendBuffer),
		done:   make(chan struct{}),
	}

	if reads := r.URL.Query().Get("reads"); reads != "" {
		if err := s.subscribeGated(r, c, strings.Split(reads, ",")); err != nil {
			writeError(w, err)
			return
		}
	} else {
		s.mu.Lock()
		c.sub = s.root.Channel().Subscribe(c.enqueue)
		s.mu.Unlock()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("feed: upgrade failed", "client", c.id, "error", err)
		c.unsubscribe()
		return
	}
	c.conn = conn

	s.clientsMu.Lock()
	s.clients[c.id] = c
	s.clientsMu.Unlock()
	s.config.Metrics.FeedClients(1)
	s.logger.Info("feed: client connected", "client", c.id, "gated", c.session != nil)

	go c.writeLoop()
	go c.readLoop()
}

// subscribeGated reads each path under a monitor session and streams the
// session's derived channel instead of the root.
func (s *Server) subscribeGated(r *http.Request, c *client, reads []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, session, err := depmon.RunAndMonitor(r.Context(), s.root.Channel(), func() (struct{}, error) {
		for _, p := range reads {
			s.root.GetPath(observe.ParsePath(strings.TrimSpace(p))...)
		}
		return struct{}{}, nil
	}, s.config.MonitorOptions...)
	if err != nil {
		return err
	}
	c.session = session
	c.sub = session.Channel().Subscribe(c.enqueue)
	return nil
}

// enqueue runs synchronously inside Emit, so it must not block.
func (c *client) enqueue(e observe.AccessEvent) {
	msg, err := json.Marshal(e)
	if err != nil {
		return
	}
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		c.server.config.Metrics.FeedDropped()
	}
}

func (c *client) writeLoop() {
	defer c.close()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.server.logger.Error("feed: write error", "client", c.id, "error", err)
				return
			}
		}
	}
}

// readLoop discards client messages and notices disconnects.
func (c *client) readLoop() {
	defer c.close()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.server.logger.Error("feed: read error", "client", c.id, "error", err)
			}
			return
		}
	}
}

func (c *client) unsubscribe() {
	c.sub.Unsubscribe()
	if c.session != nil {
		c.session.Close()
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		c.unsubscribe()
		close(c.done)
		c.conn.Close()

		s := c.server
		s.clientsMu.Lock()
		delete(s.clients, c.id)
		s.clientsMu.Unlock()
		s.config.Metrics.FeedClients(-1)
		s.logger.Info("feed: client disconnected", "client", c.id)
	})
}
