package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/behave/internal/core/events/bus"
	"github.com/zeusync/behave/internal/core/observability/log"
)

// Envelope is the JSON frame written to trace clients for every event.
type Envelope struct {
	Type   string    `json:"type"`
	Source string    `json:"source"`
	Time   time.Time `json:"time"`
	Data   any       `json:"data"`
}

// filter narrows the stream of one client. Empty fields match everything.
type filter struct {
	types  map[string]bool
	source string
}

func parseFilter(r *http.Request) filter {
	q := r.URL.Query()
	f := filter{source: q.Get("source")}
	if raw := q.Get("types"); raw != "" {
		f.types = make(map[string]bool)
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.types[t] = true
			}
		}
	}
	return f
}

func (f filter) match(e bus.Event) bool {
	if f.source != "" && f.source != e.Source() {
		return false
	}
	return len(f.types) == 0 || f.types[e.Type()]
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	filter filter
}

// close never closes send: publishers may still be selecting on it.
func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

func (s *Server) authorized(r *http.Request) bool {
	if s.config.Token == "" {
		return true
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.config.Token)) == 1
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}
	if s.Clients() >= s.config.MaxClients {
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("Websocket upgrade failed", log.Error(err))
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, s.config.ClientBuffer),
		done:   make(chan struct{}),
		filter: parseFilter(r),
	}
	if err := s.addClient(c); err != nil {
		s.logger.Warn("Rejecting trace client", log.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(s.config.WriteTimeout))
		_ = conn.Close()
		return
	}

	s.logger.Info("Trace client connected", log.String("remote", conn.RemoteAddr().String()))

	go s.writeLoop(c)

	// Clients never send anything meaningful; reading keeps control frames
	// flowing and notices disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	c.close()
}

func (s *Server) writeLoop(c *client) {
	defer s.removeClient(c)

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Debug("Trace client write failed", log.Error(err))
				c.close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "trace stream closed"),
				time.Now().Add(s.config.WriteTimeout))
			return
		}
	}
}

func (s *Server) addClient(c *client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrServerClosed
	}
	if len(s.clients) >= s.config.MaxClients {
		return ErrMaxClientsReached
	}
	if s.sub == nil {
		sub, err := s.events.Subscribe(bus.Wildcard, s.broadcast)
		if err != nil {
			return err
		}
		s.sub = sub
	}
	s.clients[c] = struct{}{}
	return nil
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		if len(s.clients) == 0 && s.sub != nil {
			_ = s.sub.Cancel()
			s.sub = nil
		}
	}
	s.mu.Unlock()

	_ = c.conn.Close()
	s.logger.Info("Trace client disconnected", log.String("remote", c.conn.RemoteAddr().String()))
}

// broadcast runs inside the publisher's goroutine, usually a runner tick,
// so it never blocks on a client.
func (s *Server) broadcast(e bus.Event) error {
	s.mu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		if c.filter.match(e) {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()

	if len(targets) == 0 {
		return nil
	}

	payload, err := json.Marshal(Envelope{
		Type:   e.Type(),
		Source: e.Source(),
		Time:   e.Timestamp(),
		Data:   e.Data(),
	})
	if err != nil {
		return err
	}

	for _, c := range targets {
		select {
		case c.send <- payload:
		case <-c.done:
		default:
			s.dropped.Add(1)
		}
	}
	return nil
}
