package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/behave/internal/core/events/bus"
	"github.com/zeusync/behave/internal/core/observability/log"
)

// Server streams runner events to websocket clients on /ws and serves
// prometheus metrics on /metrics.
//
// The server subscribes to the bus only while at least one client is
// connected, so runners skip building event payloads when nobody watches.
type Server struct {
	config   Config
	events   bus.EventBus
	metrics  http.Handler
	logger   log.Log
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	sub     bus.Subscription

	httpServer *http.Server
	listener   net.Listener

	running atomic.Bool
	closed  atomic.Bool
	dropped atomic.Uint64
}

// Config holds server configuration
type Config struct {
	ListenAddr string
	// Token, when set, must be presented by websocket clients either as
	// the token query parameter or as a bearer Authorization header.
	Token      string
	MaxClients int

	// ClientBuffer is the number of encoded events queued per client.
	// Events for a client whose queue is full are dropped.
	ClientBuffer int
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		ListenAddr:   "127.0.0.1:9090",
		MaxClients:   64,
		ClientBuffer: 256,
		WriteTimeout: 5 * time.Second,
	}
}

func (c Config) validate() error {
	if c.MaxClients <= 0 {
		return fmt.Errorf("%w: max clients must be positive", ErrInvalidConfig)
	}
	if c.ClientBuffer <= 0 {
		return fmt.Errorf("%w: client buffer must be positive", ErrInvalidConfig)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: write timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// New creates a trace server over events. metrics may be nil, in which
// case /metrics is not served.
func New(config Config, events bus.EventBus, metrics http.Handler, logger log.Log) (*Server, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if events == nil {
		return nil, fmt.Errorf("%w: event bus is nil", ErrInvalidConfig)
	}
	if logger == nil {
		logger = log.NewNop()
	}

	return &Server{
		config:  config,
		events:  events,
		metrics: metrics,
		logger:  logger.Named("trace"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The trace stream is read-only and meant for local tooling.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}, nil
}

// Handler returns the HTTP routes of the server. Tests mount it on an
// httptest server instead of calling Start.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Start starts the server
func (s *Server) Start(_ context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		s.running.Store(false)
		s.logger.Error("Failed to create listener", log.Error(err))
		return fmt.Errorf("%w: %w", ErrListenerFailed, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Trace server stopped unexpectedly", log.Error(err))
		}
	}()

	s.logger.Info("Trace server listening", log.String("addr", listener.Addr().String()))
	return nil
}

// Addr is the bound listen address, useful when ListenAddr used port 0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop disconnects every client and shuts the HTTP server down. A
// stopped server cannot be started again.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrServerNotRunning
	}
	s.closed.Store(true)

	s.logger.Info("Stopping trace server")

	// Hijacked websocket connections are not tracked by Shutdown.
	s.mu.Lock()
	for c := range s.clients {
		c.close()
	}
	s.mu.Unlock()

	err := s.httpServer.Shutdown(ctx)

	s.logger.Info("Trace server stopped", log.Uint64("dropped_events", s.dropped.Load()))
	return err
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Dropped returns how many events were discarded for slow clients.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }
