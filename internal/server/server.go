// Package server implements the development assistant endpoint: the
// /message API the chat client talks to, plus a WebSocket feed that lets
// operators watch exchanges as they happen.
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
	"github.com/soyeahso/vchat/internal/config"
	"github.com/soyeahso/vchat/internal/hooks"
	"github.com/soyeahso/vchat/internal/logging"
	"github.com/soyeahso/vchat/internal/store"
	"github.com/soyeahso/vchat/internal/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/soyeahso/vchat/internal/server"

// Server is the development assistant HTTP + WebSocket server.
type Server struct {
	cfg           config.ServerConfig
	assistantName string
	log           *logging.Logger
	feed          *Feed
	origins       originPolicy
	responder     Responder
	exchanges     store.ExchangeLog
	hooks         *hooks.Manager
	eventSeq      atomic.Int64

	tracer   trace.Tracer
	requests metric.Int64Counter

	mu         sync.Mutex
	startedAt  time.Time
	httpServer *http.Server
	addr       string
	upgrader   websocket.Upgrader
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithHooks sets the hook manager for lifecycle events.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) {
		s.hooks = hm
	}
}

// WithExchangeLog records every answered message.
func WithExchangeLog(l store.ExchangeLog) ServerOption {
	return func(s *Server) {
		s.exchanges = l
	}
}

// WithResponder replaces the simulated reply generator.
func WithResponder(r Responder) ServerOption {
	return func(s *Server) {
		s.responder = r
	}
}

// New creates a server from the loaded configuration.
func New(cfg config.Config, log *logging.Logger, opts ...ServerOption) *Server {
	origins := newOriginPolicy(cfg.Server.AllowedOrigins)
	s := &Server{
		cfg:           cfg.Server,
		assistantName: cfg.Assistant.Name,
		log:           log.Sub("server"),
		feed:          NewFeed(log.Sub("feed")),
		origins:       origins,
		tracer:        otel.Tracer(instrumentation),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     origins.checkWebSocket,
		},
	}
	if s.assistantName == "" {
		s.assistantName = "V"
	}
	s.responder = Simulated{
		Text:  SimulatedReply(s.assistantName),
		Delay: time.Duration(cfg.Server.DelayMs) * time.Millisecond,
	}

	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.requests, err = otel.Meter(instrumentation).Int64Counter("vchat.server.requests",
		metric.WithDescription("POST /message requests by status")); err != nil {
		s.log.Warn().Err(err).Msg("request counter unavailable")
	}
	return s
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.ServerConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return net.JoinHostPort(host, fmt.Sprint(cfg.Port))
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Handler returns the full HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)
	return s.middleware(mux)
}

// Start begins listening for HTTP and WebSocket connections.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve handles connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.httpServer = httpServer
	s.addr = ln.Addr().String()
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.log.Info().
		Str("addr", s.addr).
		Str("bind", s.cfg.Bind).
		Dur("delay", time.Duration(s.cfg.DelayMs)*time.Millisecond).
		Msg("assistant server ready")

	if s.hooks != nil {
		s.hooks.Emit(ctx, hooks.EventServerStart, "", map[string]any{"addr": s.addr})
	}

	// Shutdown when context is cancelled
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.log.Info().Msg("shutting down assistant server")
		if s.hooks != nil {
			s.hooks.Emit(context.Background(), hooks.EventServerStop, "", nil)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.feed.CloseAll()
		httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Operators returns the number of connected feed operators.
func (s *Server) Operators() int {
	return s.feed.Count()
}

// handleWebSocket upgrades to a feed connection. The feed is send-only;
// inbound frames are discarded and only serve to detect disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(4 * 1024)

	op := NewOperator(conn, r.RemoteAddr, s.log)
	op.Enqueue(mustEvent(EventHello, HelloPayload{
		Server:    "vchat",
		Version:   version.Current().Version,
		ConnID:    op.ID,
		Assistant: s.assistantName,
	}))

	s.feed.Add(op)
	defer func() {
		s.feed.Remove(op.ID)
		op.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Str("connId", op.ID).Msg("feed read ended")
			}
			return
		}
	}
}
