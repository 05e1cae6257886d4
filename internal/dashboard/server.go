// Package dashboard serves a local operator dashboard: static files from a
// directory plus a websocket endpoint speaking the bridge protocol.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jumpres/viewer/internal/bridge"
)

const (
	BridgePath = "/bridge"

	maxMessageBytes = 64 * 1024
	pongWait        = 60 * time.Second
	pingPeriod      = pongWait * 9 / 10
	writeWait       = 10 * time.Second
)

// Dispatcher runs bridge requests.
type Dispatcher interface {
	Handle(ctx context.Context, req bridge.Request) bridge.Response
}

// Config configures the dashboard server.
type Config struct {
	Listen   string
	Dir      string
	Dispatch Dispatcher
	Logger   *slog.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	cfg        Config
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	httpServer *http.Server
	listener   net.Listener
}

type wsRequest struct {
	ID  json.RawMessage `json:"id,omitempty"`
	Op  string          `json:"op"`
	Arg json.RawMessage `json:"arg,omitempty"`
}

type wsResponse struct {
	ID    json.RawMessage `json:"id"`
	OK    bool            `json:"ok"`
	Value any             `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
}

// NewServer creates a dashboard server. It does not listen until Start.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Dispatch == nil {
		return nil, errors.New("dashboard dispatcher is required")
	}
	if cfg.Listen == "" {
		return nil, errors.New("dashboard listen address is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return originAllowed(origin)
			},
		},
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// originAllowed accepts pages served from the local machine only.
func originAllowed(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// Handler returns the dashboard's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(BridgePath, s.handleBridge)
	if s.cfg.Dir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.cfg.Dir)))
	}
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}
	s.listener = ln

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("dashboard server stopped", "error", err)
		}
	}()
	s.logger.Info("dashboard listening", "addr", ln.Addr().String(), "dir", s.cfg.Dir)
	return nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting for in-flight requests until ctx is
// done. Websocket connections are hijacked and close on their own.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("dashboard upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(maxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go s.pumpPing(ctx, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("dashboard connection closed", "error", err)
			}
			return
		}

		resp := s.dispatch(ctx, data)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Debug("dashboard write failed", "error", err)
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, data []byte) wsResponse {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return wsResponse{ID: json.RawMessage("null"), Error: fmt.Sprintf("invalid request: %v", err)}
	}
	id := req.ID
	if len(id) == 0 {
		id = json.RawMessage("null")
	}

	resp := s.cfg.Dispatch.Handle(ctx, bridge.Request{Op: req.Op, Arg: req.Arg})
	return wsResponse{ID: id, OK: resp.OK, Value: resp.Value, Error: resp.Error}
}

func (s *Server) pumpPing(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
