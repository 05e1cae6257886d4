package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/jumpres/viewer/internal/bridge"
	"github.com/jumpres/viewer/internal/viewer"
)

// DefaultReadTimeout bounds how long a connection may take to send its
// request.
const DefaultReadTimeout = 5 * time.Second

// Bridge runs control operations.
type Bridge interface {
	Handle(ctx context.Context, req bridge.Request) bridge.Response
	Ops() []string
}

// StatusSource reports the window controller's state.
type StatusSource interface {
	Status() viewer.Status
}

// ServerConfig wires a Server to the viewer.
type ServerConfig struct {
	SocketPath      string
	Bridge          Bridge
	Status          StatusSource
	PlatformVariant bool
	Version         string
	Logger          *slog.Logger

	// ReadTimeout defaults to DefaultReadTimeout.
	ReadTimeout time.Duration
}

// Server handles IPC requests from clients
type Server struct {
	cfg          ServerConfig
	logger       *slog.Logger
	listener     net.Listener
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.SocketPath == "" {
		return nil, fmt.Errorf("socket path is required")
	}
	if cfg.Bridge == nil || cfg.Status == nil {
		return nil, fmt.Errorf("bridge and status source are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	// Remove existing socket if present
	os.Remove(cfg.SocketPath)

	return &Server{
		cfg:       cfg,
		logger:    logger,
		startTime: time.Now(),
	}, nil
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.cfg.SocketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.cfg.SocketPath)

	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection serves a single request on conn
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Debug("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal IPC response", "error", err)
		return
	}

	respData = append(respData, '\n')
	conn.SetWriteDeadline(time.Now().Add(s.cfg.ReadTimeout))
	if _, err := conn.Write(respData); err != nil {
		s.logger.Debug("failed to send IPC response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandBridge:
		return s.handleBridge(req.Payload)
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListOps:
		return s.handleListOps()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleBridge(payload json.RawMessage) *Response {
	var req bridge.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid bridge payload: %v", err))
	}

	result := s.cfg.Bridge.Handle(context.Background(), req)
	if !result.OK {
		return NewErrorResponse(result.Error)
	}

	resp, err := NewOKResponse(result.Value)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// handleGetStatus returns the viewer's current status
func (s *Server) handleGetStatus() *Response {
	status := StatusData{
		Status:          s.cfg.Status.Status(),
		PlatformVariant: s.cfg.PlatformVariant,
		UptimeSeconds:   int64(time.Since(s.startTime).Seconds()),
		Version:         s.cfg.Version,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleListOps() *Response {
	resp, _ := NewOKResponse(OpsData{Ops: s.cfg.Bridge.Ops()})
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.SetWriteDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.cfg.SocketPath)
}
