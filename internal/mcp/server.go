// Package mcp exposes the viewer's bridge operations as MCP tools so an
// assistant can drive a running kiosk window.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jumpres/viewer/internal/ipc"
)

const ServerName = "jumpres"

// Viewer is the running viewer as reached over the control socket.
type Viewer interface {
	Invoke(op string, arg any) (json.RawMessage, error)
	InvokeBool(op string) (bool, error)
	GetStatus() (*ipc.StatusData, error)
}

// Server is the MCP server for remote control of a viewer.
type Server struct {
	mcpServer *mcpsdk.Server
	viewer    Viewer
	logger    *slog.Logger
}

// NewServer creates an MCP server forwarding to viewer.
func NewServer(viewer Viewer, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		viewer: viewer,
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "status",
		Description: "Report the viewer window: whether it exists and has finished loading, its title, fullscreen/on-top/zoom/focus state, the aspect-ratio lock in use and the frame insets.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "is_focused",
		Description: "Report whether the viewer window currently has keyboard focus. Returns false when no window exists.",
	}, s.handleIsFocused)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "is_platform_variant",
		Description: "Report whether the viewer was started as the store-distributed (Steam) build.",
	}, s.handleIsPlatformVariant)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload",
		Description: "Reload the hosted page. Zoom level and injected user styles are kept.",
	}, s.handleReload)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_fullscreen",
		Description: "Enter or leave fullscreen. Leaving fullscreen restores the 16:9 window size.",
	}, s.handleSetFullscreen)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_on_top",
		Description: "Keep the viewer window above other windows, or release it.",
	}, s.handleSetOnTop)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_zoom",
		Description: "Set the page zoom level. 0 is 100%; each step is a factor of 1.2, negative levels zoom out.",
	}, s.handleSetZoom)
}
