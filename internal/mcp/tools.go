package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jumpres/viewer/internal/bridge"
)

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st, err := s.viewer.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{
		HasWindow:       st.HasWindow,
		Ready:           st.Ready,
		Title:           st.Title,
		Fullscreen:      st.State.Fullscreen,
		AlwaysOnTop:     st.State.AlwaysOnTop,
		ZoomLevel:       st.State.ZoomLevel,
		Focused:         st.State.Focused,
		RatioLock:       st.RatioLock,
		Insets:          st.Insets,
		PlatformVariant: st.PlatformVariant,
		UptimeSeconds:   st.UptimeSeconds,
		Version:         st.Version,
	}, nil
}

func (s *Server) handleIsFocused(_ context.Context, _ *mcpsdk.CallToolRequest, _ QueryInput) (*mcpsdk.CallToolResult, FocusedOutput, error) {
	focused, err := s.viewer.InvokeBool(bridge.OpIsFocused)
	if err != nil {
		return nil, FocusedOutput{}, err
	}
	return nil, FocusedOutput{Focused: focused}, nil
}

func (s *Server) handleIsPlatformVariant(_ context.Context, _ *mcpsdk.CallToolRequest, _ QueryInput) (*mcpsdk.CallToolResult, PlatformVariantOutput, error) {
	variant, err := s.viewer.InvokeBool(bridge.OpIsPlatformVariant)
	if err != nil {
		return nil, PlatformVariantOutput{}, err
	}
	return nil, PlatformVariantOutput{PlatformVariant: variant}, nil
}

func (s *Server) handleReload(_ context.Context, _ *mcpsdk.CallToolRequest, _ ReloadInput) (*mcpsdk.CallToolResult, AppliedOutput, error) {
	return s.apply(bridge.OpReload, nil)
}

func (s *Server) handleSetFullscreen(_ context.Context, _ *mcpsdk.CallToolRequest, args SetFullscreenInput) (*mcpsdk.CallToolResult, AppliedOutput, error) {
	return s.apply(bridge.OpSetFullscreen, args.On)
}

func (s *Server) handleSetOnTop(_ context.Context, _ *mcpsdk.CallToolRequest, args SetOnTopInput) (*mcpsdk.CallToolResult, AppliedOutput, error) {
	return s.apply(bridge.OpSetOnTop, args.On)
}

func (s *Server) handleSetZoom(_ context.Context, _ *mcpsdk.CallToolRequest, args SetZoomInput) (*mcpsdk.CallToolResult, AppliedOutput, error) {
	return s.apply(bridge.OpSetZoom, args.Level)
}

func (s *Server) apply(op string, arg any) (*mcpsdk.CallToolResult, AppliedOutput, error) {
	if _, err := s.viewer.Invoke(op, arg); err != nil {
		s.logger.Warn("mcp tool failed", "op", op, "error", err)
		return nil, AppliedOutput{}, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Debug("mcp tool applied", "op", op, "arg", arg)
	return nil, AppliedOutput{Applied: true}, nil
}
