package mcp

import "github.com/jumpres/viewer/internal/geometry"

// StatusInput is the input for the status tool.
type StatusInput struct{}

// StatusOutput is the output for the status tool.
type StatusOutput struct {
	HasWindow       bool             `json:"has_window"`
	Ready           bool             `json:"ready"`
	Title           string           `json:"title"`
	Fullscreen      bool             `json:"fullscreen"`
	AlwaysOnTop     bool             `json:"always_on_top"`
	ZoomLevel       float64          `json:"zoom_level"`
	Focused         bool             `json:"focused"`
	RatioLock       string           `json:"ratio_lock"`
	Insets          *geometry.Insets `json:"insets,omitempty"`
	PlatformVariant bool             `json:"platform_variant"`
	UptimeSeconds   int64            `json:"uptime_seconds"`
	Version         string           `json:"version,omitempty"`
}

// QueryInput is the input for the argument-less query tools.
type QueryInput struct{}

// FocusedOutput is the output for the is_focused tool.
type FocusedOutput struct {
	Focused bool `json:"focused"`
}

// PlatformVariantOutput is the output for the is_platform_variant tool.
type PlatformVariantOutput struct {
	PlatformVariant bool `json:"platform_variant"`
}

// ReloadInput is the input for the reload tool.
type ReloadInput struct{}

// SetFullscreenInput is the input for the set_fullscreen tool.
type SetFullscreenInput struct {
	On bool `json:"on" jsonschema:"required,true to enter fullscreen, false to leave it"`
}

// SetOnTopInput is the input for the set_on_top tool.
type SetOnTopInput struct {
	On bool `json:"on" jsonschema:"required,true to keep the window above others"`
}

// SetZoomInput is the input for the set_zoom tool.
type SetZoomInput struct {
	Level float64 `json:"level" jsonschema:"required,Zoom level; 0 is 100%, each step scales by 1.2"`
}

// AppliedOutput is the output for the tools that change window state.
type AppliedOutput struct {
	Applied bool `json:"applied"`
}
