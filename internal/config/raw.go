package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawDashboardConfig struct {
	Enabled *bool   `yaml:"enabled"`
	Listen  *string `yaml:"listen"`
	Dir     *string `yaml:"dir"`
}

// RawConfig is one YAML file as written: nil fields were not set there.
type RawConfig struct {
	Include              IncludeList         `yaml:"include"`
	URL                  *string             `yaml:"url"`
	Title                *string             `yaml:"title"`
	Width                *int                `yaml:"width"`
	Height               *int                `yaml:"height"`
	BackgroundColor      *string             `yaml:"background_color"`
	Fullscreen           *bool               `yaml:"fullscreen"`
	KeepOnTop            *bool               `yaml:"keep_on_top"`
	ZoomLevel            *float64            `yaml:"zoom_level"`
	HardwareDecoding     *bool               `yaml:"hardware_decoding"`
	RatioLock            *RatioLockMode      `yaml:"ratio_lock"`
	Browser              *string             `yaml:"browser"`
	BrowserArgs          []string            `yaml:"browser_args"`
	Distribution         *string             `yaml:"distribution"`
	Hotkeys              *bool               `yaml:"hotkeys"`
	LogLevel             *string             `yaml:"log_level"`
	ReadyTimeoutSeconds  *int                `yaml:"ready_timeout_seconds"`
	WindowTimeoutSeconds *int                `yaml:"window_timeout_seconds"`
	UserstylesDir        *string             `yaml:"userstyles_dir"`
	Dashboard            *RawDashboardConfig `yaml:"dashboard"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.URL != nil {
		out.URL = overlay.URL
	}
	if overlay.Title != nil {
		out.Title = overlay.Title
	}
	if overlay.Width != nil {
		out.Width = overlay.Width
	}
	if overlay.Height != nil {
		out.Height = overlay.Height
	}
	if overlay.BackgroundColor != nil {
		out.BackgroundColor = overlay.BackgroundColor
	}
	if overlay.Fullscreen != nil {
		out.Fullscreen = overlay.Fullscreen
	}
	if overlay.KeepOnTop != nil {
		out.KeepOnTop = overlay.KeepOnTop
	}
	if overlay.ZoomLevel != nil {
		out.ZoomLevel = overlay.ZoomLevel
	}
	if overlay.HardwareDecoding != nil {
		out.HardwareDecoding = overlay.HardwareDecoding
	}
	if overlay.RatioLock != nil {
		out.RatioLock = overlay.RatioLock
	}
	if overlay.Browser != nil {
		out.Browser = overlay.Browser
	}
	if overlay.BrowserArgs != nil {
		out.BrowserArgs = append([]string(nil), overlay.BrowserArgs...)
	}
	if overlay.Distribution != nil {
		out.Distribution = overlay.Distribution
	}
	if overlay.Hotkeys != nil {
		out.Hotkeys = overlay.Hotkeys
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.ReadyTimeoutSeconds != nil {
		out.ReadyTimeoutSeconds = overlay.ReadyTimeoutSeconds
	}
	if overlay.WindowTimeoutSeconds != nil {
		out.WindowTimeoutSeconds = overlay.WindowTimeoutSeconds
	}
	if overlay.UserstylesDir != nil {
		out.UserstylesDir = overlay.UserstylesDir
	}
	if overlay.Dashboard != nil {
		if out.Dashboard == nil {
			out.Dashboard = &RawDashboardConfig{}
		}
		merged := mergeRawDashboard(*out.Dashboard, *overlay.Dashboard)
		out.Dashboard = &merged
	}

	return out
}

func mergeRawDashboard(base RawDashboardConfig, overlay RawDashboardConfig) RawDashboardConfig {
	out := base
	if overlay.Enabled != nil {
		out.Enabled = overlay.Enabled
	}
	if overlay.Listen != nil {
		out.Listen = overlay.Listen
	}
	if overlay.Dir != nil {
		out.Dir = overlay.Dir
	}
	return out
}
