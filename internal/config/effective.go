package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw over DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.URL != nil {
		cfg.URL = strings.TrimSpace(*raw.URL)
	}
	if raw.Title != nil {
		cfg.Title = *raw.Title
	}
	if raw.Width != nil {
		cfg.Width = *raw.Width
	}
	if raw.Height != nil {
		cfg.Height = *raw.Height
	}
	if raw.BackgroundColor != nil {
		cfg.BackgroundColor = strings.TrimSpace(*raw.BackgroundColor)
	}
	if raw.Fullscreen != nil {
		cfg.Fullscreen = *raw.Fullscreen
	}
	if raw.KeepOnTop != nil {
		cfg.KeepOnTop = *raw.KeepOnTop
	}
	if raw.ZoomLevel != nil {
		cfg.ZoomLevel = *raw.ZoomLevel
	}
	if raw.HardwareDecoding != nil {
		cfg.HardwareDecoding = *raw.HardwareDecoding
	}
	if raw.RatioLock != nil {
		cfg.RatioLock = RatioLockMode(strings.ToLower(string(*raw.RatioLock)))
	}
	if raw.Browser != nil {
		cfg.Browser = *raw.Browser
	}
	if raw.BrowserArgs != nil {
		cfg.BrowserArgs = append([]string(nil), raw.BrowserArgs...)
	}
	if raw.Distribution != nil {
		cfg.Distribution = strings.ToLower(*raw.Distribution)
	}
	if raw.Hotkeys != nil {
		cfg.Hotkeys = *raw.Hotkeys
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.ReadyTimeoutSeconds != nil {
		cfg.ReadyTimeoutSeconds = *raw.ReadyTimeoutSeconds
	}
	if raw.WindowTimeoutSeconds != nil {
		cfg.WindowTimeoutSeconds = *raw.WindowTimeoutSeconds
	}
	if raw.UserstylesDir != nil {
		dir, err := expandHome(*raw.UserstylesDir)
		if err != nil {
			return nil, &ValidationError{Path: "userstyles_dir", Err: err}
		}
		cfg.UserstylesDir = dir
	}
	if raw.Dashboard != nil {
		if raw.Dashboard.Enabled != nil {
			cfg.Dashboard.Enabled = *raw.Dashboard.Enabled
		}
		if raw.Dashboard.Listen != nil {
			cfg.Dashboard.Listen = strings.TrimSpace(*raw.Dashboard.Listen)
		}
		if raw.Dashboard.Dir != nil {
			dir, err := expandHome(*raw.Dashboard.Dir)
			if err != nil {
				return nil, &ValidationError{Path: "dashboard.dir", Err: err}
			}
			cfg.Dashboard.Dir = dir
		}
	}

	return cfg, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand %q: %w", path, err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
