package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jumpres/viewer/internal/browser"
	"gopkg.in/yaml.v3"
)

// DefaultURL is the page the viewer shows unless configured otherwise.
const DefaultURL = "https://cronus.ws4k.net/app/msgboard.html"

// RatioLockMode selects how the 16:9 lock is enforced.
type RatioLockMode string

const (
	RatioLockAuto      RatioLockMode = "auto"      // Native where the window system honors it.
	RatioLockNative    RatioLockMode = "native"    // Always the window system's own constraint.
	RatioLockIntercept RatioLockMode = "intercept" // Always correct resizes ourselves.
)

// Distribution channel overrides for is-app-platform-variant.
const (
	DistributionAuto       = "auto"
	DistributionSteam      = "steam"
	DistributionStandalone = "standalone"
)

// DashboardConfig configures the local dashboard server.
type DashboardConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Dir     string `yaml:"dir"`
}

// Config holds the application configuration.
type Config struct {
	URL                  string          `yaml:"url"`
	Title                string          `yaml:"title"`
	Width                int             `yaml:"width"`
	Height               int             `yaml:"height"`
	BackgroundColor      string          `yaml:"background_color"`
	Fullscreen           bool            `yaml:"fullscreen"`
	KeepOnTop            bool            `yaml:"keep_on_top"`
	ZoomLevel            float64         `yaml:"zoom_level"`
	HardwareDecoding     bool            `yaml:"hardware_decoding"`
	RatioLock            RatioLockMode   `yaml:"ratio_lock"`
	Browser              string          `yaml:"browser"`
	BrowserArgs          []string        `yaml:"browser_args"`
	Distribution         string          `yaml:"distribution"`
	Hotkeys              bool            `yaml:"hotkeys"`
	LogLevel             string          `yaml:"log_level"`
	ReadyTimeoutSeconds  int             `yaml:"ready_timeout_seconds"`
	WindowTimeoutSeconds int             `yaml:"window_timeout_seconds"`
	UserstylesDir        string          `yaml:"userstyles_dir"`
	Dashboard            DashboardConfig `yaml:"dashboard"`
}

func DefaultConfig() *Config {
	dir := configDir()
	return &Config{
		URL:                  DefaultURL,
		Title:                "JumPres Viewer",
		Width:                1280,
		Height:               720,
		BackgroundColor:      "#282828",
		Fullscreen:           true,
		KeepOnTop:            true,
		ZoomLevel:            0,
		HardwareDecoding:     false,
		RatioLock:            RatioLockAuto,
		Distribution:         DistributionAuto,
		Hotkeys:              true,
		LogLevel:             "info",
		ReadyTimeoutSeconds:  10,
		WindowTimeoutSeconds: 20,
		UserstylesDir:        joinIfSet(dir, "userstyles"),
		Dashboard: DashboardConfig{
			Enabled: true,
			Listen:  "127.0.0.1:8737",
			Dir:     joinIfSet(dir, "dashboard"),
		},
	}
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "jumpres")
}

func joinIfSet(dir, name string) string {
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, name)
}

// SlogLevel maps log_level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutSeconds) * time.Second
}

func (c *Config) WindowTimeout() time.Duration {
	return time.Duration(c.WindowTimeoutSeconds) * time.Second
}

// Save writes the configuration to path, or to the standard location when
// path is empty.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" {
		return &ValidationError{Path: "url", Err: fmt.Errorf("url must be an absolute URL")}
	}
	if strings.TrimSpace(c.Title) == "" {
		return &ValidationError{Path: "title", Err: fmt.Errorf("title is required")}
	}
	if c.Width <= 0 {
		return &ValidationError{Path: "width", Err: fmt.Errorf("width must be > 0")}
	}
	if c.Height <= 0 {
		return &ValidationError{Path: "height", Err: fmt.Errorf("height must be > 0")}
	}
	if _, err := browser.BackgroundColorARGB(c.BackgroundColor); err != nil {
		return &ValidationError{Path: "background_color", Err: err}
	}
	if c.ZoomLevel < -9 || c.ZoomLevel > 9 {
		return &ValidationError{Path: "zoom_level", Err: fmt.Errorf("zoom_level must be between -9 and 9")}
	}
	switch c.RatioLock {
	case RatioLockAuto, RatioLockNative, RatioLockIntercept:
	default:
		return &ValidationError{Path: "ratio_lock", Err: fmt.Errorf("ratio_lock must be one of: auto, native, intercept")}
	}
	switch c.Distribution {
	case DistributionAuto, DistributionSteam, DistributionStandalone:
	default:
		return &ValidationError{Path: "distribution", Err: fmt.Errorf("distribution must be one of: auto, steam, standalone")}
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.ReadyTimeoutSeconds <= 0 {
		return &ValidationError{Path: "ready_timeout_seconds", Err: fmt.Errorf("ready_timeout_seconds must be > 0")}
	}
	if c.WindowTimeoutSeconds <= 0 {
		return &ValidationError{Path: "window_timeout_seconds", Err: fmt.Errorf("window_timeout_seconds must be > 0")}
	}
	for i, arg := range c.BrowserArgs {
		if !strings.HasPrefix(arg, "--") {
			return &ValidationError{Path: "browser_args", Err: fmt.Errorf("browser_args[%d] %q must start with --", i, arg)}
		}
	}
	if c.Dashboard.Enabled {
		if _, _, err := net.SplitHostPort(c.Dashboard.Listen); err != nil {
			return &ValidationError{Path: "dashboard.listen", Err: fmt.Errorf("dashboard.listen must be host:port: %w", err)}
		}
	}

	if warnings := c.validationWarnings(); len(warnings) > 0 {
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
	}

	return nil
}

func (c *Config) validationWarnings() []string {
	if c == nil {
		return nil
	}

	var warnings []string
	if r := float64(c.Width) / float64(c.Height); r < 1.7 || r > 1.8 {
		warnings = append(warnings, fmt.Sprintf("width x height %dx%d is not 16:9; the window will be corrected on first show", c.Width, c.Height))
	}
	if c.Dashboard.Enabled && c.Dashboard.Dir == "" {
		warnings = append(warnings, "dashboard.dir is empty; only the /bridge endpoint will be served")
	}
	return warnings
}
