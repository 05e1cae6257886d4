package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Fatalf("expected 1280x720 default size, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.BackgroundColor != "#282828" {
		t.Fatalf("expected #282828 background, got %q", cfg.BackgroundColor)
	}
	if !cfg.Fullscreen || !cfg.KeepOnTop {
		t.Fatalf("expected fullscreen and keep_on_top by default")
	}
	if cfg.RatioLock != RatioLockAuto {
		t.Fatalf("expected ratio_lock auto, got %q", cfg.RatioLock)
	}
	if cfg.ReadyTimeout().Seconds() != 10 || cfg.WindowTimeout().Seconds() != 20 {
		t.Fatalf("unexpected default timeouts %s %s", cfg.ReadyTimeout(), cfg.WindowTimeout())
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.URL != DefaultURL {
		t.Fatalf("expected default url, got %q", res.Config.URL)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files loaded, got %v", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Title != "JumPres Viewer" {
		t.Fatalf("expected default title, got %q", res.Config.Title)
	}
}

func TestLoadFromPath_OverridesDefaults(t *testing.T) {
	data := `
url: "http://localhost:8080/app.html"
fullscreen: false
zoom_level: 1.5
ratio_lock: Intercept
distribution: steam
browser_args: ["--force-device-scale-factor=1"]
dashboard:
  listen: "127.0.0.1:9000"
`
	path := writeConfig(t, t.TempDir(), "config.yaml", data)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.URL != "http://localhost:8080/app.html" {
		t.Fatalf("unexpected url %q", cfg.URL)
	}
	if cfg.Fullscreen {
		t.Fatalf("expected fullscreen false")
	}
	if !cfg.KeepOnTop {
		t.Fatalf("expected keep_on_top to keep its default")
	}
	if cfg.ZoomLevel != 1.5 {
		t.Fatalf("expected zoom 1.5, got %v", cfg.ZoomLevel)
	}
	if cfg.RatioLock != RatioLockIntercept {
		t.Fatalf("expected ratio_lock intercept, got %q", cfg.RatioLock)
	}
	if cfg.Distribution != DistributionSteam {
		t.Fatalf("expected steam distribution, got %q", cfg.Distribution)
	}
	if len(cfg.BrowserArgs) != 1 {
		t.Fatalf("expected one browser arg, got %v", cfg.BrowserArgs)
	}
	if !cfg.Dashboard.Enabled || cfg.Dashboard.Listen != "127.0.0.1:9000" {
		t.Fatalf("unexpected dashboard config %+v", cfg.Dashboard)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "unknown_key: 1\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown_key") && !strings.Contains(err.Error(), "field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to include file path, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSourceContext(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "title: ok\nratio_lock: sideways\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Path != "ratio_lock" {
		t.Fatalf("expected ratio_lock path, got %q", verr.Path)
	}
	if !strings.HasPrefix(err.Error(), path+":2:") {
		t.Fatalf("expected file:line prefix, got %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"relative url", func(c *Config) { c.URL = "app.html" }, "url"},
		{"empty title", func(c *Config) { c.Title = " " }, "title"},
		{"zero width", func(c *Config) { c.Width = 0 }, "width"},
		{"bad color", func(c *Config) { c.BackgroundColor = "grey" }, "background_color"},
		{"zoom range", func(c *Config) { c.ZoomLevel = 12 }, "zoom_level"},
		{"distribution", func(c *Config) { c.Distribution = "itch" }, "distribution"},
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"ready timeout", func(c *Config) { c.ReadyTimeoutSeconds = 0 }, "ready_timeout_seconds"},
		{"browser arg", func(c *Config) { c.BrowserArgs = []string{"kiosk"} }, "browser_args"},
		{"dashboard listen", func(c *Config) { c.Dashboard.Listen = "8737" }, "dashboard.listen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("expected path %q, got %q", tt.path, verr.Path)
			}
		})
	}
}

func TestValidate_DisabledDashboardSkipsListen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dashboard.Enabled = false
	cfg.Dashboard.Listen = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadFromPath_IncludeDirectoryOrderAndMainOverrides(t *testing.T) {
	dir := t.TempDir()

	// config.d loaded first, in sorted order.
	configD := filepath.Join(dir, "config.d")
	if err := os.MkdirAll(configD, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeConfig(t, configD, "10-base.yaml", "zoom_level: 1\ntitle: Base\n")
	writeConfig(t, configD, "20-override.yaml", "zoom_level: 2\n")

	// Main file overrides includes.
	path := writeConfig(t, dir, "config.yaml", strings.Join([]string{
		"include:",
		"  - config.d",
		"zoom_level: 3",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.ZoomLevel != 3 {
		t.Fatalf("expected zoom_level to be 3, got %v", res.Config.ZoomLevel)
	}
	if res.Config.Title != "Base" {
		t.Fatalf("expected title from include, got %q", res.Config.Title)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 files loaded, got %v", res.Files)
	}
}

func TestLoadFromPath_IncludeMissingPathHasContext(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "include:\n  - missing.yaml\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "include") || !strings.Contains(err.Error(), "missing.yaml") {
		t.Fatalf("expected include error, got %v", err)
	}
	if !strings.Contains(err.Error(), path+":") {
		t.Fatalf("expected error to include file:line:col prefix, got %v", err)
	}
}

func TestLoadFromPath_IncludeCycleDetection(t *testing.T) {
	dir := t.TempDir()
	a := writeConfig(t, dir, "a.yaml", "include: b.yaml\n")
	writeConfig(t, dir, "b.yaml", "include: a.yaml\n")

	_, err := LoadFromPath(a)
	if err == nil {
		t.Fatalf("expected cycle error")
	}
	if !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestLoadFromPath_ExpandsHomeInDirectories(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, t.TempDir(), "config.yaml", "userstyles_dir: ~/styles\ndashboard:\n  dir: ~/board\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.UserstylesDir != filepath.Join(home, "styles") {
		t.Fatalf("unexpected userstyles_dir %q", res.Config.UserstylesDir)
	}
	if res.Config.Dashboard.Dir != filepath.Join(home, "board") {
		t.Fatalf("unexpected dashboard.dir %q", res.Config.Dashboard.Dir)
	}
}

func TestExplain(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "zoom_level: 2\ndashboard:\n  enabled: false\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	val, src, err := Explain(res, "zoom_level")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != 2 {
		t.Fatalf("expected zoom_level 2, got %#v", val)
	}
	if src.Kind != SourceFile || src.Line != 1 {
		t.Fatalf("expected file source at line 1, got %#v", src)
	}

	val, src, err = Explain(res, "dashboard.enabled")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != false || src.Kind != SourceFile || src.Line != 3 {
		t.Fatalf("unexpected dashboard.enabled %#v from %#v", val, src)
	}

	val, src, err = Explain(res, "title")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != "JumPres Viewer" || src.Kind != SourceDefault {
		t.Fatalf("expected default title, got %#v from %#v", val, src)
	}

	if _, _, err := Explain(res, "dashboard.port"); err == nil {
		t.Fatalf("expected unknown path error")
	}
	if _, _, err := Explain(res, "url.scheme"); err == nil {
		t.Fatalf("expected unknown path error for scalar parent")
	}
}

func TestPaths(t *testing.T) {
	paths, err := Paths(DefaultConfig())
	if err != nil {
		t.Fatalf("paths: %v", err)
	}
	want := map[string]bool{"url": false, "dashboard.listen": false, "ratio_lock": false}
	for _, p := range paths {
		if _, ok := want[p]; ok {
			want[p] = true
		}
		if p == "dashboard" {
			t.Fatalf("expected only leaf paths, got %q", p)
		}
	}
	for p, seen := range want {
		if !seen {
			t.Fatalf("expected %q in %v", p, paths)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.ZoomLevel = -1
	cfg.Hotkeys = false
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.ZoomLevel != -1 || res.Config.Hotkeys {
		t.Fatalf("unexpected reloaded config %+v", res.Config)
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := DefaultConfig()
	for level, want := range map[string]string{"debug": "DEBUG", "info": "INFO", "warning": "WARN", "error": "ERROR"} {
		cfg.LogLevel = level
		if got := cfg.SlogLevel().String(); got != want {
			t.Fatalf("SlogLevel(%q) = %s, want %s", level, got, want)
		}
	}
}
