// Package browser starts a Chromium-family browser in app mode and drives
// the page it shows over the Chrome DevTools Protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

// GPUDebugURL is loaded instead of the configured page with --debug-gpu.
const GPUDebugURL = "chrome://gpu"

// offscreenPosition keeps the window out of sight until it is shown.
const offscreenPosition = "-32000,-32000"

// ErrBrowserNotFound is returned when no usable browser binary exists.
var ErrBrowserNotFound = errors.New("no chromium-based browser found")

var candidateBinaries = []string{
	"chromium",
	"chromium-browser",
	"google-chrome-stable",
	"google-chrome",
	"brave-browser",
	"microsoft-edge-stable",
}

// LaunchOptions configures one browser process.
type LaunchOptions struct {
	Binary          string
	URL             string
	Class           string
	ProfileDir      string
	Width           int
	Height          int
	BackgroundColor string
	Offscreen       bool

	HardwareDecoding bool
	DebugGPU         bool
	EnableDevTools   bool
	ExtraArgs        []string

	// GOOS selects platform-specific switches; empty means linux.
	GOOS string
}

// BuildArgs returns the command line switches for opts. Extra arguments
// come last so that they can override anything set here.
func BuildArgs(opts LaunchOptions) ([]string, error) {
	if opts.ProfileDir == "" {
		return nil, fmt.Errorf("profile directory is required")
	}

	url := opts.URL
	if opts.DebugGPU {
		url = GPUDebugURL
	}
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}

	args := []string{
		"--app=" + url,
		"--user-data-dir=" + opts.ProfileDir,
		"--remote-debugging-port=0",
		"--no-first-run",
		"--no-default-browser-check",
	}
	if opts.Class != "" {
		args = append(args, "--class="+opts.Class)
	}
	if opts.Width > 0 && opts.Height > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d", opts.Width, opts.Height))
	}
	if opts.Offscreen {
		args = append(args, "--window-position="+offscreenPosition)
	}
	if opts.BackgroundColor != "" {
		argb, err := BackgroundColorARGB(opts.BackgroundColor)
		if err != nil {
			return nil, err
		}
		args = append(args, "--default-background-color="+argb)
	}

	goos := opts.GOOS
	if goos == "" {
		goos = "linux"
	}
	if goos == "linux" {
		// Wrong colors on some Wayland compositors otherwise.
		args = append(args, "--disable-features=WaylandWpColorManagerV1")
	}
	if !opts.HardwareDecoding {
		args = append(args, "--disable-accelerated-video-decode")
	}
	if opts.EnableDevTools {
		args = append(args, "--auto-open-devtools-for-tabs")
	}

	args = append(args, opts.ExtraArgs...)
	return args, nil
}

// BackgroundColorARGB converts a CSS hex color (#RGB, #ARGB, #RRGGBB or
// #AARRGGBB) to the AARRGGBB form Chromium switches take.
func BackgroundColorARGB(color string) (string, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(color), "#")
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return "", fmt.Errorf("invalid color %q", color)
		}
	}
	hex = strings.ToLower(hex)

	switch len(hex) {
	case 3, 4:
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	}

	switch len(hex) {
	case 6:
		return "ff" + hex, nil
	case 8:
		return hex, nil
	default:
		return "", fmt.Errorf("invalid color %q", color)
	}
}

// FindBinary returns preferred if set (resolved through lookPath), or the
// first known browser found on PATH.
func FindBinary(preferred string, lookPath func(string) (string, error)) (string, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if preferred != "" {
		path, err := lookPath(preferred)
		if err != nil {
			return "", fmt.Errorf("browser %q: %w", preferred, err)
		}
		return path, nil
	}
	for _, name := range candidateBinaries {
		if path, err := lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrBrowserNotFound
}

// Process is a running browser.
type Process struct {
	cmd        *exec.Cmd
	profileDir string
	logger     *slog.Logger

	done    chan struct{}
	waitErr error
	once    sync.Once
}

// Launch starts the browser described by opts. Browser output is dropped
// unless the logger is enabled for debug.
func Launch(opts LaunchOptions, logger *slog.Logger) (*Process, error) {
	if logger == nil {
		logger = slog.Default()
	}

	binary, err := FindBinary(opts.Binary, nil)
	if err != nil {
		return nil, err
	}
	args, err := BuildArgs(opts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.ProfileDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create browser profile: %w", err)
	}
	// A port file left by an earlier run would point at a dead endpoint.
	if err := os.Remove(filepath.Join(opts.ProfileDir, activePortFile)); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to clear stale devtools port: %w", err)
	}

	cmd := exec.Command(binary, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", binary, err)
	}
	logger.Info("browser started", "binary", binary, "pid", cmd.Process.Pid)
	logger.Debug("browser arguments", "args", strings.Join(args, " "))

	p := &Process{
		cmd:        cmd,
		profileDir: opts.ProfileDir,
		logger:     logger,
		done:       make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

func (p *Process) ProfileDir() string {
	return p.profileDir
}

// Done is closed when the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns the exit error once Done is closed.
func (p *Process) Err() error {
	<-p.done
	return p.waitErr
}

// Terminate asks the browser to exit and kills it if that fails.
func (p *Process) Terminate() {
	p.once.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			p.logger.Debug("terminate failed, killing browser", "error", err)
			_ = p.cmd.Process.Kill()
		}
	})
}
