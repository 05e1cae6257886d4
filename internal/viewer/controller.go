// Package viewer owns the single primary window: it creates it hidden,
// installs the aspect ratio lock before showing it, pins its title and
// serializes every control operation on it.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jumpres/viewer/internal/geometry"
	"github.com/jumpres/viewer/internal/platform"
	"github.com/jumpres/viewer/internal/ratiolock"
)

// DefaultTitle is the window title used when Options.Title is empty.
const DefaultTitle = "JumPres Viewer"

var (
	// ErrNoActiveWindow marks operations issued while no window exists. It
	// is logged, never returned: those operations are no-ops.
	ErrNoActiveWindow = errors.New("no active window")

	// ErrWindowExists is returned by Create when a window is already open.
	ErrWindowExists = errors.New("window already exists")

	// ErrStylesUnsupported is returned by InjectCSS when the window cannot
	// inject styles.
	ErrStylesUnsupported = errors.New("window does not support style injection")
)

// Options are the read-only window settings consumed by Create and the
// ready handler.
type Options struct {
	Width           int
	Height          int
	BackgroundColor string
	Title           string
	URL             string
	Fullscreen      bool
	AlwaysOnTop     bool
	ZoomLevel       float64
}

// WindowState is the controller's view of the window. It resets to the zero
// value when the window closes.
type WindowState struct {
	Fullscreen  bool    `json:"fullscreen"`
	AlwaysOnTop bool    `json:"always_on_top"`
	ZoomLevel   float64 `json:"zoom_level"`
	Focused     bool    `json:"focused"`
}

// Status is a snapshot for status reporting.
type Status struct {
	HasWindow bool             `json:"has_window"`
	Ready     bool             `json:"ready"`
	Title     string           `json:"title"`
	State     WindowState      `json:"state"`
	RatioLock string           `json:"ratio_lock"`
	Insets    *geometry.Insets `json:"insets,omitempty"`
}

// Controller owns one window handle at a time.
type Controller struct {
	sys            platform.WindowSystem
	nativeReliable bool
	logger         *slog.Logger

	mu          sync.Mutex
	win         platform.Window
	opts        Options
	lock        *ratiolock.Lock
	insets      geometry.Insets
	insetsKnown bool
	ready       bool
	state       WindowState
	onQuit      func()
}

// NewController creates a controller that opens windows through sys.
// nativeReliable selects the ratio lock variant for every window it creates.
func NewController(sys platform.WindowSystem, nativeReliable bool, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		sys:            sys,
		nativeReliable: nativeReliable,
		logger:         logger,
	}
}

// OnQuit registers fn to run after the window has closed.
func (c *Controller) OnQuit(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onQuit = fn
}

// Create opens the window hidden, measures its chrome insets, installs the
// ratio lock and defers showing it until the page is ready.
//
// Inset and lock failures are logged and leave the window unconstrained.
func (c *Controller) Create(ctx context.Context, opts Options) error {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.win != nil {
		return ErrWindowExists
	}

	win, err := c.sys.Create(ctx, platform.WindowOptions{
		Width:           opts.Width,
		Height:          opts.Height,
		BackgroundColor: opts.BackgroundColor,
		Title:           opts.Title,
		URL:             opts.URL,
	})
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	c.win = win
	c.opts = opts
	c.ready = false
	c.state = WindowState{}
	c.lock = nil
	c.insetsKnown = false

	insets, err := measureInsets(win)
	if err != nil {
		c.logger.Warn("ratio lock disabled", "error", err)
	} else {
		c.insets = insets
		c.insetsKnown = true

		policy := ratiolock.Select(c.nativeReliable, geometry.TargetRatio)
		lock, err := policy.Install(win, insets, c.logger)
		if err != nil {
			c.logger.Warn("ratio lock not installed", "kind", policy.Kind.String(), "error", err)
		} else {
			c.lock = lock
		}
	}

	win.OnTitleChange(c.handleTitleChange)
	win.OnClosed(c.handleClosed)
	win.OnReady(c.handleReady)

	c.logger.Info("window created", "url", opts.URL, "width", opts.Width, "height", opts.Height)
	return nil
}

func measureInsets(win platform.Window) (geometry.Insets, error) {
	outer, err := win.OuterSize()
	if err != nil {
		return geometry.Insets{}, fmt.Errorf("%w: outer size: %v", geometry.ErrInsetComputation, err)
	}
	content, err := win.ContentSize()
	if err != nil {
		return geometry.Insets{}, fmt.Errorf("%w: content size: %v", geometry.ErrInsetComputation, err)
	}
	return geometry.InsetsBetween(outer, content)
}

// handleReady applies the startup window state and then shows the window.
// It runs at most once per window.
func (c *Controller) handleReady() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.win == nil || c.ready {
		return
	}
	c.ready = true

	if c.opts.Fullscreen {
		if err := c.win.SetFullscreen(true); err != nil {
			c.logger.Warn("failed to enter fullscreen", "error", err)
		} else {
			c.state.Fullscreen = true
		}
	}
	if c.opts.AlwaysOnTop {
		if err := c.win.SetAlwaysOnTop(true); err != nil {
			c.logger.Warn("failed to keep window on top", "error", err)
		} else {
			c.state.AlwaysOnTop = true
		}
	}
	if c.opts.ZoomLevel != 0 {
		if err := c.win.SetZoomLevel(c.opts.ZoomLevel); err != nil {
			c.logger.Warn("failed to set zoom level", "level", c.opts.ZoomLevel, "error", err)
		} else {
			c.state.ZoomLevel = c.opts.ZoomLevel
		}
	}

	if err := c.win.Show(); err != nil {
		c.logger.Error("failed to show window", "error", err)
		return
	}
	c.logger.Info("window shown")
}

func (c *Controller) handleTitleChange(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.win == nil || title == c.opts.Title {
		return
	}
	if err := c.win.SetTitle(c.opts.Title); err != nil {
		c.logger.Warn("failed to restore window title", "requested", title, "error", err)
		return
	}
	c.logger.Debug("window title pinned", "requested", title, "title", c.opts.Title)
}

func (c *Controller) handleClosed() {
	c.mu.Lock()
	if c.win == nil {
		c.mu.Unlock()
		return
	}
	c.lock.Uninstall()
	c.win = nil
	c.lock = nil
	c.ready = false
	c.insetsKnown = false
	c.state = WindowState{}
	quit := c.onQuit
	c.mu.Unlock()

	c.logger.Info("window closed")
	if quit != nil {
		quit()
	}
}

// withWindow runs fn on the current window under the controller lock.
// Without a window it does nothing.
func (c *Controller) withWindow(op string, fn func(win platform.Window) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.win == nil {
		c.logger.Debug("ignoring window operation", "op", op, "error", ErrNoActiveWindow)
		return nil
	}
	if err := fn(c.win); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetFullscreen enters or leaves fullscreen.
func (c *Controller) SetFullscreen(on bool) error {
	return c.withWindow("set fullscreen", func(win platform.Window) error {
		if err := win.SetFullscreen(on); err != nil {
			return err
		}
		c.state.Fullscreen = on
		return nil
	})
}

// SetAlwaysOnTop keeps the window above others, or releases it.
func (c *Controller) SetAlwaysOnTop(on bool) error {
	return c.withWindow("set always on top", func(win platform.Window) error {
		if err := win.SetAlwaysOnTop(on); err != nil {
			return err
		}
		c.state.AlwaysOnTop = on
		return nil
	})
}

// SetZoom sets the page zoom level; 0 is the default size and each step
// scales by 1.2.
func (c *Controller) SetZoom(level float64) error {
	return c.withWindow("set zoom", func(win platform.Window) error {
		if err := win.SetZoomLevel(level); err != nil {
			return err
		}
		c.state.ZoomLevel = level
		return nil
	})
}

// Reload reloads the page.
func (c *Controller) Reload() error {
	return c.withWindow("reload", func(win platform.Window) error {
		return win.Reload()
	})
}

// IsFocused reports whether the window has input focus. It is false when
// there is no window or focus cannot be queried.
func (c *Controller) IsFocused() bool {
	var focused bool
	err := c.withWindow("is focused", func(win platform.Window) error {
		f, err := win.IsFocused()
		if err != nil {
			return err
		}
		focused = f
		c.state.Focused = f
		return nil
	})
	if err != nil {
		c.logger.Warn("focus query failed", "error", err)
		return false
	}
	return focused
}

// InjectCSS adds a stylesheet to the loaded page.
func (c *Controller) InjectCSS(css string) error {
	return c.withWindow("inject css", func(win platform.Window) error {
		injector, ok := win.(platform.StyleInjector)
		if !ok {
			return ErrStylesUnsupported
		}
		return injector.InjectCSS(css)
	})
}

// Close closes the window if there is one.
func (c *Controller) Close() error {
	c.mu.Lock()
	win := c.win
	c.mu.Unlock()

	if win == nil {
		return nil
	}
	return win.Close()
}

// HasWindow reports whether a window exists.
func (c *Controller) HasWindow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.win != nil
}

// State returns the last applied window state.
func (c *Controller) State() WindowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Insets returns the measured chrome insets and whether they are known.
func (c *Controller) Insets() (geometry.Insets, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insets, c.insetsKnown
}

// LockKind returns the installed ratio lock variant, if any.
func (c *Controller) LockKind() (ratiolock.Kind, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lock.Installed() {
		return 0, false
	}
	return c.lock.Kind(), true
}

// Status returns a snapshot for status queries.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		HasWindow: c.win != nil,
		Ready:     c.ready,
		State:     c.state,
		RatioLock: "none",
	}
	if c.win != nil {
		st.Title = c.opts.Title
	}
	if c.lock.Installed() {
		st.RatioLock = c.lock.Kind().String()
	}
	if c.insetsKnown {
		in := c.insets
		st.Insets = &in
	}
	return st
}
