// Package platformtest provides an in-memory window system for tests.
package platformtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/jumpres/viewer/internal/geometry"
	"github.com/jumpres/viewer/internal/platform"
)

// maxEchoDepth bounds nested resize dispatch when Echo is set. A correctly
// behaving resize handler never gets close.
const maxEchoDepth = 8

// Window is a fake platform.Window. Exported fields configure it before use;
// read the recorded state through the accessor methods.
type Window struct {
	// Insets is the chrome added around the content area.
	Insets geometry.Insets

	// Echo makes SetBounds dispatch a resize event for the bounds it applied,
	// the way an X11 ConfigureNotify follows every configure request.
	Echo bool

	OuterErr     error
	ContentErr   error
	SetBoundsErr error
	AspectErr    error
	ShowErr      error
	FocusErr     error

	mu          sync.Mutex
	outer       geometry.Bounds
	aspect      *geometry.Ratio
	boundsCalls []geometry.Bounds
	calls       []string
	shown       bool
	fullscreen  bool
	onTop       bool
	zoom        float64
	reloads     int
	focused     bool
	title       string
	closed      bool
	echoDepth   int
	overflow    bool

	onWillResize  func(*platform.ResizeEvent)
	onReady       func()
	onTitleChange func(string)
	onClosed      func()
}

// NewWindow returns a hidden window with the given outer size and insets.
func NewWindow(outer geometry.Bounds, insets geometry.Insets) *Window {
	return &Window{Insets: insets, outer: outer}
}

func (w *Window) record(call string) {
	w.calls = append(w.calls, call)
}

func (w *Window) OuterSize() (geometry.Bounds, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.OuterErr != nil {
		return geometry.Bounds{}, w.OuterErr
	}
	return w.outer, nil
}

func (w *Window) ContentSize() (geometry.Bounds, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ContentErr != nil {
		return geometry.Bounds{}, w.ContentErr
	}
	return geometry.Bounds{Width: w.outer.Width - w.Insets.Width, Height: w.outer.Height - w.Insets.Height}, nil
}

func (w *Window) SetBounds(outer geometry.Bounds) error {
	w.mu.Lock()
	w.record("SetBounds " + outer.String())
	if w.SetBoundsErr != nil {
		w.mu.Unlock()
		return w.SetBoundsErr
	}
	w.outer = outer
	w.boundsCalls = append(w.boundsCalls, outer)
	echo := w.Echo
	if echo {
		if w.echoDepth >= maxEchoDepth {
			w.overflow = true
			echo = false
		} else {
			w.echoDepth++
		}
	}
	w.mu.Unlock()

	if echo {
		w.dispatchResize(outer)
		w.mu.Lock()
		w.echoDepth--
		w.mu.Unlock()
	}
	return nil
}

func (w *Window) SetAspectRatio(r geometry.Ratio) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("SetAspectRatio " + r.String())
	if w.AspectErr != nil {
		return w.AspectErr
	}
	w.aspect = &r
	return nil
}

func (w *Window) Show() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("Show")
	if w.ShowErr != nil {
		return w.ShowErr
	}
	w.shown = true
	return nil
}

func (w *Window) SetFullscreen(on bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record(fmt.Sprintf("SetFullscreen %t", on))
	w.fullscreen = on
	return nil
}

func (w *Window) SetAlwaysOnTop(on bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record(fmt.Sprintf("SetAlwaysOnTop %t", on))
	w.onTop = on
	return nil
}

func (w *Window) SetZoomLevel(level float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record(fmt.Sprintf("SetZoomLevel %g", level))
	w.zoom = level
	return nil
}

func (w *Window) Reload() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("Reload")
	w.reloads++
	return nil
}

func (w *Window) IsFocused() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.FocusErr != nil {
		return false, w.FocusErr
	}
	return w.focused, nil
}

func (w *Window) SetTitle(title string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record("SetTitle " + title)
	w.title = title
	return nil
}

func (w *Window) Close() error {
	w.mu.Lock()
	w.record("Close")
	already := w.closed
	w.closed = true
	fn := w.onClosed
	w.mu.Unlock()

	if !already && fn != nil {
		fn()
	}
	return nil
}

func (w *Window) OnWillResize(fn func(*platform.ResizeEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onWillResize = fn
}

func (w *Window) OnReady(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReady = fn
}

func (w *Window) OnTitleChange(fn func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onTitleChange = fn
}

func (w *Window) OnClosed(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onClosed = fn
}

// UserResize simulates the user dragging the window edge to outer. The
// handler sees the request first; the size is applied unless it vetoes it.
// It reports whether the request was prevented.
func (w *Window) UserResize(outer geometry.Bounds) bool {
	w.mu.Lock()
	fn := w.onWillResize
	w.mu.Unlock()

	ev := &platform.ResizeEvent{Requested: outer}
	if fn != nil {
		fn(ev)
	}
	if ev.Prevented() {
		return true
	}
	w.mu.Lock()
	w.outer = outer
	w.mu.Unlock()
	return false
}

func (w *Window) dispatchResize(outer geometry.Bounds) {
	w.mu.Lock()
	fn := w.onWillResize
	w.mu.Unlock()
	if fn != nil {
		fn(&platform.ResizeEvent{Requested: outer})
	}
}

// FireReady simulates the page finishing its first load.
func (w *Window) FireReady() {
	w.mu.Lock()
	fn := w.onReady
	w.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// FireTitleChange simulates the page changing its document title.
func (w *Window) FireTitleChange(title string) {
	w.mu.Lock()
	w.title = title
	fn := w.onTitleChange
	w.mu.Unlock()
	if fn != nil {
		fn(title)
	}
}

// SetFocused sets the value IsFocused reports.
func (w *Window) SetFocused(focused bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.focused = focused
}

// Outer returns the current outer size without error injection.
func (w *Window) Outer() geometry.Bounds {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.outer
}

func (w *Window) Aspect() *geometry.Ratio {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.aspect
}

func (w *Window) BoundsCalls() []geometry.Bounds {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]geometry.Bounds(nil), w.boundsCalls...)
}

// Calls returns every mutating call in order.
func (w *Window) Calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

func (w *Window) Shown() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shown
}

func (w *Window) Fullscreen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fullscreen
}

func (w *Window) AlwaysOnTop() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.onTop
}

func (w *Window) Zoom() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.zoom
}

func (w *Window) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Window) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

func (w *Window) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// EchoOverflow reports whether resize echoes ever nested past the limit.
func (w *Window) EchoOverflow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.overflow
}

// HasResizeHandler reports whether a will-resize handler is registered.
func (w *Window) HasResizeHandler() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.onWillResize != nil
}

// WindowSystem hands out a preconfigured Window.
type WindowSystem struct {
	Window    *Window
	CreateErr error

	mu      sync.Mutex
	options []platform.WindowOptions
}

func (s *WindowSystem) Create(_ context.Context, opts platform.WindowOptions) (platform.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options = append(s.options, opts)
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	return s.Window, nil
}

// Options returns the options of every Create call.
func (s *WindowSystem) Options() []platform.WindowOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]platform.WindowOptions(nil), s.options...)
}
