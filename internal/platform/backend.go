package platform

import (
	"context"

	"github.com/jumpres/viewer/internal/geometry"
)

// ResizeEvent is a pending resize of a window, delivered before (or, on
// window systems without a pre-resize hook, right after) the new size takes
// effect.
type ResizeEvent struct {
	Requested geometry.Bounds

	prevented bool
}

// PreventDefault asks the window system not to apply Requested as is.
func (e *ResizeEvent) PreventDefault() {
	e.prevented = true
}

// Prevented reports whether PreventDefault was called.
func (e *ResizeEvent) Prevented() bool {
	return e.prevented
}

// WindowOptions describes the primary window to create.
type WindowOptions struct {
	Width           int
	Height          int
	BackgroundColor string
	Title           string
	URL             string
}

// Window abstracts the single primary viewer window.
//
// Sizes passed to and returned from SetBounds and OuterSize include window
// decorations; ContentSize excludes them.
type Window interface {
	OuterSize() (geometry.Bounds, error)
	ContentSize() (geometry.Bounds, error)
	SetBounds(outer geometry.Bounds) error
	SetAspectRatio(r geometry.Ratio) error

	Show() error
	SetFullscreen(on bool) error
	SetAlwaysOnTop(on bool) error
	SetZoomLevel(level float64) error
	Reload() error
	IsFocused() (bool, error)
	SetTitle(title string) error
	Close() error

	// Each On* call replaces the previously registered handler; nil removes it.
	OnWillResize(fn func(ev *ResizeEvent))
	OnReady(fn func())
	OnTitleChange(fn func(title string))
	OnClosed(fn func())
}

// StyleInjector is implemented by windows that can inject CSS into the
// loaded page.
type StyleInjector interface {
	InjectCSS(css string) error
}

// WindowSystem creates primary windows. Create returns a window that is
// not yet visible.
type WindowSystem interface {
	Create(ctx context.Context, opts WindowOptions) (Window, error)
}
