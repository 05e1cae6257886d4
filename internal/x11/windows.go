package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// EWMH states used by the viewer.
const (
	StateFullscreen = "_NET_WM_STATE_FULLSCREEN"
	StateAbove      = "_NET_WM_STATE_ABOVE"

	stateMaximizedVert = "_NET_WM_STATE_MAXIMIZED_VERT"
	stateMaximizedHorz = "_NET_WM_STATE_MAXIMIZED_HORZ"
)

// FrameExtents are the decoration sizes the window manager draws around a
// client window.
type FrameExtents struct {
	Left, Right, Top, Bottom int
}

// ContentSize returns the size of the client window itself, which excludes
// any window manager frame.
func (c *Connection) ContentSize(windowID xproto.Window) (width, height int, err error) {
	geom, err := xwindow.New(c.XUtil, windowID).Geometry()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get geometry of window %d: %w", windowID, err)
	}
	return geom.Width(), geom.Height(), nil
}

// GetFrameExtents returns the window decoration sizes. Windows without
// _NET_FRAME_EXTENTS are treated as undecorated.
func (c *Connection) GetFrameExtents(windowID xproto.Window) FrameExtents {
	extents, err := ewmh.FrameExtentsGet(c.XUtil, windowID)
	if err != nil {
		return FrameExtents{}
	}
	return FrameExtents{
		Left:   extents.Left,
		Right:  extents.Right,
		Top:    extents.Top,
		Bottom: extents.Bottom,
	}
}

// OuterSize returns the client size plus its frame extents.
func (c *Connection) OuterSize(windowID xproto.Window) (width, height int, err error) {
	w, h, err := c.ContentSize(windowID)
	if err != nil {
		return 0, 0, err
	}
	ext := c.GetFrameExtents(windowID)
	return w + ext.Left + ext.Right, h + ext.Top + ext.Bottom, nil
}

// ResizeWindow resizes the client window to width x height, keeping its
// position.
func (c *Connection) ResizeWindow(windowID xproto.Window, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid size %dx%d", width, height)
	}

	// Let the WM apply it so that it can keep the frame in sync.
	if err := ewmh.ResizeWindow(c.XUtil, windowID, width, height); err != nil {
		xwindow.New(c.XUtil, windowID).Resize(width, height)
	}
	return nil
}

// MoveWindow positions the window frame's top-left corner at x, y.
func (c *Connection) MoveWindow(windowID xproto.Window, x, y int) error {
	if err := ewmh.MoveWindow(c.XUtil, windowID, x, y); err != nil {
		xwindow.New(c.XUtil, windowID).Move(x, y)
	}
	return nil
}

// SetAspectHints constrains the client area to num:den through
// WM_NORMAL_HINTS, preserving the other hints the client already set.
func (c *Connection) SetAspectHints(windowID xproto.Window, num, den int) error {
	if num <= 0 || den <= 0 {
		return fmt.Errorf("invalid aspect ratio %d:%d", num, den)
	}

	hints, err := icccm.WmNormalHintsGet(c.XUtil, windowID)
	if err != nil {
		hints = &icccm.NormalHints{}
	}

	hints.Flags |= icccm.SizeHintPAspect | icccm.SizeHintPBaseSize
	hints.MinAspectNum, hints.MinAspectDen = uint(num), uint(den)
	hints.MaxAspectNum, hints.MaxAspectDen = uint(num), uint(den)
	hints.BaseWidth, hints.BaseHeight = 0, 0

	if err := icccm.WmNormalHintsSet(c.XUtil, windowID, hints); err != nil {
		return fmt.Errorf("failed to set WM_NORMAL_HINTS: %w", err)
	}
	return nil
}

// SetWindowState adds or removes an EWMH _NET_WM_STATE atom.
func (c *Connection) SetWindowState(windowID xproto.Window, state string, on bool) error {
	action := ewmh.StateRemove
	if on {
		action = ewmh.StateAdd
	}
	if err := ewmh.WmStateReq(c.XUtil, windowID, action, state); err != nil {
		return fmt.Errorf("failed to request %s: %w", state, err)
	}
	return nil
}

// SizeOwnedByWM reports whether the window is fullscreen or maximized, in
// which case the window manager picks its size.
func (c *Connection) SizeOwnedByWM(windowID xproto.Window) bool {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	return sizeOwningState(states)
}

func sizeOwningState(states []string) bool {
	for _, s := range states {
		switch s {
		case StateFullscreen, stateMaximizedVert, stateMaximizedHorz:
			return true
		}
	}
	return false
}

func (c *Connection) GetActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}

// WindowTitle returns _NET_WM_NAME, falling back to WM_NAME.
func (c *Connection) WindowTitle(windowID xproto.Window) string {
	if name, err := ewmh.WmNameGet(c.XUtil, windowID); err == nil && name != "" {
		return name
	}
	if name, err := icccm.WmNameGet(c.XUtil, windowID); err == nil {
		return name
	}
	return ""
}

// SetWindowTitle sets both _NET_WM_NAME and WM_NAME.
func (c *Connection) SetWindowTitle(windowID xproto.Window, title string) error {
	if err := ewmh.WmNameSet(c.XUtil, windowID, title); err != nil {
		return fmt.Errorf("failed to set _NET_WM_NAME: %w", err)
	}
	if err := icccm.WmNameSet(c.XUtil, windowID, title); err != nil {
		return fmt.Errorf("failed to set WM_NAME: %w", err)
	}
	return nil
}

// CloseWindow asks the window's client to close it via _NET_CLOSE_WINDOW.
func (c *Connection) CloseWindow(windowID xproto.Window) error {
	return ewmh.CloseWindow(c.XUtil, windowID)
}
