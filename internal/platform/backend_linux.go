//go:build linux

package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
	"github.com/google/uuid"
	"github.com/jumpres/viewer/internal/browser"
	"github.com/jumpres/viewer/internal/geometry"
	"github.com/jumpres/viewer/internal/x11"
)

const (
	defaultWindowTimeout = 20 * time.Second
	defaultReadyTimeout  = 10 * time.Second

	discoveryPoll = 100 * time.Millisecond
	closeGrace    = 5 * time.Second
	pageTimeout   = 5 * time.Second
)

// X11Config configures the browser behind every window an X11System
// creates.
type X11Config struct {
	Browser          string
	ProfileDir       string
	HardwareDecoding bool
	DebugGPU         bool
	EnableDevTools   bool
	ExtraArgs        []string

	// WindowTimeout bounds the wait for the browser's top-level window.
	WindowTimeout time.Duration
	// ReadyTimeout shows the window even if the page never finishes loading.
	ReadyTimeout time.Duration
}

// X11System creates viewer windows by launching a browser in app mode and
// adopting its top-level X11 window.
type X11System struct {
	conn   *x11.Connection
	cfg    X11Config
	logger *slog.Logger
	http   *http.Client

	mu      sync.Mutex
	binding browser.BindingHandler
	active  *x11Window
}

var _ WindowSystem = (*X11System)(nil)

// NewX11System wraps an existing X11 connection.
func NewX11System(conn *x11.Connection, cfg X11Config, logger *slog.Logger) *X11System {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WindowTimeout <= 0 {
		cfg.WindowTimeout = defaultWindowTimeout
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	return &X11System{
		conn:   conn,
		cfg:    cfg,
		logger: logger,
		http:   &http.Client{Timeout: 2 * time.Second},
	}
}

// Connection returns the underlying X11 connection.
func (s *X11System) Connection() *x11.Connection {
	return s.conn
}

// SetBindingHandler sets the handler serving window.jumpres.invoke calls in
// pages of windows created afterwards.
func (s *X11System) SetBindingHandler(fn browser.BindingHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.binding = fn
}

// ActiveWindow returns the X11 id of the open viewer window.
func (s *X11System) ActiveWindow() (xproto.Window, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.isClosed() {
		return 0, false
	}
	return s.active.id, true
}

// Create launches the browser off screen, waits for its window and DevTools
// endpoint, and returns the window iconified.
func (s *X11System) Create(ctx context.Context, opts WindowOptions) (Window, error) {
	class := "jumpres-" + uuid.NewString()[:8]

	proc, err := browser.Launch(browser.LaunchOptions{
		Binary:           s.cfg.Browser,
		URL:              opts.URL,
		Class:            class,
		ProfileDir:       s.cfg.ProfileDir,
		Width:            opts.Width,
		Height:           opts.Height,
		BackgroundColor:  opts.BackgroundColor,
		Offscreen:        true,
		HardwareDecoding: s.cfg.HardwareDecoding,
		DebugGPU:         s.cfg.DebugGPU,
		EnableDevTools:   s.cfg.EnableDevTools,
		ExtraArgs:        s.cfg.ExtraArgs,
	}, s.logger)
	if err != nil {
		return nil, err
	}

	w, err := s.adopt(ctx, proc, class)
	if err != nil {
		proc.Terminate()
		return nil, err
	}

	s.mu.Lock()
	s.active = w
	s.mu.Unlock()
	return w, nil
}

func (s *X11System) adopt(ctx context.Context, proc *browser.Process, class string) (*x11Window, error) {
	discoverCtx, cancel := context.WithTimeout(ctx, s.cfg.WindowTimeout)
	defer cancel()

	id, err := s.waitClient(discoverCtx, proc, class)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("browser window found", "window", id, "class", class)

	// Keep it hidden until ready; the off-screen position alone does not
	// stop some window managers from placing it.
	if err := s.conn.IconifyWindow(id); err != nil {
		s.logger.Debug("failed to iconify browser window", "window", id, "error", err)
	}

	w := &x11Window{
		sys:  s,
		id:   id,
		proc: proc,
	}

	xu := s.conn.XUtil
	if err := xwindow.New(xu, id).Listen(xproto.EventMaskStructureNotify, xproto.EventMaskPropertyChange); err != nil {
		return nil, fmt.Errorf("failed to watch browser window: %w", err)
	}
	xevent.ConfigureNotifyFun(func(_ *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		w.handleConfigure(int(ev.Width), int(ev.Height))
	}).Connect(xu, id)
	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		name, err := xprop.AtomName(xu, ev.Atom)
		if err != nil || !isTitleProperty(name) {
			return
		}
		w.handleTitle(s.conn.WindowTitle(id))
	}).Connect(xu, id)
	xevent.DestroyNotifyFun(func(*xgbutil.XUtil, xevent.DestroyNotifyEvent) {
		w.fireClosed()
	}).Connect(xu, id)

	if err := w.connectPage(discoverCtx); err != nil {
		xevent.Detach(xu, id)
		return nil, err
	}

	go func() {
		<-proc.Done()
		s.logger.Info("browser exited", "pid", proc.PID())
		w.fireClosed()
	}()
	timer := time.AfterFunc(s.cfg.ReadyTimeout, func() {
		if w.markReady() {
			s.logger.Warn("page did not finish loading, showing window anyway", "timeout", s.cfg.ReadyTimeout)
		}
	})
	w.mu.Lock()
	w.readyTimer = timer
	w.mu.Unlock()
	return w, nil
}

func (s *X11System) waitClient(ctx context.Context, proc *browser.Process, class string) (xproto.Window, error) {
	ticker := time.NewTicker(discoveryPoll)
	defer ticker.Stop()
	for {
		clients, err := s.conn.Clients()
		if err == nil {
			if c, ok := x11.MatchClient(clients, proc.PID(), class); ok {
				return c.ID, nil
			}
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("browser window did not appear: %w", ctx.Err())
		case <-proc.Done():
			return 0, fmt.Errorf("browser exited before opening a window: %v", proc.Err())
		case <-ticker.C:
		}
	}
}

func isTitleProperty(atom string) bool {
	return atom == "_NET_WM_NAME" || atom == "WM_NAME"
}

// outerFromClient adds the frame extents to a client window size.
func outerFromClient(width, height int, ext x11.FrameExtents) geometry.Bounds {
	return geometry.Bounds{
		Width:  width + ext.Left + ext.Right,
		Height: height + ext.Top + ext.Bottom,
	}
}

// clientFromOuter removes the frame extents from an outer size.
func clientFromOuter(outer geometry.Bounds, ext x11.FrameExtents) (int, int, error) {
	w := outer.Width - ext.Left - ext.Right
	h := outer.Height - ext.Top - ext.Bottom
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: outer %s smaller than frame", geometry.ErrInvalidGeometry, outer)
	}
	return w, h, nil
}

// x11Window is a browser app window. X11 has no pre-resize hook, so resize
// events are delivered right after the window manager applies a size and a
// prevented event is undone by the corrective SetBounds.
type x11Window struct {
	sys  *X11System
	id   xproto.Window
	proc *browser.Process

	cdp  *browser.Client
	page *browser.Page

	mu         sync.Mutex
	readyTimer *time.Timer
	lastOuter  geometry.Bounds
	ready      bool
	closed     bool
	onResize   func(ev *ResizeEvent)
	onReady    func()
	onTitle    func(string)
	onClosed   func()
	closeOnce  sync.Once
}

var (
	_ Window        = (*x11Window)(nil)
	_ StyleInjector = (*x11Window)(nil)
)

func (w *x11Window) connectPage(ctx context.Context) error {
	port, err := browser.WaitActivePort(ctx, w.proc.ProfileDir(), discoveryPoll)
	if err != nil {
		return fmt.Errorf("devtools endpoint not available: %w", err)
	}
	target, err := browser.WaitPageTarget(ctx, w.sys.http, browser.DevToolsURL(port), discoveryPoll)
	if err != nil {
		return fmt.Errorf("app page not found: %w", err)
	}
	client, err := browser.Dial(ctx, target.WebSocketDebuggerURL, w.sys.logger)
	if err != nil {
		return err
	}

	page := browser.NewPage(client, w.sys.logger)
	w.sys.mu.Lock()
	binding := w.sys.binding
	w.sys.mu.Unlock()
	if binding != nil {
		page.SetBindingHandler(binding)
	}
	page.OnLoad(func() { w.markReady() })

	if err := page.Attach(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to attach to app page: %w", err)
	}
	w.cdp, w.page = client, page

	if loaded, err := page.Loaded(ctx); err == nil && loaded {
		w.markReady()
	}
	return nil
}

func (w *x11Window) conn() *x11.Connection {
	return w.sys.conn
}

func (w *x11Window) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *x11Window) OuterSize() (geometry.Bounds, error) {
	width, height, err := w.conn().OuterSize(w.id)
	if err != nil {
		return geometry.Bounds{}, err
	}
	return geometry.Bounds{Width: width, Height: height}, nil
}

func (w *x11Window) ContentSize() (geometry.Bounds, error) {
	width, height, err := w.conn().ContentSize(w.id)
	if err != nil {
		return geometry.Bounds{}, err
	}
	return geometry.Bounds{Width: width, Height: height}, nil
}

func (w *x11Window) SetBounds(outer geometry.Bounds) error {
	width, height, err := clientFromOuter(outer, w.conn().GetFrameExtents(w.id))
	if err != nil {
		return err
	}
	return w.conn().ResizeWindow(w.id, width, height)
}

func (w *x11Window) SetAspectRatio(r geometry.Ratio) error {
	return w.conn().SetAspectHints(w.id, r.Num, r.Den)
}

// Show centers the window on the monitor under the pointer and maps it.
func (w *x11Window) Show() error {
	if m, err := w.conn().PointerMonitor(); err == nil {
		if outer, err := w.OuterSize(); err == nil {
			x, y := x11.CenterIn(m, outer.Width, outer.Height)
			if err := w.conn().MoveWindow(w.id, x, y); err != nil {
				w.sys.logger.Debug("failed to center window", "error", err)
			}
		}
	} else {
		w.sys.logger.Debug("no monitor under pointer", "error", err)
	}
	return w.conn().ShowWindow(w.id)
}

func (w *x11Window) SetFullscreen(on bool) error {
	return w.conn().SetWindowState(w.id, x11.StateFullscreen, on)
}

func (w *x11Window) SetAlwaysOnTop(on bool) error {
	return w.conn().SetWindowState(w.id, x11.StateAbove, on)
}

func (w *x11Window) SetZoomLevel(level float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), pageTimeout)
	defer cancel()
	return w.page.SetZoomLevel(ctx, level)
}

func (w *x11Window) Reload() error {
	ctx, cancel := context.WithTimeout(context.Background(), pageTimeout)
	defer cancel()
	return w.page.Reload(ctx)
}

func (w *x11Window) InjectCSS(css string) error {
	ctx, cancel := context.WithTimeout(context.Background(), pageTimeout)
	defer cancel()
	return w.page.InjectCSS(ctx, css)
}

func (w *x11Window) IsFocused() (bool, error) {
	active, err := w.conn().GetActiveWindow()
	if err != nil {
		return false, err
	}
	return active == w.id, nil
}

func (w *x11Window) SetTitle(title string) error {
	return w.conn().SetWindowTitle(w.id, title)
}

// Close asks the browser to quit, falling back to _NET_CLOSE_WINDOW, and
// terminates it if it is still running after a grace period.
func (w *x11Window) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), pageTimeout)
	defer cancel()
	if err := w.page.Close(ctx); err != nil && !errors.Is(err, browser.ErrClosed) {
		w.sys.logger.Debug("browser close failed, asking the window manager", "error", err)
		if err := w.conn().CloseWindow(w.id); err != nil {
			w.sys.logger.Debug("window close request failed, terminating", "error", err)
			w.proc.Terminate()
			return nil
		}
	}
	go func() {
		select {
		case <-w.proc.Done():
		case <-time.After(closeGrace):
			w.proc.Terminate()
		}
	}()
	return nil
}

func (w *x11Window) OnWillResize(fn func(ev *ResizeEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onResize = fn
}

// OnReady runs fn once the page has loaded, or right away (asynchronously)
// if it already has.
func (w *x11Window) OnReady(fn func()) {
	w.mu.Lock()
	w.onReady = fn
	ready := w.ready
	w.mu.Unlock()
	if ready && fn != nil {
		go fn()
	}
}

func (w *x11Window) OnTitleChange(fn func(title string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onTitle = fn
}

func (w *x11Window) OnClosed(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onClosed = fn
}

// markReady reports whether this call made the window ready.
func (w *x11Window) markReady() bool {
	w.mu.Lock()
	if w.ready || w.closed {
		w.mu.Unlock()
		return false
	}
	w.ready = true
	fn := w.onReady
	timer := w.readyTimer
	w.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if fn != nil {
		fn()
	}
	return true
}

func (w *x11Window) handleConfigure(width, height int) {
	ext := w.conn().GetFrameExtents(w.id)
	wmOwned := w.conn().SizeOwnedByWM(w.id)

	w.mu.Lock()
	outer, ev := resizeFromConfigure(width, height, ext, w.lastOuter, wmOwned)
	w.lastOuter = outer
	fn := w.onResize
	w.mu.Unlock()

	if fn == nil || ev == nil {
		return
	}
	fn(ev)
}

// resizeFromConfigure returns the outer size for a client configure and the
// resize event to deliver, which is nil when the size is unchanged from last
// or the window manager owns the size (fullscreen, maximized).
func resizeFromConfigure(width, height int, ext x11.FrameExtents, last geometry.Bounds, wmOwned bool) (geometry.Bounds, *ResizeEvent) {
	outer := outerFromClient(width, height, ext)
	if outer == last || wmOwned {
		return outer, nil
	}
	return outer, &ResizeEvent{Requested: outer}
}

func (w *x11Window) handleTitle(title string) {
	w.mu.Lock()
	fn := w.onTitle
	w.mu.Unlock()
	if fn != nil {
		fn(title)
	}
}

func (w *x11Window) fireClosed() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		fn := w.onClosed
		timer := w.readyTimer
		w.mu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		xevent.Detach(w.conn().XUtil, w.id)
		if w.cdp != nil {
			_ = w.cdp.Close()
		}
		w.proc.Terminate()
		if fn != nil {
			fn()
		}
	})
}
