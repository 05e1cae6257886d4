package hotkeys

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/jumpres/viewer/internal/bridge"
	"github.com/jumpres/viewer/internal/viewer"
)

// ZoomStep is the zoom level change of one zoom in/out keystroke.
const ZoomStep = 0.5

// Action is what a shortcut does.
type Action int

const (
	ActionReload Action = iota
	ActionToggleFullscreen
	ActionZoomIn
	ActionZoomOut
	ActionZoomReset
)

func (a Action) String() string {
	switch a {
	case ActionReload:
		return "reload"
	case ActionToggleFullscreen:
		return "toggle-fullscreen"
	case ActionZoomIn:
		return "zoom-in"
	case ActionZoomOut:
		return "zoom-out"
	case ActionZoomReset:
		return "zoom-reset"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Binding ties a key sequence in keybind syntax to an action.
type Binding struct {
	Keys   string
	Action Action
}

// DefaultBindings are the browser's usual view shortcuts.
var DefaultBindings = []Binding{
	{"F5", ActionReload},
	{"control-r", ActionReload},
	{"F11", ActionToggleFullscreen},
	{"control-equal", ActionZoomIn},
	{"control-plus", ActionZoomIn},
	{"control-minus", ActionZoomOut},
	{"control-0", ActionZoomReset},
}

// Dispatcher runs bridge requests.
type Dispatcher interface {
	Handle(ctx context.Context, req bridge.Request) bridge.Response
}

// StateSource reports the current window state.
type StateSource interface {
	State() viewer.WindowState
}

// Request turns an action into the bridge request it stands for, given the
// current window state.
func Request(a Action, state viewer.WindowState) (bridge.Request, error) {
	switch a {
	case ActionReload:
		return bridge.NewRequest(bridge.OpReload, nil)
	case ActionToggleFullscreen:
		return bridge.NewRequest(bridge.OpSetFullscreen, !state.Fullscreen)
	case ActionZoomIn:
		return bridge.NewRequest(bridge.OpSetZoom, state.ZoomLevel+ZoomStep)
	case ActionZoomOut:
		return bridge.NewRequest(bridge.OpSetZoom, state.ZoomLevel-ZoomStep)
	case ActionZoomReset:
		return bridge.NewRequest(bridge.OpSetZoom, 0)
	default:
		return bridge.Request{}, fmt.Errorf("unknown action %s", a)
	}
}

// Handler grabs shortcut keys on the viewer window.
type Handler struct {
	xu       *xgbutil.XUtil
	dispatch Dispatcher
	state    StateSource
	logger   *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler creates a hotkey handler on an X connection prepared with
// keybind.Initialize.
func NewHandler(xu *xgbutil.XUtil, dispatch Dispatcher, state StateSource, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:       xu,
		dispatch: dispatch,
		state:    state,
		logger:   logger,
	}
}

// Register grabs every binding on win. Bindings that cannot be grabbed are
// logged and skipped; an error is returned only if none could be.
func (h *Handler) Register(win xproto.Window, bindings []Binding) error {
	registered := 0
	for _, b := range bindings {
		if err := h.RegisterFunc(win, b.Keys, h.runner(b.Action)); err != nil {
			h.logger.Warn("failed to register hotkey", "keys", b.Keys, "action", b.Action, "error", err)
			continue
		}
		registered++
	}
	if registered == 0 && len(bindings) > 0 {
		return fmt.Errorf("no hotkeys could be registered")
	}
	return nil
}

// RegisterFunc registers an arbitrary hotkey callback on win.
func (h *Handler) RegisterFunc(win xproto.Window, keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, win, keySequence, true)
}

func (h *Handler) runner(a Action) func() {
	return func() {
		req, err := Request(a, h.state.State())
		if err != nil {
			h.logger.Warn("hotkey failed", "action", a, "error", err)
			return
		}
		// Off the event loop: the controller may wait on the window system.
		go func() {
			resp := h.dispatch.Handle(context.Background(), req)
			if !resp.OK {
				h.logger.Warn("hotkey failed", "action", a, "error", resp.Error)
				return
			}
			h.logger.Debug("hotkey triggered", "action", a)
		}()
	}
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
