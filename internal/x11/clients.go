package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// ClientInfo identifies a managed top-level window.
type ClientInfo struct {
	ID       xproto.Window
	PID      int
	Instance string
	Class    string
	Title    string
}

// Clients lists the normal windows in the EWMH client list.
func (c *Connection) Clients() ([]ClientInfo, error) {
	ids, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}

	clients := make([]ClientInfo, 0, len(ids))
	for _, id := range ids {
		if !c.IsNormalWindow(id) {
			continue
		}
		info := ClientInfo{ID: id, Title: c.WindowTitle(id)}
		if pid, err := ewmh.WmPidGet(c.XUtil, id); err == nil {
			info.PID = int(pid)
		}
		if class, err := icccm.WmClassGet(c.XUtil, id); err == nil {
			info.Instance = class.Instance
			info.Class = class.Class
		}
		clients = append(clients, info)
	}
	return clients, nil
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}
	return isNormalType(types)
}

func isNormalType(types []string) bool {
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return false
		}
	}
	return len(types) == 0
}

// MatchClient picks the window of a launched process: a WM_CLASS match
// (class or instance, case-insensitive) wins over a _NET_WM_PID match.
func MatchClient(clients []ClientInfo, pid int, class string) (ClientInfo, bool) {
	if class != "" {
		for _, cl := range clients {
			if strings.EqualFold(cl.Class, class) || strings.EqualFold(cl.Instance, class) {
				return cl, true
			}
		}
	}
	if pid > 0 {
		for _, cl := range clients {
			if cl.PID == pid {
				return cl, true
			}
		}
	}
	return ClientInfo{}, false
}
