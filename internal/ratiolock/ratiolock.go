package ratiolock

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jumpres/viewer/internal/geometry"
	"github.com/jumpres/viewer/internal/platform"
)

// Kind selects how the aspect ratio is enforced.
type Kind int

const (
	// KindNative delegates to the window system's own aspect constraint.
	KindNative Kind = iota
	// KindIntercepted corrects every resize request itself.
	KindIntercepted
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindIntercepted:
		return "intercepted"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Window is the part of a platform window a ratio lock needs.
type Window interface {
	OuterSize() (geometry.Bounds, error)
	SetBounds(outer geometry.Bounds) error
	SetAspectRatio(r geometry.Ratio) error
	OnWillResize(fn func(ev *platform.ResizeEvent))
}

// Policy is the ratio enforcement strategy chosen once per window.
type Policy struct {
	Kind  Kind
	Ratio geometry.Ratio
}

// Select picks the native lock when the platform's built-in constraint is
// reliable and the intercepting lock otherwise.
func Select(nativeReliable bool, r geometry.Ratio) Policy {
	if nativeReliable {
		return Policy{Kind: KindNative, Ratio: r}
	}
	return Policy{Kind: KindIntercepted, Ratio: r}
}

// Lock is an installed policy.
type Lock struct {
	kind   Kind
	ratio  geometry.Ratio
	insets geometry.Insets
	win    Window
	logger *slog.Logger

	mu        sync.Mutex
	applied   geometry.Bounds
	installed bool
}

// Install applies the policy to win. insets must be the measured chrome
// insets of win.
func (p Policy) Install(win Window, insets geometry.Insets, logger *slog.Logger) (*Lock, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !p.Ratio.Valid() {
		return nil, fmt.Errorf("%w: ratio %s", geometry.ErrInvalidGeometry, p.Ratio)
	}

	l := &Lock{
		kind:   p.Kind,
		ratio:  p.Ratio,
		insets: insets,
		win:    win,
		logger: logger,
	}

	switch p.Kind {
	case KindNative:
		if err := win.SetAspectRatio(p.Ratio); err != nil {
			return nil, fmt.Errorf("failed to set native aspect ratio: %w", err)
		}
	case KindIntercepted:
		if err := l.correctInitial(); err != nil {
			return nil, err
		}
		win.OnWillResize(l.handleWillResize)
	default:
		return nil, fmt.Errorf("unknown ratio lock kind %d", int(p.Kind))
	}

	l.mu.Lock()
	l.installed = true
	l.mu.Unlock()

	logger.Info("ratio lock installed", "kind", p.Kind.String(), "ratio", p.Ratio.String(),
		"extra_width", insets.Width, "extra_height", insets.Height)
	return l, nil
}

// correctInitial reshapes the window once, since the size it was created
// with need not satisfy the ratio.
func (l *Lock) correctInitial() error {
	outer, err := l.win.OuterSize()
	if err != nil {
		return fmt.Errorf("failed to read initial window size: %w", err)
	}
	corrected, err := geometry.ConstrainToRatio(outer, l.insets, l.ratio, geometry.PivotWidth)
	if err != nil {
		return err
	}
	if corrected != outer {
		if err := l.win.SetBounds(corrected); err != nil {
			return fmt.Errorf("failed to apply initial bounds %s: %w", corrected, err)
		}
	}
	l.mu.Lock()
	l.applied = corrected
	l.mu.Unlock()
	return nil
}

// handleWillResize runs synchronously inside the window system's resize
// dispatch. Re-applying corrected bounds may deliver another event for those
// bounds; since they are a fixed point of ConstrainToRatio that event is
// accepted unchanged and the loop ends there.
func (l *Lock) handleWillResize(ev *platform.ResizeEvent) {
	l.mu.Lock()
	previous := l.applied
	l.mu.Unlock()

	pivot := geometry.DetectPivot(previous, ev.Requested)
	corrected, err := geometry.ConstrainToRatio(ev.Requested, l.insets, l.ratio, pivot)
	if err != nil {
		l.logger.Warn("resize left unconstrained", "requested", ev.Requested.String(), "error", err)
		return
	}

	l.mu.Lock()
	l.applied = corrected
	l.mu.Unlock()

	if corrected == ev.Requested {
		return
	}

	ev.PreventDefault()
	if err := l.win.SetBounds(corrected); err != nil {
		l.logger.Warn("failed to apply corrected bounds", "bounds", corrected.String(), "error", err)
		return
	}
	l.logger.Debug("resize corrected", "requested", ev.Requested.String(), "applied", corrected.String(), "pivot", pivot.String())
}

// Kind returns the installed variant.
func (l *Lock) Kind() Kind {
	return l.kind
}

// Installed reports whether the lock is still active.
func (l *Lock) Installed() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.installed
}

// Applied returns the last outer bounds the lock settled on. It is zero for
// native locks.
func (l *Lock) Applied() geometry.Bounds {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.applied
}

// Uninstall stops intercepting resizes. Native constraints stay on the
// window since they are a property of it.
func (l *Lock) Uninstall() {
	if l == nil {
		return
	}
	l.mu.Lock()
	wasInstalled := l.installed
	l.installed = false
	l.mu.Unlock()

	if wasInstalled && l.kind == KindIntercepted {
		l.win.OnWillResize(nil)
	}
}
