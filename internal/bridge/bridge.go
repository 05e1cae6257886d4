// Package bridge maps the named remote-control operations onto the window
// controller. It only coerces argument types; all policy lives in the
// controller.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

const (
	OpIsFocused         = "is-focused"
	OpIsPlatformVariant = "is-app-platform-variant"
	OpReload            = "reload"
	OpSetFullscreen     = "set-fullscreen"
	OpSetOnTop          = "set-on-top"
	OpSetZoom           = "set-zoom"

	// OpIsSteam is the name the hosted page historically used for
	// OpIsPlatformVariant.
	OpIsSteam = "is-steam"
)

// Controller is the window controller surface the bridge drives.
type Controller interface {
	IsFocused() bool
	Reload() error
	SetFullscreen(on bool) error
	SetAlwaysOnTop(on bool) error
	SetZoom(level float64) error
}

// Request invokes one operation by name.
type Request struct {
	Op  string          `json:"op"`
	Arg json.RawMessage `json:"arg,omitempty"`
}

// NewRequest builds a request, encoding arg unless it is nil.
func NewRequest(op string, arg any) (Request, error) {
	req := Request{Op: op}
	if arg == nil {
		return req, nil
	}
	data, err := json.Marshal(arg)
	if err != nil {
		return Request{}, fmt.Errorf("failed to encode %s argument: %w", op, err)
	}
	req.Arg = data
	return req, nil
}

// Response carries an operation's result. Value is nil for operations
// without a result.
type Response struct {
	OK    bool   `json:"ok"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

type handlerFunc func(ctx context.Context, arg json.RawMessage) (any, error)

// Bridge dispatches requests to a Controller.
type Bridge struct {
	ctrl            Controller
	platformVariant bool
	logger          *slog.Logger
	handlers        map[string]handlerFunc
}

// New returns a bridge over ctrl. platformVariant is the value reported by
// is-app-platform-variant.
func New(ctrl Controller, platformVariant bool, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{
		ctrl:            ctrl,
		platformVariant: platformVariant,
		logger:          logger,
	}
	b.handlers = map[string]handlerFunc{
		OpIsFocused:         b.isFocused,
		OpIsPlatformVariant: b.isPlatformVariant,
		OpIsSteam:           b.isPlatformVariant,
		OpReload:            b.reload,
		OpSetFullscreen:     b.setFullscreen,
		OpSetOnTop:          b.setOnTop,
		OpSetZoom:           b.setZoom,
	}
	return b
}

// Ops lists the operation names the bridge accepts, aliases included.
func (b *Bridge) Ops() []string {
	ops := make([]string, 0, len(b.handlers))
	for op := range b.handlers {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Handle runs one request. It never panics on bad input; failures come back
// as a response with OK false.
func (b *Bridge) Handle(ctx context.Context, req Request) Response {
	h, ok := b.handlers[req.Op]
	if !ok {
		b.logger.Debug("unknown bridge operation", "op", req.Op)
		return Response{Error: fmt.Sprintf("unknown operation %q", req.Op)}
	}

	value, err := h(ctx, req.Arg)
	if err != nil {
		b.logger.Warn("bridge operation failed", "op", req.Op, "error", err)
		return Response{Error: err.Error()}
	}
	b.logger.Debug("bridge operation", "op", req.Op, "arg", string(req.Arg))
	return Response{OK: true, Value: value}
}

// Invoke is Handle for transports that report failures as errors, such as
// the in-page binding.
func (b *Bridge) Invoke(ctx context.Context, op string, arg json.RawMessage) (any, error) {
	resp := b.Handle(ctx, Request{Op: op, Arg: arg})
	if !resp.OK {
		return nil, errors.New(resp.Error)
	}
	return resp.Value, nil
}

func (b *Bridge) isFocused(context.Context, json.RawMessage) (any, error) {
	return b.ctrl.IsFocused(), nil
}

func (b *Bridge) isPlatformVariant(context.Context, json.RawMessage) (any, error) {
	return b.platformVariant, nil
}

func (b *Bridge) reload(context.Context, json.RawMessage) (any, error) {
	return nil, b.ctrl.Reload()
}

func (b *Bridge) setFullscreen(_ context.Context, arg json.RawMessage) (any, error) {
	on, err := Bool(arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpSetFullscreen, err)
	}
	return nil, b.ctrl.SetFullscreen(on)
}

func (b *Bridge) setOnTop(_ context.Context, arg json.RawMessage) (any, error) {
	on, err := Bool(arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpSetOnTop, err)
	}
	return nil, b.ctrl.SetAlwaysOnTop(on)
}

func (b *Bridge) setZoom(_ context.Context, arg json.RawMessage) (any, error) {
	level, err := Number(arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpSetZoom, err)
	}
	return nil, b.ctrl.SetZoom(level)
}
