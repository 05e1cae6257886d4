package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
)

// BindingName is the global function the preload script calls to reach the
// bridge.
const BindingName = "__jumpresBridge"

// ZoomStep is the scale factor of one zoom level.
const ZoomStep = 1.2

const userStyleElementID = "jumpres-userstyles"

//go:embed preload.js
var preloadTemplate string

// PreloadScript returns the script that defines window.jumpres.invoke in
// every document.
func PreloadScript() string {
	return strings.ReplaceAll(preloadTemplate, "__BINDING__", BindingName)
}

// BindingHandler serves one window.jumpres.invoke call from the page.
type BindingHandler func(ctx context.Context, op string, arg json.RawMessage) (any, error)

// Caller issues CDP commands and subscribes to events. *Client implements it.
type Caller interface {
	Call(ctx context.Context, method string, params, result any) error
	On(method string, fn func(params json.RawMessage))
}

// Page drives the single app page: reload, zoom, injected styles and the
// in-page bridge.
type Page struct {
	cdp    Caller
	logger *slog.Logger

	mu      sync.Mutex
	zoom    float64
	css     string
	onLoad  func()
	binding BindingHandler
}

func NewPage(cdp Caller, logger *slog.Logger) *Page {
	if logger == nil {
		logger = slog.Default()
	}
	return &Page{cdp: cdp, logger: logger, zoom: 1}
}

// OnLoad sets the callback run after every page load, once zoom and styles
// have been re-applied.
func (p *Page) OnLoad(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLoad = fn
}

// SetBindingHandler sets the handler for bridge calls from the page.
func (p *Page) SetBindingHandler(fn BindingHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.binding = fn
}

// Attach enables the domains the page needs, installs the bridge binding
// and preload script, and installs the preload in the current document too
// since it may have loaded before we connected.
func (p *Page) Attach(ctx context.Context) error {
	p.cdp.On("Page.loadEventFired", func(json.RawMessage) { p.handleLoad() })
	p.cdp.On("Runtime.bindingCalled", p.handleBindingCalled)

	for _, method := range []string{"Page.enable", "Runtime.enable"} {
		if err := p.cdp.Call(ctx, method, nil, nil); err != nil {
			return err
		}
	}
	if err := p.cdp.Call(ctx, "Runtime.addBinding", map[string]any{"name": BindingName}, nil); err != nil {
		return err
	}
	script := PreloadScript()
	if err := p.cdp.Call(ctx, "Page.addScriptToEvaluateOnNewDocument", map[string]any{"source": script}, nil); err != nil {
		return err
	}
	return p.evaluate(ctx, script, 0)
}

// Loaded reports whether the current document has finished loading.
func (p *Page) Loaded(ctx context.Context) (bool, error) {
	var res evaluateResult
	err := p.cdp.Call(ctx, "Runtime.evaluate", map[string]any{
		"expression":    `document.readyState === "complete"`,
		"returnByValue": true,
	}, &res)
	if err != nil {
		return false, err
	}
	if res.ExceptionDetails != nil {
		return false, fmt.Errorf("readyState check failed: %s", res.ExceptionDetails.Text)
	}
	var loaded bool
	_ = json.Unmarshal(res.Result.Value, &loaded)
	return loaded, nil
}

func (p *Page) Reload(ctx context.Context) error {
	return p.cdp.Call(ctx, "Page.reload", map[string]any{"ignoreCache": false}, nil)
}

// ZoomFactor converts a zoom level to a scale factor: level 0 is 100% and
// each level scales by ZoomStep.
func ZoomFactor(level float64) float64 {
	return math.Pow(ZoomStep, level)
}

// SetZoomLevel scales the page and keeps the scale across reloads.
func (p *Page) SetZoomLevel(ctx context.Context, level float64) error {
	p.mu.Lock()
	p.zoom = ZoomFactor(level)
	p.mu.Unlock()
	return p.apply(ctx)
}

// InjectCSS replaces the injected user stylesheet and keeps it across
// reloads. An empty css removes it.
func (p *Page) InjectCSS(ctx context.Context, css string) error {
	p.mu.Lock()
	p.css = css
	p.mu.Unlock()
	return p.apply(ctx)
}

// Close asks the browser to shut down.
func (p *Page) Close(ctx context.Context) error {
	return p.cdp.Call(ctx, "Browser.close", nil, nil)
}

func (p *Page) apply(ctx context.Context) error {
	p.mu.Lock()
	zoom, css := p.zoom, p.css
	p.mu.Unlock()
	return p.evaluate(ctx, applyExpression(zoom, css), 0)
}

// applyExpression builds the script that sets the page zoom and the user
// stylesheet.
func applyExpression(zoom float64, css string) string {
	zoomArg, _ := json.Marshal(zoom)
	cssArg, _ := json.Marshal(css)
	idArg, _ := json.Marshal(userStyleElementID)
	return fmt.Sprintf(`((zoom, css, id) => {
  const root = document.documentElement;
  if (!root) return;
  root.style.zoom = zoom === 1 ? "" : String(zoom);
  let el = document.getElementById(id);
  if (!css) {
    if (el) el.remove();
    return;
  }
  if (!el) {
    el = document.createElement("style");
    el.id = id;
    (document.head || root).appendChild(el);
  }
  el.textContent = css;
})(%s, %s, %s)`, zoomArg, cssArg, idArg)
}

type evaluateResult struct {
	Result struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"result"`
	ExceptionDetails *struct {
		Text string `json:"text"`
	} `json:"exceptionDetails"`
}

func (p *Page) evaluate(ctx context.Context, expression string, contextID int64) error {
	params := map[string]any{"expression": expression}
	if contextID != 0 {
		params["contextId"] = contextID
	}
	var res evaluateResult
	if err := p.cdp.Call(ctx, "Runtime.evaluate", params, &res); err != nil {
		return err
	}
	if res.ExceptionDetails != nil {
		return fmt.Errorf("script failed: %s", res.ExceptionDetails.Text)
	}
	return nil
}

func (p *Page) handleLoad() {
	if err := p.apply(context.Background()); err != nil {
		p.logger.Warn("failed to restore zoom and styles after load", "error", err)
	}

	p.mu.Lock()
	fn := p.onLoad
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type bindingCall struct {
	Name               string `json:"name"`
	Payload            string `json:"payload"`
	ExecutionContextID int64  `json:"executionContextId"`
}

type bindingPayload struct {
	ID  int64           `json:"id"`
	Op  string          `json:"op"`
	Arg json.RawMessage `json:"arg"`
}

type bindingReply struct {
	OK    bool   `json:"ok"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

func (p *Page) handleBindingCalled(params json.RawMessage) {
	var call bindingCall
	if err := json.Unmarshal(params, &call); err != nil || call.Name != BindingName {
		return
	}
	var payload bindingPayload
	if err := json.Unmarshal([]byte(call.Payload), &payload); err != nil {
		p.logger.Debug("ignoring malformed bridge call", "error", err)
		return
	}

	p.mu.Lock()
	handler := p.binding
	p.mu.Unlock()

	// Served off the event goroutine: the handler may block on the window
	// controller.
	go func() {
		ctx := context.Background()
		reply := bindingReply{Error: "bridge unavailable"}
		if handler != nil {
			value, err := handler(ctx, payload.Op, payload.Arg)
			if err != nil {
				reply = bindingReply{Error: err.Error()}
			} else {
				reply = bindingReply{OK: true, Value: value}
			}
		}
		if err := p.evaluate(ctx, resolveExpression(payload.ID, reply), call.ExecutionContextID); err != nil {
			p.logger.Debug("failed to deliver bridge reply", "op", payload.Op, "error", err)
		}
	}()
}

func resolveExpression(id int64, reply bindingReply) string {
	data, err := json.Marshal(reply)
	if err != nil {
		data = []byte(`{"ok":false,"error":"unencodable result"}`)
	}
	return fmt.Sprintf("window.__jumpresResolve && window.__jumpresResolve(%d, %s)", id, data)
}
