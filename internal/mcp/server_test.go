package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jumpres/viewer/internal/bridge"
	"github.com/jumpres/viewer/internal/geometry"
	"github.com/jumpres/viewer/internal/ipc"
	"github.com/jumpres/viewer/internal/viewer"
)

type invocation struct {
	op  string
	arg any
}

type fakeViewer struct {
	mu      sync.Mutex
	calls   []invocation
	failOp  string
	focused bool
	status  ipc.StatusData
}

func (f *fakeViewer) Invoke(op string, arg any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invocation{op, arg})
	if op == f.failOp {
		return nil, errors.New("viewer error: no window")
	}
	return nil, nil
}

func (f *fakeViewer) InvokeBool(op string) (bool, error) {
	switch op {
	case bridge.OpIsFocused:
		return f.focused, nil
	case bridge.OpIsPlatformVariant:
		return f.status.PlatformVariant, nil
	}
	return false, errors.New("unexpected op " + op)
}

func (f *fakeViewer) GetStatus() (*ipc.StatusData, error) {
	st := f.status
	return &st, nil
}

func (f *fakeViewer) recorded() []invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]invocation(nil), f.calls...)
}

func connect(t *testing.T, v Viewer) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()
	srv := NewServer(v, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	ss, err := srv.mcpServer.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcpsdk.ClientSession, name string, args map[string]any, out any) *mcpsdk.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		data, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return res
}

func TestListTools(t *testing.T) {
	cs := connect(t, &fakeViewer{})
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"status", "is_focused", "is_platform_variant", "reload",
		"set_fullscreen", "set_on_top", "set_zoom",
	}, names)
}

func TestStateTools(t *testing.T) {
	fake := &fakeViewer{}
	cs := connect(t, fake)

	var out AppliedOutput
	res := callTool(t, cs, "set_fullscreen", map[string]any{"on": true}, &out)
	assert.False(t, res.IsError)
	assert.True(t, out.Applied)

	callTool(t, cs, "set_on_top", map[string]any{"on": false}, nil)
	callTool(t, cs, "set_zoom", map[string]any{"level": 1.5}, nil)
	callTool(t, cs, "reload", nil, nil)

	assert.Equal(t, []invocation{
		{bridge.OpSetFullscreen, true},
		{bridge.OpSetOnTop, false},
		{bridge.OpSetZoom, 1.5},
		{bridge.OpReload, nil},
	}, fake.recorded())
}

func TestToolErrorIsReported(t *testing.T) {
	fake := &fakeViewer{failOp: bridge.OpReload}
	cs := connect(t, fake)

	res := callTool(t, cs, "reload", nil, nil)
	assert.True(t, res.IsError)
}

func TestQueryTools(t *testing.T) {
	fake := &fakeViewer{
		focused: true,
		status: ipc.StatusData{
			Status: viewer.Status{
				HasWindow: true,
				Ready:     true,
				Title:     "JumPres",
				State:     viewer.WindowState{ZoomLevel: 2, AlwaysOnTop: true},
				RatioLock: "intercepted",
				Insets:    &geometry.Insets{Width: 2, Height: 30},
			},
			PlatformVariant: true,
			Version:         "1.0.0",
		},
	}
	cs := connect(t, fake)

	var focused FocusedOutput
	callTool(t, cs, "is_focused", nil, &focused)
	assert.True(t, focused.Focused)

	var variant PlatformVariantOutput
	callTool(t, cs, "is_platform_variant", nil, &variant)
	assert.True(t, variant.PlatformVariant)

	var status StatusOutput
	callTool(t, cs, "status", nil, &status)
	assert.True(t, status.Ready)
	assert.Equal(t, "JumPres", status.Title)
	assert.Equal(t, 2.0, status.ZoomLevel)
	assert.True(t, status.AlwaysOnTop)
	assert.Equal(t, "intercepted", status.RatioLock)
	require.NotNil(t, status.Insets)
	assert.Equal(t, 30, status.Insets.Height)
	assert.Equal(t, "1.0.0", status.Version)
}
