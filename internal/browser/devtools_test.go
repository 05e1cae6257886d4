package browser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActivePort(t *testing.T) {
	port, path, err := ParseActivePort([]byte("41235\n/devtools/browser/0f1e-22\n"))
	require.NoError(t, err)
	assert.Equal(t, 41235, port)
	assert.Equal(t, "/devtools/browser/0f1e-22", path)

	port, path, err = ParseActivePort([]byte("9222"))
	require.NoError(t, err)
	assert.Equal(t, 9222, port)
	assert.Empty(t, path)

	for _, bad := range []string{"", "abc\n/x", "0\n", "70000\n"} {
		_, _, err := ParseActivePort([]byte(bad))
		assert.Error(t, err, "input %q", bad)
	}
}

func TestWaitActivePort(t *testing.T) {
	dir := t.TempDir()

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, activePortFile), []byte("5555\n/devtools/browser/x\n"), 0o600)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	port, err := WaitActivePort(ctx, dir, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 5555, port)
}

func TestWaitActivePortTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := WaitActivePort(ctx, t.TempDir(), 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListTargetsAndWaitPageTarget(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/list" {
			http.NotFound(w, r)
			return
		}
		targets := []Target{{ID: "sw", Type: "service_worker", WebSocketDebuggerURL: "ws://x/sw"}}
		// The page target appears on the second poll.
		if requests.Add(1) > 1 {
			targets = append(targets, Target{
				ID:                   "page-1",
				Type:                 "page",
				Title:                "JumPres Viewer",
				URL:                  "https://example.test/app.html",
				WebSocketDebuggerURL: "ws://127.0.0.1/devtools/page/page-1",
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(targets)
	}))
	defer srv.Close()

	targets, err := ListTargets(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	_, ok := PageTarget(targets)
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	page, err := WaitPageTarget(ctx, srv.Client(), srv.URL, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "page-1", page.ID)
	assert.Equal(t, "ws://127.0.0.1/devtools/page/page-1", page.WebSocketDebuggerURL)
}

func TestListTargetsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := ListTargets(context.Background(), srv.Client(), srv.URL)
	assert.Error(t, err)
}

func TestDevToolsURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:9222", DevToolsURL(9222))
}
