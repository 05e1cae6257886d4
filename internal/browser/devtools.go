package browser

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// activePortFile is written into the profile directory by a browser started
// with --remote-debugging-port=0: the chosen port on the first line and the
// browser websocket path on the second.
const activePortFile = "DevToolsActivePort"

// Target is one entry of the DevTools /json/list endpoint.
type Target struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// ParseActivePort parses the contents of a DevToolsActivePort file.
func ParseActivePort(data []byte) (port int, path string, err error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() {
		return 0, "", fmt.Errorf("%s is empty", activePortFile)
	}
	port, err = strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || port <= 0 || port > 65535 {
		return 0, "", fmt.Errorf("invalid devtools port %q", sc.Text())
	}
	if sc.Scan() {
		path = strings.TrimSpace(sc.Text())
	}
	return port, path, nil
}

// ReadActivePort reads the DevTools port from a profile directory.
func ReadActivePort(profileDir string) (int, string, error) {
	data, err := os.ReadFile(filepath.Join(profileDir, activePortFile))
	if err != nil {
		return 0, "", err
	}
	return ParseActivePort(data)
}

// WaitActivePort polls profileDir until the browser has published its
// DevTools port or ctx is done.
func WaitActivePort(ctx context.Context, profileDir string, poll time.Duration) (int, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		port, _, err := ReadActivePort(profileDir)
		if err == nil {
			return port, nil
		}
		if !errors.Is(err, os.ErrNotExist) && !strings.Contains(err.Error(), "empty") {
			return 0, err
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("waiting for devtools port: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// DevToolsURL returns the HTTP endpoint of a local DevTools server.
func DevToolsURL(port int) string {
	return "http://127.0.0.1:" + strconv.Itoa(port)
}

// ListTargets fetches the debuggable targets from a DevTools server.
func ListTargets(ctx context.Context, client *http.Client, baseURL string) ([]Target, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/json/list", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list devtools targets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("devtools target list: unexpected status %s", resp.Status)
	}

	var targets []Target
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return nil, fmt.Errorf("failed to decode devtools targets: %w", err)
	}
	return targets, nil
}

// PageTarget returns the first page target with a debugger endpoint.
func PageTarget(targets []Target) (Target, bool) {
	for _, t := range targets {
		if t.Type == "page" && t.WebSocketDebuggerURL != "" {
			return t, true
		}
	}
	return Target{}, false
}

// WaitPageTarget polls the DevTools server until the app page shows up.
func WaitPageTarget(ctx context.Context, client *http.Client, baseURL string, poll time.Duration) (Target, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var lastErr error
	for {
		targets, err := ListTargets(ctx, client, baseURL)
		if err == nil {
			if t, ok := PageTarget(targets); ok {
				return t, nil
			}
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return Target{}, fmt.Errorf("waiting for page target: %w (last error: %v)", ctx.Err(), lastErr)
			}
			return Target{}, fmt.Errorf("waiting for page target: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
