package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/jumpres/viewer/internal/bridge"
	"github.com/jumpres/viewer/internal/runtimepath"
)

// Client handles IPC communication with a running viewer
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default socket
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the socket at socketPath
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to viewer: %w (is jumpres running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("viewer error: %s", resp.Error)
	}

	return &resp, nil
}

// Invoke runs one bridge operation and returns its raw JSON result, which
// is empty for operations without one.
func (c *Client) Invoke(op string, arg any) (json.RawMessage, error) {
	breq, err := bridge.NewRequest(op, arg)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(breq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bridge payload: %w", err)
	}

	resp, err := c.sendRequest(&Request{
		Command: CommandBridge,
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// InvokeBool runs an operation whose result is a bool.
func (c *Client) InvokeBool(op string) (bool, error) {
	data, err := c.Invoke(op, nil)
	if err != nil {
		return false, err
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return false, fmt.Errorf("unexpected %s result %q: %w", op, data, err)
	}
	return v, nil
}

// GetStatus retrieves the viewer's status
func (c *Client) GetStatus() (*StatusData, error) {
	req := &Request{
		Command: CommandGetStatus,
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// ListOps retrieves the bridge operation names
func (c *Client) ListOps() ([]string, error) {
	resp, err := c.sendRequest(&Request{Command: CommandListOps})
	if err != nil {
		return nil, err
	}

	var data OpsData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse ops data: %w", err)
	}
	return data.Ops, nil
}

// Ping checks if the viewer is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
