// Package client talks to the running id agent over its control socket.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/saimizi/ivi-id-agent/internal/control"
)

// defaultTimeout is used when the caller does not provide a context deadline.
const defaultTimeout = 3 * time.Second

// Client issues control requests against the agent daemon.
type Client struct {
	socketPath string
}

type (
	// StatusSnapshot mirrors the daemon's status payload.
	StatusSnapshot = control.StatusSnapshot
	// MetricsSnapshot mirrors the daemon's metrics payload.
	MetricsSnapshot = control.MetricsSnapshot
)

// New creates a client that connects to the provided socket path. When path
// is empty, the default runtime path is used.
func New(path string) (*Client, error) {
	if path == "" {
		var err error
		path, err = control.DefaultSocketPath()
		if err != nil {
			return nil, err
		}
	}
	return &Client{socketPath: path}, nil
}

// Status retrieves rule bindings, allocator state, and store connectivity.
func (c *Client) Status(ctx context.Context) (StatusSnapshot, error) {
	var snapshot StatusSnapshot
	if err := c.do(ctx, control.Request{Action: control.ActionStatus}, &snapshot); err != nil {
		return StatusSnapshot{}, err
	}
	return snapshot, nil
}

// Metrics retrieves the daemon's assignment counters.
func (c *Client) Metrics(ctx context.Context) (MetricsSnapshot, error) {
	var snapshot MetricsSnapshot
	if err := c.do(ctx, control.Request{Action: control.ActionMetrics}, &snapshot); err != nil {
		return MetricsSnapshot{}, err
	}
	return snapshot, nil
}

func (c *Client) do(ctx context.Context, req control.Request, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("dial control socket: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	var resp control.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != control.StatusOK {
		if resp.Error == "" {
			resp.Error = "unknown control error"
		}
		return errors.New(resp.Error)
	}
	if out == nil || resp.Data == nil {
		return nil
	}
	data, err := json.Marshal(resp.Data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
