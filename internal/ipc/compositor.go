package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// InvalidID is the compositor's sentinel for "this surface has no id".
const InvalidID = uint32(0xFFFFFFFF)

// SurfaceInfo is a surface's identity attributes as reported by the host.
// ID is InvalidID when the surface has not been assigned one.
type SurfaceInfo struct {
	AppID string
	Title string
	ID    uint32
}

// Client queries and dispatches against the compositor control socket. Each
// request opens a fresh connection, writes one command line, and reads one
// JSON reply.
type Client struct {
	socketPath string
}

type reply struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	AppID   string `json:"appId,omitempty"`
	Title   string `json:"title,omitempty"`
	Surface uint32 `json:"surfaceId,omitempty"`
	Handle  string `json:"handle,omitempty"`
}

// NewClient returns a compositor client using the default query socket path.
func NewClient() (*Client, error) {
	path, err := querySocketPath()
	if err != nil {
		return nil, err
	}
	return &Client{socketPath: path}, nil
}

// NewClientWithSocket returns a client bound to an explicit socket path.
func NewClientWithSocket(path string) *Client {
	return &Client{socketPath: path}
}

// Surface returns the identity attributes of the given surface.
func (c *Client) Surface(ctx context.Context, handle string) (SurfaceInfo, error) {
	rep, err := c.roundTrip(ctx, fmt.Sprintf("surface %s", handle))
	if err != nil {
		return SurfaceInfo{}, err
	}
	info := SurfaceInfo{AppID: rep.AppID, Title: rep.Title, ID: rep.Surface}
	return info, nil
}

// SetSurfaceID asks the host to assign id to the surface. The host may
// reject the assignment, for instance on an id conflict it can see and we
// cannot; rejection surfaces as an error.
func (c *Client) SetSurfaceID(ctx context.Context, handle string, id uint32) error {
	_, err := c.roundTrip(ctx, fmt.Sprintf("setid %s %d", handle, id))
	return err
}

// SurfaceByID returns the handle of the surface currently holding id, or ""
// when the id is free.
func (c *Client) SurfaceByID(ctx context.Context, id uint32) (string, error) {
	rep, err := c.roundTrip(ctx, fmt.Sprintf("byid %d", id))
	if err != nil {
		return "", err
	}
	return rep.Handle, nil
}

func (c *Client) roundTrip(ctx context.Context, command string) (reply, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return reply{}, fmt.Errorf("connect query socket: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return reply{}, fmt.Errorf("write query: %w", err)
	}
	var rep reply
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&rep); err != nil {
		return reply{}, fmt.Errorf("decode reply: %w", err)
	}
	if rep.Status != "ok" {
		if rep.Error == "" {
			rep.Error = "unknown compositor error"
		}
		return reply{}, errors.New(rep.Error)
	}
	return rep, nil
}

func querySocketPath() (string, error) {
	if env := os.Getenv("IVI_QUERY_SOCKET"); env != "" {
		return env, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", fmt.Errorf("XDG_RUNTIME_DIR not set")
	}
	return filepath.Join(runtimeDir, "ivi-compositor", "query.sock"), nil
}
