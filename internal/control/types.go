package control

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/saimizi/ivi-id-agent/internal/engine"
	"github.com/saimizi/ivi-id-agent/internal/metrics"
)

const (
	// SocketFileName is the filename of the control socket within the runtime dir.
	SocketFileName = "control.sock"

	// Action names supported by the control protocol.
	ActionStatus  = "status"
	ActionMetrics = "metrics"

	// Response statuses.
	StatusOK    = "ok"
	StatusError = "error"
)

// Request represents a control API request.
type Request struct {
	Action string `json:"action"`
}

// Response represents a control API response.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// StatusSnapshot is the payload returned for the status action.
type StatusSnapshot struct {
	Rules          []engine.RuleStatus    `json:"rules"`
	Allocator      engine.AllocatorStatus `json:"allocator"`
	StoreConnected bool                   `json:"storeConnected"`
}

// MetricsSnapshot is the payload returned for the metrics action.
type MetricsSnapshot = metrics.Snapshot

// DefaultSocketPath returns the expected location of the agent control socket.
func DefaultSocketPath() (string, error) {
	if env := os.Getenv("IVI_ID_AGENT_CONTROL_SOCKET"); env != "" {
		return env, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	base := runtimeDir
	if base == "" {
		base = os.TempDir()
		if base == "" {
			return "", errors.New("no runtime directory available")
		}
	}
	return filepath.Join(base, "ivi-id-agent", SocketFileName), nil
}
