// Package ipc carries the unix-socket transport to the host compositor: the
// surface lifecycle event feed and the query/dispatch client.
package ipc

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/saimizi/ivi-id-agent/internal/util"
)

// Lifecycle event kinds emitted by the compositor.
const (
	EventConfigure = "configure"
	EventRemove    = "remove"
)

// Event represents one line of the compositor event stream. Payload is the
// surface handle the event refers to.
type Event struct {
	Kind    string
	Payload string
}

// Subscribe connects to the compositor event socket and streams events until
// context cancellation. Lines are framed as "kind>>payload".
func Subscribe(ctx context.Context, logger *util.Logger) (<-chan Event, error) {
	socket, err := eventSocketPath()
	if err != nil {
		return nil, err
	}
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("connect event socket: %w", err)
	}
	events := make(chan Event)
	go func() {
		defer close(events)
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			line := scanner.Text()
			parts := strings.SplitN(line, ">>", 2)
			ev := Event{Kind: parts[0]}
			if len(parts) == 2 {
				ev.Payload = strings.TrimSpace(parts[1])
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Warnf("event stream error: %v", err)
		}
	}()
	return events, nil
}

func eventSocketPath() (string, error) {
	if env := os.Getenv("IVI_EVENTS_SOCKET"); env != "" {
		return env, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", fmt.Errorf("XDG_RUNTIME_DIR not set")
	}
	return filepath.Join(runtimeDir, "ivi-compositor", "events.sock"), nil
}
