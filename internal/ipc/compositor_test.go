package ipc

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// serveQueries answers each incoming connection with the canned reply keyed
// by the first token of the command line.
func serveQueries(t *testing.T, replies map[string]string) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "query.sock")
	listener, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				line, err := bufio.NewReader(conn).ReadString('\n')
				if err != nil {
					return
				}
				verb := strings.Fields(strings.TrimSpace(line))[0]
				reply, ok := replies[verb]
				if !ok {
					reply = `{"status":"error","error":"unknown command"}`
				}
				_, _ = conn.Write([]byte(reply + "\n"))
			}(conn)
		}
	}()
	return socket
}

func queryCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSurfaceQuery(t *testing.T) {
	socket := serveQueries(t, map[string]string{
		"surface": `{"status":"ok","appId":"navigation","title":"Nav","surfaceId":4294967295}`,
	})
	client := NewClientWithSocket(socket)
	info, err := client.Surface(queryCtx(t), "0xabc")
	if err != nil {
		t.Fatalf("surface query: %v", err)
	}
	if info.AppID != "navigation" || info.Title != "Nav" || info.ID != InvalidID {
		t.Fatalf("unexpected surface info: %+v", info)
	}
}

func TestSetSurfaceIDRejected(t *testing.T) {
	socket := serveQueries(t, map[string]string{
		"setid": `{"status":"error","error":"id conflict"}`,
	})
	client := NewClientWithSocket(socket)
	err := client.SetSurfaceID(queryCtx(t), "0xabc", 1000)
	if err == nil || !strings.Contains(err.Error(), "id conflict") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}

func TestSurfaceByID(t *testing.T) {
	socket := serveQueries(t, map[string]string{
		"byid": `{"status":"ok","handle":"0xdef"}`,
	})
	client := NewClientWithSocket(socket)
	handle, err := client.SurfaceByID(queryCtx(t), 2000)
	if err != nil {
		t.Fatalf("byid query: %v", err)
	}
	if handle != "0xdef" {
		t.Fatalf("expected handle 0xdef, got %q", handle)
	}
}

func TestSurfaceByIDFree(t *testing.T) {
	socket := serveQueries(t, map[string]string{
		"byid": `{"status":"ok"}`,
	})
	client := NewClientWithSocket(socket)
	handle, err := client.SurfaceByID(queryCtx(t), 2000)
	if err != nil {
		t.Fatalf("byid query: %v", err)
	}
	if handle != "" {
		t.Fatalf("expected empty handle for free id, got %q", handle)
	}
}
