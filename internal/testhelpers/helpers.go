// Package testhelpers provides common utilities for testing the gochat server.
//
// It holds the dialing, reading and waiting helpers shared by the chat and
// server package tests so each test file can stay focused on behaviour.
package testhelpers

import (
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// TestOrigin is the Origin header sent by ConnectWebSocket.
const TestOrigin = "http://localhost:8080"

// Join dials addr over TCP and sends name as the first message.
func Join(t *testing.T, addr, name string) net.Conn {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if _, err := conn.Write([]byte(name)); err != nil {
		t.Fatalf("Failed to send name %q: %v", name, err)
	}
	return conn
}

// Send writes msg to conn, failing the test on error.
func Send(t *testing.T, conn net.Conn, msg string) {
	t.Helper()
	if _, err := conn.Write([]byte(msg)); err != nil {
		t.Fatalf("Failed to send %q: %v", msg, err)
	}
}

// ReadUntil reads from conn until the accumulated text contains want, and
// returns everything read. Reads may deliver several messages at once or one
// message in pieces, so callers match on substrings.
func ReadUntil(t *testing.T, conn net.Conn, want string, timeout time.Duration) string {
	t.Helper()

	var got strings.Builder
	buf := make([]byte, 4096)
	deadline := time.Now().Add(timeout)

	for !strings.Contains(got.String(), want) {
		if err := conn.SetReadDeadline(deadline); err != nil {
			t.Fatalf("Failed to set read deadline: %v", err)
		}
		n, err := conn.Read(buf)
		got.Write(buf[:n])
		if err != nil {
			if strings.Contains(got.String(), want) {
				break
			}
			t.Fatalf("Expected to receive %q, got %q (read error: %v)", want, got.String(), err)
		}
	}
	_ = conn.SetReadDeadline(time.Time{})
	return got.String()
}

// ExpectNoMessage fails the test if conn delivers any bytes within wait.
func ExpectNoMessage(t *testing.T, conn net.Conn, wait time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if n > 0 {
		t.Errorf("Expected no message, got %q", string(buf[:n]))
		return
	}
	if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Errorf("Expected read timeout, got %v", err)
	}
}

// WaitFor polls cond until it holds or timeout passes.
func WaitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out after %s waiting for %s", timeout, what)
}

// ConnectWebSocket creates a WebSocket connection to url with TestOrigin set.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	headers.Set("Origin", TestOrigin)

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// ReadWebSocketUntil reads text messages from conn until one contains want.
func ReadWebSocketUntil(t *testing.T, conn *websocket.Conn, want string, timeout time.Duration) string {
	t.Helper()

	var got strings.Builder
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	for !strings.Contains(got.String(), want) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Expected to receive %q, got %q (read error: %v)", want, got.String(), err)
		}
		got.Write(data)
		got.WriteByte('\n')
	}
	return got.String()
}
