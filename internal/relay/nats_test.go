package relay

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

func TestNATSRelayDeliversToOtherInstances(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set; skipping NATS relay tests")
	}
	subject := "gochat.test." + uuid.NewString()
	log := zaptest.NewLogger(t)

	a, err := Dial(url, subject, "a", log)
	if err != nil {
		t.Fatalf("Dial a failed: %v", err)
	}
	defer a.Close()
	b, err := Dial(url, subject, "b", log)
	if err != nil {
		t.Fatalf("Dial b failed: %v", err)
	}
	defer b.Close()

	gotA := make(chan []byte, 1)
	gotB := make(chan []byte, 1)
	if err := a.Subscribe(func(p []byte) { gotA <- p }); err != nil {
		t.Fatalf("Subscribe a failed: %v", err)
	}
	if err := b.Subscribe(func(p []byte) { gotB <- p }); err != nil {
		t.Fatalf("Subscribe b failed: %v", err)
	}
	if err := a.conn.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := b.conn.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if err := a.Publish(context.Background(), []byte("Alice: hello")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case p := <-gotB:
		if string(p) != "Alice: hello" {
			t.Errorf("b received %q", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("b did not receive the relayed message")
	}

	select {
	case p := <-gotA:
		t.Errorf("publisher received its own message %q", p)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDialUnreachable(t *testing.T) {
	if _, err := Dial("nats://127.0.0.1:1", "gochat.test", "x", nil); err == nil {
		t.Error("expected an error for an unreachable server")
	}
}
