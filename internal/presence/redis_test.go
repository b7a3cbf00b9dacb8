package presence

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping Redis presence tests")
	}

	r, err := NewRedis(context.Background(), Options{Addr: addr}, "test-"+uuid.NewString())
	if err != nil {
		t.Fatalf("NewRedis failed: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedisOnlineOffline(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()

	if err := r.Online(ctx, "a", "Alice"); err != nil {
		t.Fatalf("Online failed: %v", err)
	}
	if err := r.Online(ctx, "b", "Bob"); err != nil {
		t.Fatalf("Online failed: %v", err)
	}

	members, err := r.Members(ctx)
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if len(members) != 2 || members["a"] != "Alice" || members["b"] != "Bob" {
		t.Errorf("unexpected members %v", members)
	}

	if err := r.Offline(ctx, "a"); err != nil {
		t.Fatalf("Offline failed: %v", err)
	}
	if err := r.Offline(ctx, "a"); err != nil {
		t.Errorf("second Offline should be a no-op, got %v", err)
	}

	members, err = r.Members(ctx)
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if len(members) != 1 || members["b"] != "Bob" {
		t.Errorf("unexpected members after Offline %v", members)
	}
}

func TestNewRedisUnreachable(t *testing.T) {
	if _, err := NewRedis(context.Background(), Options{Addr: "127.0.0.1:1"}, "node"); err == nil {
		t.Error("expected an error for an unreachable server")
	}
}

func TestKey(t *testing.T) {
	if got := Key("node-1"); got != "gochat:presence:node-1" {
		t.Errorf("Key = %q", got)
	}
}
