package chat

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func newTestClient(name string) *Client {
	c := newClient(newRecordingStream(name+":1"), TransportTCP, 0)
	c.name = name
	return c
}

func TestRegistryAddAndSnapshotOrder(t *testing.T) {
	reg := NewRegistry()
	alice, bob, carol := newTestClient("alice"), newTestClient("bob"), newTestClient("carol")

	for _, c := range []*Client{alice, bob, carol} {
		if err := reg.Add(c); err != nil {
			t.Fatalf("Add(%s) failed: %v", c.name, err)
		}
	}

	snap := reg.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Expected 3 clients, got %d", len(snap))
	}
	for i, want := range []*Client{alice, bob, carol} {
		if snap[i] != want {
			t.Errorf("Snapshot[%d] = %s, want %s", i, snap[i].name, want.name)
		}
	}

	reg.Remove(bob)
	snap = reg.Snapshot()
	if len(snap) != 2 || snap[0] != alice || snap[1] != carol {
		t.Errorf("Expected [alice carol] after removing bob, got %v", names(snap))
	}
}

func TestRegistryAddTwice(t *testing.T) {
	reg := NewRegistry()
	c := newTestClient("alice")

	if err := reg.Add(c); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	if err := reg.Add(c); !errors.Is(err, ErrAlreadyPresent) {
		t.Errorf("second Add returned %v, want ErrAlreadyPresent", err)
	}
	if reg.Len() != 1 {
		t.Errorf("Expected 1 client after duplicate Add, got %d", reg.Len())
	}
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	c := newTestClient("alice")

	if reg.Remove(c) {
		t.Error("Remove of a never-added client reported removal")
	}
	if err := reg.Add(c); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !reg.Remove(c) {
		t.Error("Remove of a registered client reported no removal")
	}
	if reg.Remove(c) {
		t.Error("second Remove reported removal")
	}
	if reg.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", reg.Len())
	}
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	reg := NewRegistry()
	alice := newTestClient("alice")
	if err := reg.Add(alice); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	snap := reg.Snapshot()
	reg.Remove(alice)
	if err := reg.Add(newTestClient("bob")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if len(snap) != 1 || snap[0] != alice {
		t.Errorf("Snapshot changed after registry mutation: %v", names(snap))
	}
}

// TestRegistryConcurrentJoinLeave checks that concurrent adds, removes and
// snapshots settle to exactly the clients that were added and not removed.
func TestRegistryConcurrentJoinLeave(t *testing.T) {
	const workers = 64
	reg := NewRegistry()

	clients := make([]*Client, workers)
	for i := range clients {
		clients[i] = newTestClient(fmt.Sprintf("client-%d", i))
	}

	var wg sync.WaitGroup
	wg.Add(workers * 2)
	for i, c := range clients {
		go func(i int, c *Client) {
			defer wg.Done()
			if err := reg.Add(c); err != nil {
				t.Errorf("Add(%s) failed: %v", c.name, err)
			}
			if i%2 == 0 {
				reg.Remove(c)
				reg.Remove(c)
			}
		}(i, c)
		go func() {
			defer wg.Done()
			for _, s := range reg.Snapshot() {
				if s == nil {
					t.Error("Snapshot contained a nil client")
				}
			}
		}()
	}
	wg.Wait()

	if got, want := reg.Len(), workers/2; got != want {
		t.Fatalf("Expected %d clients, got %d", want, got)
	}
	seen := make(map[*Client]bool)
	for _, c := range reg.Snapshot() {
		if seen[c] {
			t.Errorf("client %s appears twice", c.name)
		}
		seen[c] = true
	}
	for i, c := range clients {
		if want := i%2 == 1; seen[c] != want {
			t.Errorf("client %s present=%v, want %v", c.name, seen[c], want)
		}
	}
}

func names(clients []*Client) []string {
	out := make([]string, len(clients))
	for i, c := range clients {
		out[i] = c.name
	}
	return out
}
