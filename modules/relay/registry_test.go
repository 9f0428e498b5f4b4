package relay

import "testing"

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	if got := reg.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}

	a := newFakeClient("conn-a")
	b := newFakeClient("conn-b")
	reg.Add(a)
	reg.Add(b)
	if got := reg.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}

	// Re-adding the same id must not grow the registry.
	reg.Add(a)
	if got := reg.Count(); got != 2 {
		t.Fatalf("Count() after duplicate Add = %d, want 2", got)
	}

	seen := map[string]bool{}
	reg.Each(func(c Client) { seen[c.ID()] = true })
	if !seen["conn-a"] || !seen["conn-b"] {
		t.Fatalf("Each() visited %v, want both connections", seen)
	}

	reg.Remove("conn-a")
	if got := reg.Count(); got != 1 {
		t.Fatalf("Count() after Remove = %d, want 1", got)
	}

	// Removing an unknown id is a no-op.
	reg.Remove("conn-a")
	reg.Remove("never-added")
	if got := reg.Count(); got != 1 {
		t.Fatalf("Count() after redundant Remove = %d, want 1", got)
	}
}

func TestRegistry_EachIteratesSnapshot(t *testing.T) {
	reg := NewRegistry()
	reg.Add(newFakeClient("conn-a"))
	reg.Add(newFakeClient("conn-b"))

	// Mutating the registry from inside the callback must not deadlock.
	visited := 0
	reg.Each(func(c Client) {
		visited++
		reg.Remove(c.ID())
	})
	if visited != 2 {
		t.Fatalf("Each() visited %d connections, want 2", visited)
	}
	if got := reg.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}
}
