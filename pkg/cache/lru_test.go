package cache

import (
	"context"
	"bytes"
	"testing"
	"time"
)

func TestLRUCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(4)

	if err := c.Set(ctx, "a", []byte("alpha"), 0); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	data, ok, err := c.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !ok || !bytes.Equal(data, []byte("alpha")) {
		t.Errorf("got (%q, %v), want (alpha, true)", data, ok)
	}

	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Error("Get() returned true for missing key")
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(2)

	c.Set(ctx, "a", []byte("1"), 0)
	c.Set(ctx, "b", []byte("2"), 0)

	// Access A so B becomes least recently used.
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("a should be present")
	}

	c.Set(ctx, "c", []byte("3"), 0)

	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Error("a should survive: it was most recently used")
	}
	if _, ok, _ := c.Get(ctx, "c"); !ok {
		t.Error("c should be present")
	}
	if got := c.Len(); got != 2 {
		t.Errorf("got Len %d, want 2", got)
	}
}

func TestLRUCache_UpdateDoesNotGrow(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(2)

	c.Set(ctx, "a", []byte("1"), 0)
	c.Set(ctx, "b", []byte("2"), 0)
	c.Set(ctx, "a", []byte("1b"), 0)

	if got := c.Len(); got != 2 {
		t.Errorf("got Len %d, want 2", got)
	}

	data, ok, _ := c.Get(ctx, "a")
	if !ok || string(data) != "1b" {
		t.Errorf("got (%q, %v), want updated value", data, ok)
	}
	// The update refreshed a; b is now the eviction candidate.
	c.Set(ctx, "c", []byte("3"), 0)
	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Error("b should have been evicted after a was refreshed")
	}
}

func TestLRUCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(4)

	c.Set(ctx, "a", []byte("1"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("expired entry should be a miss")
	}
	if got := c.Len(); got != 0 {
		t.Errorf("expired entry should be dropped, Len = %d", got)
	}
}

func TestLRUCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(2)

	c.Set(ctx, "a", []byte("1"), 0)
	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Errorf("deleting a missing key should not error: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("deleted key should be a miss")
	}
}
