package cache

import (
	"testing"
	"time"
)

func TestTTLCacheGetSet(t *testing.T) {
	c := NewTTLCache[string](4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("a", "alpha")
	got, ok := c.Get("a")
	if !ok || got != "alpha" {
		t.Fatalf("Get(a) = %q, %v; want alpha, true", got, ok)
	}

	c.Set("a", "alpha2")
	got, _ = c.Get("a")
	if got != "alpha2" {
		t.Fatalf("Get(a) after overwrite = %q; want alpha2", got)
	}
	if c.Size() != 1 {
		t.Fatalf("Size = %d; want 1", c.Size())
	}
}

func TestTTLCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewTTLCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // b is now least recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected c to be present")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[int](4, -time.Second) // everything is born expired

	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected expired entry to miss")
	}

	c.Set("b", 2)
	c.Set("c", 3)
	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired = %d; want 2", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size after cleanup = %d; want 0", c.Size())
	}
}

func TestTTLCacheDelete(t *testing.T) {
	c := NewTTLCache[int](4, time.Minute)

	c.Set("a", 1)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected deleted entry to miss")
	}
	c.Delete("a") // deleting a missing key is a no-op
}
