package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[int], *clock) {
	clk := &clock{t: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %d %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", 3)
	clk.t = clk.t.Add(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Fatalf("b was refreshed, expected nothing to clean, got %d", n)
	}
	clk.t = clk.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 || c.Size() != 0 {
		t.Fatalf("expected 1 expired entry, got %d (size %d)", n, c.Size())
	}
}

func TestLRUPurgeAndStats(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)
	c.Set("a", 1)
	c.Get("a")
	c.Get("missing")
	c.Purge()
	if _, ok := c.Get("a"); ok {
		t.Fatal("purge should drop everything")
	}
	s := c.Stats()
	if s.Hits != 1 || s.Misses != 2 || s.Size != 0 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestManagerCleanAll(t *testing.T) {
	c, clk := newTestCache(4, time.Second)
	c.Set("a", 1)
	m := NewManager(nil)
	m.Register(c)
	clk.t = clk.t.Add(2 * time.Second)
	if n := m.CleanAll(); n != 1 {
		t.Fatalf("expected 1 cleaned entry, got %d", n)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
