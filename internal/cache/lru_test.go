package cache

import (
	"testing"
	"time"
)

type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time          { return c.t }
func (c *stepClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLRUCacheExpiry(t *testing.T) {
	clk := &stepClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[float64](8, 24*time.Hour, clk.Now)

	c.Set("INR:USD", 0.012)

	clk.Advance(24*time.Hour - time.Minute)
	if v, ok := c.Get("INR:USD"); !ok || v != 0.012 {
		t.Fatalf("expected hit before ttl, got %v %v", v, ok)
	}

	clk.Advance(time.Minute)
	if _, ok := c.Get("INR:USD"); ok {
		t.Fatal("expected miss at exactly ttl")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry not dropped on lookup, size %d", c.Size())
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour, nil)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should still be cached")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be cached")
	}
}

func TestLRUCacheStatsAndPurge(t *testing.T) {
	c := NewLRUCache[string](4, time.Hour, nil)
	c.Set("k", "v")
	c.Get("k")
	c.Get("missing")

	s := c.Stats()
	if s.Entries != 1 || s.Hits != 1 || s.Misses != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}

	c.Purge()
	if s := c.Stats(); s != (Stats{}) {
		t.Fatalf("expected empty stats after purge, got %+v", s)
	}
}

func TestLRUCacheOverwriteRefreshesTTL(t *testing.T) {
	clk := &stepClock{t: time.Unix(0, 0)}
	c := NewLRUCache[int](2, time.Hour, clk.Now)
	c.Set("k", 1)
	clk.Advance(50 * time.Minute)
	c.Set("k", 2)
	clk.Advance(50 * time.Minute)
	if v, ok := c.Get("k"); !ok || v != 2 {
		t.Fatalf("expected refreshed entry, got %v %v", v, ok)
	}
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after delete")
	}
}
