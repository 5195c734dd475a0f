package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLRU(size int, ttl time.Duration) (*LRU[int64, string], *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := NewLRU[int64, string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set(1, "a")
	c.Set(2, "b")
	if _, ok := c.Get(1); !ok {
		t.Fatal("1 missing")
	}
	c.Set(3, "c")

	if _, ok := c.Get(2); ok {
		t.Error("2 should have been evicted")
	}
	if v, ok := c.Get(1); !ok || v != "a" {
		t.Errorf("Get(1) = %q, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("size = %d", c.Size())
	}
	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("stats = %d hits, %d misses", hits, misses)
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clock := newTestLRU(10, time.Minute)
	c.Set(1, "a")
	c.Set(2, "b")
	clock.t = clock.t.Add(30 * time.Second)
	c.Set(2, "b2")

	clock.t = clock.t.Add(45 * time.Second)
	if _, ok := c.Get(1); ok {
		t.Error("1 should have expired")
	}
	if v, ok := c.Get(2); !ok || v != "b2" {
		t.Errorf("refreshed entry = %q, %v", v, ok)
	}

	clock.t = clock.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired = %d", n)
	}
	if c.Size() != 0 {
		t.Errorf("size after clean = %d", c.Size())
	}
}

func TestLRUDelete(t *testing.T) {
	c, _ := newTestLRU(0, time.Minute)
	c.Set(1, "a")
	c.Delete(1)
	c.Delete(42)
	if _, ok := c.Get(1); ok {
		t.Error("deleted entry still present")
	}
}

func TestManagerCleanOnceAndRun(t *testing.T) {
	c, clock := newTestLRU(10, time.Second)
	c.Set(1, "a")
	m := NewManager(nil)
	m.Register(c)

	clock.t = clock.t.Add(2 * time.Second)
	if n := m.CleanOnce(); n != 1 {
		t.Fatalf("CleanOnce = %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx, time.Hour); err != nil {
		t.Fatalf("Run = %v", err)
	}
}
