package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := New[string](Options{Capacity: 10, TTL: time.Minute})
	c.Set("a", "hello")
	v, ok := c.Get("a")
	if !ok || v != "hello" {
		t.Fatalf("expected hit with %q; got %q ok=%v", "hello", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss for absent key")
	}
}

func TestTTLExpiryOnRead(t *testing.T) {
	c := New[int](Options{Capacity: 10, TTL: time.Minute})
	c.Set("k", 1)
	c.entries["k"].CreatedAt = time.Now().Add(-2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expired entry must read as absent")
	}
	if _, exists := c.entries["k"]; exists {
		t.Fatalf("expired entry must be deleted on read")
	}
}

func TestGetEntryKeepsExpired(t *testing.T) {
	c := New[int](Options{Capacity: 10, TTL: time.Minute})
	c.Set("k", 7)
	c.entries["k"].CreatedAt = time.Now().Add(-2 * time.Minute)
	view, ok := c.GetEntry("k")
	if !ok || !view.Expired || view.Data != 7 {
		t.Fatalf("expected expired-but-present entry; got ok=%v expired=%v", ok, view.Expired)
	}
	if _, exists := c.entries["k"]; !exists {
		t.Fatalf("GetEntry must not delete the entry")
	}
	c.Refresh("k")
	view, _ = c.GetEntry("k")
	if view.Expired {
		t.Fatalf("refreshed entry must be fresh again")
	}
}

func TestEvictionBound(t *testing.T) {
	const capacity = 20
	c := New[int](Options{Capacity: capacity, TTL: time.Hour})
	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("k%03d", i), i)
		if got := len(c.entries); got > capacity {
			t.Fatalf("size %d exceeded capacity %d after insert %d", got, capacity, i)
		}
	}
}

func TestEvictionDropsLowestScore(t *testing.T) {
	c := New[int](Options{Capacity: 4, TTL: time.Hour})
	base := time.Now().Add(-time.Minute)
	for i, k := range []string{"cold", "warm", "hot", "hotter"} {
		c.Set(k, i)
		e := c.entries[k]
		e.LastAccessed = base
		e.HitCount = uint64(i * 10)
	}
	// next insert evicts ceil(4*0.1)=1 entry: the zero-hit one
	c.Set("new", 99)
	if _, ok := c.entries["cold"]; ok {
		t.Fatalf("lowest-score entry should have been evicted")
	}
	for _, k := range []string{"warm", "hot", "hotter", "new"} {
		if _, ok := c.entries[k]; !ok {
			t.Fatalf("entry %q should have survived eviction", k)
		}
	}
}

func TestAgeZeroEntryNeverFirstOut(t *testing.T) {
	c := New[int](Options{Capacity: 2, TTL: time.Hour})
	c.Set("old", 1)
	e := c.entries["old"]
	e.LastAccessed = time.Now().Add(-time.Hour)
	e.HitCount = 3
	// "fresh" was accessed this instant: zero hits but infinite density
	c.Set("fresh", 2)
	c.Set("trigger", 3)
	if _, ok := c.entries["fresh"]; !ok {
		t.Fatalf("age-zero entry must not be the first eviction candidate")
	}
	if _, ok := c.entries["old"]; ok {
		t.Fatalf("expected the stale low-density entry to be evicted")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := New[int](Options{Capacity: 100, TTL: time.Hour})
	c.Set("page:chat1:0", 1)
	c.Set("page:chat1:1", 2)
	c.Set("page:chat2:0", 3)
	c.Set("msg:chat1:a", 4)
	c.Invalidate("page:chat1:")
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries after prefix invalidation; got %d", c.Len())
	}
	if _, ok := c.Get("page:chat2:0"); !ok {
		t.Fatalf("other conversation's page must survive")
	}
	c.Invalidate()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after full invalidation; got %d", c.Len())
	}
}

func TestStats(t *testing.T) {
	c := New[int](Options{Capacity: 10, TTL: time.Hour})
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("nope")
	s := c.Stats()
	if s.Size != 1 {
		t.Fatalf("size = %d; want 1", s.Size)
	}
	if s.Hits != 2 || s.Misses != 1 {
		t.Fatalf("hits/misses = %d/%d; want 2/1", s.Hits, s.Misses)
	}
	if want := 2.0 / 3.0; s.HitRatio < want-0.001 || s.HitRatio > want+0.001 {
		t.Fatalf("hit ratio = %f; want %f", s.HitRatio, want)
	}
}

func TestPurgeExpired(t *testing.T) {
	c := New[int](Options{Capacity: 10, TTL: time.Minute})
	c.Set("live", 1)
	c.Set("dead1", 2)
	c.Set("dead2", 3)
	c.entries["dead1"].CreatedAt = time.Now().Add(-2 * time.Minute)
	c.entries["dead2"].CreatedAt = time.Now().Add(-3 * time.Minute)
	if n := c.purgeExpired(); n != 2 {
		t.Fatalf("purged %d; want 2", n)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 survivor; got %d", c.Len())
	}
}
