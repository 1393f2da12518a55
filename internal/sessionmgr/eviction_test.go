package sessionmgr

import "testing"

func TestLRUEvictsOldestPastCapacity(t *testing.T) {
	cache := newLRU(2)

	if evict := cache.touch("a"); evict != "" {
		t.Fatalf("expected no eviction under capacity, got %q", evict)
	}
	if evict := cache.touch("b"); evict != "" {
		t.Fatalf("expected no eviction at exactly capacity, got %q", evict)
	}
	if evict := cache.touch("c"); evict != "a" {
		t.Fatalf("expected %q to be evicted, got %q", "a", evict)
	}
}

func TestLRUTouchRefreshesRecency(t *testing.T) {
	cache := newLRU(2)
	cache.touch("a")
	cache.touch("b")
	cache.touch("a") // a is now most-recent; b is the oldest

	if evict := cache.touch("c"); evict != "b" {
		t.Fatalf("expected %q to be evicted after refreshing %q, got %q", "b", "a", evict)
	}
}

func TestLRUForgetRemovesWithoutEviction(t *testing.T) {
	cache := newLRU(2)
	cache.touch("a")
	cache.touch("b")
	cache.forget("a")

	if evict := cache.touch("c"); evict != "" {
		t.Fatalf("expected room after forgetting %q, got eviction of %q", "a", evict)
	}
}

func TestLRUDefaultsCapacityWhenNonPositive(t *testing.T) {
	cache := newLRU(0)
	if cache.cap != evictionCap {
		t.Fatalf("expected default capacity %d, got %d", evictionCap, cache.cap)
	}
}
