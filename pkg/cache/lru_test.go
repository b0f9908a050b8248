package cache

import (
	"testing"
	"time"
)

func TestLRUBasicOperations(t *testing.T) {
	c := NewLRU(3, 5*time.Minute)

	c.Put("key1", "value1")
	value, found := c.Get("key1")
	if !found {
		t.Fatal("Expected to find key1")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %v", value)
	}

	if _, found := c.Get("nonexistent"); found {
		t.Error("Should not find nonexistent key")
	}

	c.Put("key1", "updated")
	if value, _ := c.Get("key1"); value != "updated" {
		t.Errorf("Expected updated value, got %v", value)
	}
	if c.Size() != 1 {
		t.Errorf("Expected size 1, got %d", c.Size())
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRU(3, 5*time.Minute)
	c.Put("key1", 1)
	c.Put("key2", 2)
	c.Put("key3", 3)

	// touching key1 makes key2 the least recently used
	c.Get("key1")
	c.Put("key4", 4)

	if _, found := c.Get("key2"); found {
		t.Error("key2 should have been evicted")
	}
	for _, k := range []string{"key1", "key3", "key4"} {
		if _, found := c.Get(k); !found {
			t.Errorf("%s should exist", k)
		}
	}
	if c.Size() != 3 {
		t.Errorf("Expected size 3, got %d", c.Size())
	}
	if ev := c.Stats()["evictions"].(uint64); ev != 1 {
		t.Errorf("Expected 1 eviction, got %d", ev)
	}
}

func TestLRUExpiration(t *testing.T) {
	c := NewLRU(10, 20*time.Millisecond)
	c.Put("a", 1)
	c.Put("b", 2)

	time.Sleep(40 * time.Millisecond)
	if _, found := c.Get("a"); found {
		t.Error("a should have expired")
	}
	if removed := c.CleanupExpired(); removed != 1 {
		t.Errorf("Expected 1 expired entry removed, got %d", removed)
	}
	if c.Size() != 0 {
		t.Errorf("Expected empty cache, got %d", c.Size())
	}
}

func TestLRUZeroTTLNeverExpires(t *testing.T) {
	c := NewLRU(2, 0)
	c.Put("a", 1)
	time.Sleep(5 * time.Millisecond)
	if _, found := c.Get("a"); !found {
		t.Error("Expected entry without TTL to remain")
	}
}

func TestLRUStats(t *testing.T) {
	c := NewLRU(2, time.Minute)
	c.Put("a", 1)
	c.Get("a")
	c.Get("b")

	stats := c.Stats()
	if stats["hits"].(uint64) != 1 || stats["misses"].(uint64) != 1 {
		t.Errorf("Unexpected stats %v", stats)
	}
	if stats["hit_rate"] != "50.00%" {
		t.Errorf("Expected 50.00%% hit rate, got %v", stats["hit_rate"])
	}

	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Expected empty cache after Clear, got %d", c.Size())
	}
}
