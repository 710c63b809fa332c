package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_BasicOperations(t *testing.T) {
	c := NewMemoryCache(1024)

	key := "test-key"
	entry := Entry{Audio: []byte("test-audio"), Engine: "mock"}

	if err := c.Put(key, entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Get failed: key not found")
	}
	if string(got.Audio) != "test-audio" || got.Engine != "mock" {
		t.Errorf("Get = %+v, want original entry", got)
	}

	if !c.Contains(key) {
		t.Error("Contains returned false for existing key")
	}
	if c.Size() != int64(len(entry.Audio)) {
		t.Errorf("Size = %d, want %d", c.Size(), len(entry.Audio))
	}

	c.Delete(key)
	if c.Contains(key) {
		t.Error("key still exists after Delete")
	}
	if c.Size() != 0 {
		t.Errorf("Size = %d after Delete, want 0", c.Size())
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	c := NewMemoryCache(100)

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("key-%d", i)
		if err := c.Put(key, Entry{Audio: make([]byte, 20)}); err != nil {
			t.Fatalf("Put failed for %s: %v", key, err)
		}
	}

	// Touch key-0 and key-1 so they are recently used.
	c.Get("key-0")
	c.Get("key-1")

	// 30 more bytes forces out the least recently used entries.
	if err := c.Put("key-new", Entry{Audio: make([]byte, 30)}); err != nil {
		t.Fatalf("Put failed for new key: %v", err)
	}

	if !c.Contains("key-0") || !c.Contains("key-1") {
		t.Error("recently used keys were evicted")
	}
	if !c.Contains("key-new") {
		t.Error("new key missing after eviction")
	}
	if c.Contains("key-2") {
		t.Error("least recently used key survived eviction")
	}
	if c.Size() > 100 {
		t.Errorf("Size = %d exceeds capacity", c.Size())
	}
}

func TestMemoryCache_ItemTooLarge(t *testing.T) {
	c := NewMemoryCache(10)
	if err := c.Put("big", Entry{Audio: make([]byte, 11)}); err != ErrItemTooLarge {
		t.Errorf("got %v, want ErrItemTooLarge", err)
	}
}

func TestMemoryCache_UpdateExisting(t *testing.T) {
	c := NewMemoryCache(1024)

	if err := c.Put("key", Entry{Audio: []byte("short"), Engine: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Put("key", Entry{Audio: []byte("much longer audio data"), Engine: "b"}); err != nil {
		t.Fatal(err)
	}

	got, _ := c.Get("key")
	if got.Engine != "b" {
		t.Errorf("Engine = %q, want b", got.Engine)
	}
	if c.Size() != int64(len("much longer audio data")) {
		t.Errorf("Size = %d after update", c.Size())
	}

	stats := c.Stats()
	if stats.ItemCount != 1 {
		t.Errorf("ItemCount = %d, want 1", stats.ItemCount)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	c := NewMemoryCache(1024)
	c.Put("key", Entry{Audio: []byte("data")})

	c.Get("key")
	c.Get("missing")

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", stats.HitRate)
	}
}

func TestMemoryCache_Prune(t *testing.T) {
	c := NewMemoryCache(1024)
	c.Put("old", Entry{Audio: []byte("data")})

	time.Sleep(20 * time.Millisecond)

	if pruned := c.Prune(time.Millisecond); pruned != 1 {
		t.Errorf("Prune = %d, want 1", pruned)
	}
	if c.Contains("old") {
		t.Error("pruned key still present")
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache(10 * 1024)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("key-%d-%d", n, j)
				c.Put(key, Entry{Audio: []byte("data")})
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Size() > 10*1024 {
		t.Errorf("Size = %d exceeds capacity after concurrent writes", c.Size())
	}
}
