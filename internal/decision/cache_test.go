package decision

import (
	"fmt"
	"sync"
	"testing"
)

func TestCachePutGet(t *testing.T) {
	c := NewCache[int](4)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache reported a hit")
	}

	c.Put("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}

	// Overwrite keeps a single entry.
	c.Put("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("overwritten value = %v, want 2", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCacheEvictsOldest(t *testing.T) {
	c := NewCache[string](2)
	c.Put("first", "1")
	c.Put("second", "2")
	c.Put("third", "3")

	if _, ok := c.Get("first"); ok {
		t.Error("oldest entry survived eviction")
	}
	if _, ok := c.Get("second"); !ok {
		t.Error("second entry evicted too early")
	}
	if _, ok := c.Get("third"); !ok {
		t.Error("newest entry missing")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestCachePurge(t *testing.T) {
	c := NewCache[int](8)
	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len after Purge = %d, want 0", c.Len())
	}
	c.Put("fresh", 9)
	if v, ok := c.Get("fresh"); !ok || v != 9 {
		t.Error("cache unusable after Purge")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache[int](32)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("g%d-%d", g, i%16)
				c.Put(key, i)
				c.Get(key)
				if i%50 == 0 {
					c.Purge()
				}
			}
		}(g)
	}
	wg.Wait()
}
