package coverage

import (
	"testing"

	"coverage-grid/internal/merchant"
)

func TestCacheKeyCoversEveryInput(t *testing.T) {
	base := merchantWith(2, "WEST", "EAST")
	keys := map[string]bool{cacheKey(base): true}
	variants := []merchant.Merchant{
		merchantWith(2.5, "WEST", "EAST"),
		merchantWith(2, "EAST", "WEST"),
		merchantWith(2, "WEST"),
		merchantWith(2),
	}
	moved := base.Clone()
	moved.Center = merchant.LatLng{53.41, -3.02}
	variants = append(variants, moved)
	for _, v := range variants {
		k := cacheKey(v)
		if keys[k] {
			t.Fatalf("key collision: %q", k)
		}
		keys[k] = true
	}
	renamed := base.Clone()
	renamed.ID, renamed.Name = "other", "Other"
	if cacheKey(renamed) != cacheKey(base) {
		t.Fatal("merchant identity should not affect the key")
	}
}

func TestComputeReusesCachedMask(t *testing.T) {
	c := NewComputerWithCache(testCatalog(), 2)
	m := merchantWith(2, "WEST", "EAST")
	first := c.Compute(m)
	if c.cache.len() != 1 {
		t.Fatalf("cache len = %d", c.cache.len())
	}
	again := c.Compute(m)
	if again.Area() != first.Area() || !again.Unioned() {
		t.Fatal("cached mask differs")
	}
	c.Compute(merchantWith(3, "WEST"))
	c.Compute(merchantWith(4, "EAST"))
	if c.cache.len() != 2 {
		t.Fatalf("cache not bounded: %d", c.cache.len())
	}
	if _, ok := c.cache.get(cacheKey(m)); ok {
		t.Fatal("least recently used entry should be evicted")
	}
}

func TestCacheDisabled(t *testing.T) {
	c := NewComputerWithCache(testCatalog(), 0)
	c.Compute(merchantWith(2, "BIG"))
	if c.cache.len() != 0 {
		t.Fatal("disabled cache stored an entry")
	}
}
