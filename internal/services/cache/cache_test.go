package cache

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/groupmind-tgbot-go/internal/config"
)

func newTestCache(t *testing.T, maxSize int) Service {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	c, err := New(&config.CacheConfig{Enabled: true, MaxSize: maxSize}, log)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return c
}

func TestEvictsOldestInsertedFirst(t *testing.T) {
	c := newTestCache(t, 2)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")

	if _, found := c.Get("a"); found {
		t.Fatal("expected a to be evicted")
	}
	if v, found := c.Get("b"); !found || v != "2" {
		t.Fatalf("expected b retained, got %q found=%v", v, found)
	}
	if v, found := c.Get("c"); !found || v != "3" {
		t.Fatalf("expected c retained, got %q found=%v", v, found)
	}
}

func TestLookupsDoNotRefreshRecency(t *testing.T) {
	c := newTestCache(t, 2)

	c.Set("a", "1")
	c.Set("b", "2")

	// A read must not save "a" from eviction.
	if _, found := c.Get("a"); !found {
		t.Fatal("expected a before overflow")
	}
	c.Set("c", "3")

	if _, found := c.Get("a"); found {
		t.Fatal("expected a evicted even after being read")
	}
	if _, found := c.Get("b"); !found {
		t.Fatal("expected b retained")
	}
}

func TestSizeNeverExceedsCapacity(t *testing.T) {
	c := newTestCache(t, 3)

	keys := []string{"a", "b", "c", "d", "e", "f"}
	for _, k := range keys {
		c.Set(k, k)
		if c.Len() > 3 {
			t.Fatalf("cache grew to %d entries, capacity 3", c.Len())
		}
	}
}

func TestDisabledCacheMissesEverything(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	c, err := New(&config.CacheConfig{Enabled: false}, log)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	c.Set("a", "1")
	if _, found := c.Get("a"); found {
		t.Fatal("disabled cache should never hit")
	}
	if c.Len() != 0 {
		t.Fatalf("disabled cache reported %d entries", c.Len())
	}
}
