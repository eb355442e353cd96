package reputation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string]*core.CacheEntry
}

func (m *mapCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, core.ErrNotFound
	}
	return e, nil
}

func (m *mapCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Key] = entry
	return nil
}

func (m *mapCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *mapCache) Cleanup(ctx context.Context) error { return nil }

func TestCachedOracleServesRepeatLookups(t *testing.T) {
	o := newFakeOracle()
	id := URLID("http://a.example")
	o.stats[id] = &core.AnalysisStats{Malicious: 2}

	c := NewCachedOracle(o, &mapCache{entries: map[string]*core.CacheEntry{}}, time.Hour, zap.NewNop())
	for i := 0; i < 3; i++ {
		stats, err := c.LookupURL(context.Background(), id)
		if err != nil {
			t.Fatalf("LookupURL returned error: %v", err)
		}
		if stats.Malicious != 2 {
			t.Errorf("Malicious = %d, want 2", stats.Malicious)
		}
	}
	if o.lookups[id] != 1 {
		t.Errorf("oracle called %d times, want 1", o.lookups[id])
	}
}

func TestCachedOracleDoesNotCacheNotFound(t *testing.T) {
	o := newFakeOracle()
	cache := &mapCache{entries: map[string]*core.CacheEntry{}}
	c := NewCachedOracle(o, cache, time.Hour, zap.NewNop())

	id := URLID("http://fresh.example")
	if _, err := c.LookupURL(context.Background(), id); err != core.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(cache.entries) != 0 {
		t.Errorf("not-found answer was cached: %v", cache.entries)
	}

	o.afterScan[id] = &core.AnalysisStats{Harmless: 5}
	if err := c.SubmitURL(context.Background(), "http://fresh.example"); err != nil {
		t.Fatalf("SubmitURL returned error: %v", err)
	}
	stats, err := c.LookupURL(context.Background(), id)
	if err != nil || stats.Harmless != 5 {
		t.Errorf("after submit got %+v, %v", stats, err)
	}
}
