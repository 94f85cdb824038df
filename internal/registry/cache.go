package registry

import (
	"sync"
	"sync/atomic"
	"time"
)

// riskCache is a TTL-based in-memory cache with stale-while-revalidate
// for tool risk profiles. Uses sync.Map for lock-free reads on the hot
// path.
type riskCache struct {
	store sync.Map // map[string]*riskCacheEntry
	ttl   time.Duration
}

type riskCacheEntry struct {
	risk       *ToolRisk // nil = negative cache (tool not registered)
	expiresAt  time.Time
	refreshing atomic.Bool
}

type cacheGetResult struct {
	Risk         *ToolRisk
	Hit          bool // a value was found, fresh or stale
	NeedsRefresh bool // expired — caller should refresh in background
}

func newRiskCache(ttl time.Duration) *riskCache {
	return &riskCache{ttl: ttl}
}

// Get performs a non-blocking lookup. Stale entries are returned with
// NeedsRefresh=true; only one caller wins the refresh CAS.
func (c *riskCache) Get(tool string) cacheGetResult {
	val, ok := c.store.Load(tool)
	if !ok {
		return cacheGetResult{Hit: false}
	}

	entry := val.(*riskCacheEntry)
	if time.Now().Before(entry.expiresAt) {
		return cacheGetResult{Risk: entry.risk, Hit: true}
	}

	needsRefresh := entry.refreshing.CompareAndSwap(false, true)
	return cacheGetResult{
		Risk:         entry.risk,
		Hit:          true,
		NeedsRefresh: needsRefresh,
	}
}

// Set stores a profile with a fresh TTL. Passing nil stores a negative
// cache entry.
func (c *riskCache) Set(tool string, risk *ToolRisk) {
	c.store.Store(tool, &riskCacheEntry{
		risk:      risk,
		expiresAt: time.Now().Add(c.ttl),
	})
}

func (c *riskCache) Delete(tool string) {
	c.store.Delete(tool)
}
