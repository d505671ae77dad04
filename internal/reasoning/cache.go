package reasoning

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// chainCacheEntry pairs a cached best chain with its expiry.
type chainCacheEntry struct {
	chain     CausalChain
	expiresAt time.Time
}

// chainCache caches the best causal chain found for a (cause_id,
// effect_id) pair with TTL, the same lru.Cache type C9's retrieval
// cache uses.
type chainCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	cache *lru.Cache[string, chainCacheEntry]
}

func newChainCache(size int, ttl time.Duration) (*chainCache, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, chainCacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("reasoning: init causal-chain cache: %w", err)
	}
	return &chainCache{ttl: ttl, cache: c}, nil
}

func chainCacheKey(causeID, effectID string) string { return causeID + "->" + effectID }

func (c *chainCache) get(causeID, effectID string) (CausalChain, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache.Get(chainCacheKey(causeID, effectID))
	if !ok {
		return CausalChain{}, false
	}
	if time.Now().After(entry.expiresAt) {
		c.cache.Remove(chainCacheKey(causeID, effectID))
		return CausalChain{}, false
	}
	return entry.chain, true
}

func (c *chainCache) put(causeID, effectID string, chain CausalChain) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(chainCacheKey(causeID, effectID), chainCacheEntry{chain: chain, expiresAt: time.Now().Add(c.ttl)})
}
