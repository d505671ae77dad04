package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheEntry pairs a cached Response with its expiry. The expiry check is
// a plain time comparison made while responseCache's mutex is held.
type cacheEntry struct {
	response  Response
	expiresAt time.Time
}

// responseCache is the fingerprint-keyed retrieval cache (spec §9's
// "retrieval cache" with write-locks). Entries past TTL are treated as
// misses and removed by the read that finds them expired.
type responseCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	cache *lru.Cache[string, cacheEntry]
}

func newResponseCache(size int, ttl time.Duration) (*responseCache, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("retrieval: init cache: %w", err)
	}
	return &responseCache{ttl: ttl, cache: c}, nil
}

func (c *responseCache) get(key string) (Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache.Get(key)
	if !ok {
		return Response{}, false
	}
	if time.Now().After(entry.expiresAt) {
		c.cache.Remove(key)
		return Response{}, false
	}
	return entry.response, true
}

func (c *responseCache) put(key string, resp Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, cacheEntry{response: resp, expiresAt: time.Now().Add(c.ttl)})
}

// fingerprint derives the cache key from a Request, insensitive to the
// optional Context field per spec.
func fingerprint(req Request) string {
	memTypes := append([]string{}, req.TargetMemoryTypes...)
	sort.Strings(memTypes)
	h := sha256.New()
	fmt.Fprintf(h, "%s|%v|%d|%s", req.Query, memTypes, req.MaxResults, req.PreferredStrategy)
	return hex.EncodeToString(h.Sum(nil))
}
