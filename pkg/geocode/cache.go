package geocode

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// cacheKey returns SHA-256 hex of the normalized address and phone.
func cacheKey(address, phone string) string {
	normalized := strings.ToLower(NormalizeAddress(address)) + "|" + NormalizePhone(phone)
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

type cacheEntry struct {
	result   Result
	storedAt time.Time
}

// lookupCache memoizes verification results so repeated addresses in one
// roster hit the geocoders once. Misses and no-match results are cached;
// error fallbacks are not, so a transient outage never pins a 0.6 score.
type lookupCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration // zero = no expiry
}

func newLookupCache(ttl time.Duration) *lookupCache {
	return &lookupCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

func (c *lookupCache) get(key string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Since(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}

	result := entry.result
	zap.L().Debug("geocode cache hit", zap.String("key", key[:12]), zap.String("source", result.Source))
	return &result, true
}

func (c *lookupCache) put(key string, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: *result, storedAt: time.Now()}
}
