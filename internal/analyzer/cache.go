package analyzer

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/devpulse/devpulse/internal/types"
)

// DefaultCacheTTL is the snapshot lifetime when none is configured.
const DefaultCacheTTL = 300 * time.Second

const cacheShards = 16

// Cache holds immutable WorkSummary snapshots keyed by
// (repoPath, maxCommits, sinceDays). It is safe for concurrent use; locking
// is striped so independent keys don't contend during parallel analysis.
//
// The cache is an explicit dependency of the Analyzer rather than package
// state, so tests can inject a fresh instance per test.
type Cache struct {
	ttl    time.Duration
	shards [cacheShards]cacheShard
	now    func() time.Time
}

type cacheShard struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	summary *types.WorkSummary
	expires time.Time
}

// NewCache creates a cache with the given TTL. A non-positive TTL falls
// back to DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Cache{ttl: ttl, now: time.Now}
	for i := range c.shards {
		c.shards[i].entries = make(map[string]cacheEntry)
	}
	return c
}

// CacheKey builds the canonical cache key for a mining request.
func CacheKey(repoPath string, maxCommits, sinceDays int) string {
	return fmt.Sprintf("%s|%d|%d", repoPath, maxCommits, sinceDays)
}

func (c *Cache) shard(key string) *cacheShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &c.shards[h.Sum32()%cacheShards]
}

// Get returns the cached summary for key if present and not expired. The
// returned snapshot must not be mutated.
func (c *Cache) Get(key string) (*types.WorkSummary, bool) {
	s := c.shard(key)
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || c.now().After(entry.expires) {
		return nil, false
	}
	return entry.summary, true
}

// Set stores a summary snapshot under key with the cache TTL.
func (c *Cache) Set(key string, summary *types.WorkSummary) {
	s := c.shard(key)
	s.mu.Lock()
	s.entries[key] = cacheEntry{summary: summary, expires: c.now().Add(c.ttl)}
	s.mu.Unlock()
}

// Invalidate removes a single key.
func (c *Cache) Invalidate(key string) {
	s := c.shard(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// InvalidateRepo removes all entries mined from repoPath regardless of
// window parameters.
func (c *Cache) InvalidateRepo(repoPath string) {
	prefix := repoPath + "|"
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		for key := range s.entries {
			if strings.HasPrefix(key, prefix) {
				delete(s.entries, key)
			}
		}
		s.mu.Unlock()
	}
}

// Clear removes every entry.
func (c *Cache) Clear() {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		s.entries = make(map[string]cacheEntry)
		s.mu.Unlock()
	}
}

// Len reports the number of live entries, expired ones included.
func (c *Cache) Len() int {
	total := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}
