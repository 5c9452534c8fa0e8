// Package cache provides an in-memory TTL cache with ETag support for the
// local read endpoints. Entries are keyed by entity kind so a finished sync
// drops exactly the kinds it wrote.
package cache

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/albapepper/scoracle-sync/internal/events"
	"github.com/albapepper/scoracle-sync/internal/store"
)

// DefaultTTL applies when the caller passes no TTL.
const DefaultTTL = 5 * time.Minute

type entry struct {
	data      []byte
	etag      string
	expiresAt time.Time
}

// Cache is a thread-safe in-memory TTL cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	enabled bool
	stop    chan struct{}
	once    sync.Once
}

// New creates a new cache. Pass enabled=false to create a no-op cache.
func New(enabled bool) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		enabled: enabled,
		stop:    make(chan struct{}),
	}
	if enabled {
		go c.evictLoop()
	}
	return c
}

// Key builds the cache key for a read of kind; parts usually hold the
// normalized query string.
func Key(kind store.Kind, parts ...string) string {
	return string(kind) + "|" + strings.Join(parts, "|")
}

// Get retrieves a cached value. Returns data, etag, and whether the entry was found.
func (c *Cache) Get(key string) (data []byte, etag string, ok bool) {
	if !c.enabled {
		return nil, "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, exists := c.entries[key]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, "", false
	}
	return e.data, e.etag, true
}

// Set stores a value with a TTL.
func (c *Cache) Set(key string, data []byte, ttl time.Duration) string {
	etag := ComputeETag(data)
	if !c.enabled {
		return etag
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		data:      data,
		etag:      etag,
		expiresAt: time.Now().Add(ttl),
	}
	return etag
}

// Invalidate drops every entry cached for the given kinds and returns how
// many were removed.
func (c *Cache) Invalidate(kinds ...store.Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key := range c.entries {
		for _, k := range kinds {
			if strings.HasPrefix(key, string(k)+"|") {
				delete(c.entries, key)
				removed++
				break
			}
		}
	}
	return removed
}

// Flush drops every entry.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// dependents lists kinds whose cached reads embed data of another kind.
var dependents = map[store.Kind][]store.Kind{
	store.KindCountries: {store.KindLeagues, store.KindTeams},
	store.KindLeagues:   {store.KindCountries, store.KindSeasons, store.KindFixtures},
	store.KindSeasons:   {store.KindFixtures},
	store.KindTeams:     {store.KindFixtures},
}

// Subscribe invalidates the kinds a finished sync wrote, plus the kinds
// whose reads join them. Dry runs are ignored.
func (c *Cache) Subscribe(bus *events.Bus, logger *slog.Logger) (unsubscribe func()) {
	if logger == nil {
		logger = slog.Default()
	}
	return bus.Subscribe(func(_ context.Context, ev events.SyncCompleted) {
		changed := ev.Changed()
		if len(changed) == 0 {
			return
		}
		kinds := append([]store.Kind(nil), changed...)
		for _, k := range changed {
			kinds = append(kinds, dependents[k]...)
		}
		removed := c.Invalidate(kinds...)
		logger.Debug("Cache invalidated", "run_id", ev.RunID, "kinds", changed, "removed", removed)
	})
}

// Stats returns cache statistics.
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	active := 0
	now := time.Now()
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			active++
		}
	}
	return map[string]interface{}{
		"enabled":      c.enabled,
		"total_keys":   len(c.entries),
		"active_keys":  active,
		"expired_keys": len(c.entries) - active,
	}
}

// Close stops the eviction loop.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// evictLoop periodically removes expired entries.
func (c *Cache) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evict()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// ComputeETag generates a weak ETag from response data using MD5.
func ComputeETag(data []byte) string {
	hash := md5.Sum(data)
	return fmt.Sprintf(`W/"%x"`, hash[:8])
}

// CheckETagMatch checks if If-None-Match header matches the current ETag.
func CheckETagMatch(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		if strings.TrimSpace(candidate) == etag {
			return true
		}
	}
	return false
}
