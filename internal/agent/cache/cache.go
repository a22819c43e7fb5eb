// Package cache memoises routing decisions keyed by normalized query text.
package cache

import (
	"sync"
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

const (
	DefaultMaxSize = 100
	DefaultTTL     = time.Hour
)

// Observer receives hit/miss events, e.g. a Prometheus recorder.
type Observer interface {
	ObserveCacheLookup(hit bool)
}

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
}

// IntentCache is shared by all concurrent runs. Insert-or-evict happens under
// one lock so the size bound always holds.
type IntentCache struct {
	mu       sync.Mutex
	entries  map[string]model.CachedIntent
	maxSize  int
	ttl      time.Duration
	hits     int64
	misses   int64
	now      func() time.Time
	observer Observer
}

// Option configures an IntentCache.
type Option func(*IntentCache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *IntentCache) { c.now = now }
}

// WithObserver attaches a hit/miss observer.
func WithObserver(o Observer) Option {
	return func(c *IntentCache) { c.observer = o }
}

// New builds a cache; non-positive arguments fall back to the defaults.
func New(maxSize int, ttl time.Duration, opts ...Option) *IntentCache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &IntentCache{
		entries: make(map[string]model.CachedIntent, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached intent for query if present and fresh. A miss is a
// normal result, not an error.
func (c *IntentCache) Get(query string) (model.CachedIntent, bool) {
	key := Key(query)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && entry.Expired(c.now()) {
		delete(c.entries, key)
		ok = false
	}
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.ObserveCacheLookup(ok)
	}
	if ok {
		logx.Debug().Str("cache_key", key).Str("intent", entry.Intent).Msg("intent cache hit")
	}
	return entry, ok
}

// Set stores a routing decision. Inserting a new key into a full cache evicts
// the single entry with the oldest CreatedAt.
func (c *IntentCache) Set(query string, intent model.CachedIntent) {
	key := Key(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	intent.CreatedAt = c.now()
	intent.TTL = c.ttl
	intent.Entities = append([]model.ExtractedEntity(nil), intent.Entities...)
	intent.Services = append([]model.ServiceName(nil), intent.Services...)

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = intent
}

func (c *IntentCache) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.CreatedAt.Before(oldest) {
			oldestKey, oldest, found = k, e.CreatedAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
		logx.Debug().Str("cache_key", oldestKey).Msg("intent cache evicted oldest entry")
	}
}

// Len returns the number of stored entries, fresh or not.
func (c *IntentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats snapshots the counters.
func (c *IntentCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{Hits: c.hits, Misses: c.misses, Size: len(c.entries), MaxSize: c.maxSize}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
