// Package cache implements the four weighted, TTL/TTI-bounded caches the
// dispatcher and catalog share: asset bytes, function source, resolved
// path templates, and cached responses. All four are the same generic
// design over github.com/dgraph-io/ristretto/v2, differing only in their
// configured capacity and the weigher applied to inserted values.
package cache

import (
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog/log"

	"github.com/queryrun/query/internal/config"
)

// Kind names one of the four process-global caches.
type Kind int

const (
	Asset Kind = iota
	Function
	Path
	FunctionResponse
)

func (k Kind) String() string {
	switch k {
	case Asset:
		return "asset"
	case Function:
		return "function"
	case Path:
		return "path"
	case FunctionResponse:
		return "function_response"
	default:
		return "unknown"
	}
}

// Stats reports cache occupancy for diagnostics endpoints.
type Stats struct {
	EntryCount int64
	Policy     string
}

// entry pairs a cached value with its insertion-derived weight, so Len and
// eviction bookkeeping never need to re-measure the value.
type entry struct {
	value  []byte
	weight int64
}

// Cache is a weighted LRU with independent time-to-live and time-to-idle
// bounds, backed by a ristretto.Cache for capacity-based eviction and a
// background sweep for idle eviction (ristretto has no native TTI concept).
type Cache struct {
	kind         Kind
	rist         *ristretto.Cache[string, entry]
	maxCapacity  int64
	timeToIdle   time.Duration
	timeToLive   time.Duration
	fileMaxBytes int64
	weighByBytes bool // false for opaque strings (e.g. resolved path templates), weight is always 1

	mu         sync.Mutex
	lastAccess map[string]time.Time
	expiresAt  map[string]time.Time

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

func newCache(kind Kind, kc config.CacheKindConfig, fileMaxBytes int64, weighByBytes bool) *Cache {
	rist, err := ristretto.NewCache(&ristretto.Config[string, entry]{
		NumCounters: kc.MaxCapacity * 10,
		MaxCost:     kc.MaxCapacity,
		BufferItems: 64,
	})
	if err != nil {
		// ristretto.NewCache only fails on invalid config; the defaults
		// package guarantees positive values, so this is unreachable in
		// practice and is logged rather than propagated since callers
		// treat the registry as infallible.
		log.Error().Err(err).Str("cache", kind.String()).Msg("failed to construct cache, using a disabled stand-in")
	}

	c := &Cache{
		kind:         kind,
		rist:         rist,
		maxCapacity:  kc.MaxCapacity,
		timeToIdle:   kc.TimeToIdle,
		timeToLive:   kc.TimeToLive,
		fileMaxBytes: fileMaxBytes,
		weighByBytes: weighByBytes,
		lastAccess:   make(map[string]time.Time),
		expiresAt:    make(map[string]time.Time),
		stop:         make(chan struct{}),
	}

	c.wg.Add(1)
	go c.sweepLoop()

	return c
}

// Contains reports whether key is present and not expired.
func (c *Cache) Contains(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Get returns the cached value, touching its idle timer on a hit.
func (c *Cache) Get(key string) ([]byte, bool) {
	e, ok := c.rist.Get(key)
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	c.lastAccess[key] = time.Now()
	c.mu.Unlock()

	return e.value, true
}

// Insert stores value under key, weighing it by byte length (or as 1 when
// the cache was built without byte weighing). Values
// exceeding the per-entry byte cap are silently dropped, per spec: the
// next request simply recomputes rather than erroring.
func (c *Cache) Insert(key string, value []byte) {
	byteWeight := int64(len(value))
	if c.fileMaxBytes > 0 && byteWeight > c.fileMaxBytes {
		return
	}

	weight := byteWeight
	if !c.weighByBytes {
		weight = 1
	}

	now := time.Now()
	c.mu.Lock()
	c.lastAccess[key] = now
	if c.timeToLive > 0 {
		c.expiresAt[key] = now.Add(c.timeToLive)
	} else {
		delete(c.expiresAt, key)
	}
	c.mu.Unlock()

	if c.timeToLive > 0 {
		c.rist.SetWithTTL(key, entry{value: value, weight: weight}, weight, c.timeToLive)
	} else {
		c.rist.Set(key, entry{value: value, weight: weight}, weight)
	}
	c.rist.Wait()
}

// Remove evicts key, if present.
func (c *Cache) Remove(key string) {
	c.rist.Del(key)
	c.mu.Lock()
	delete(c.lastAccess, key)
	delete(c.expiresAt, key)
	c.mu.Unlock()
}

// Clear evicts every entry.
func (c *Cache) Clear() {
	c.rist.Clear()
	c.mu.Lock()
	c.lastAccess = make(map[string]time.Time)
	c.expiresAt = make(map[string]time.Time)
	c.mu.Unlock()
}

// Len reports the number of tracked keys. Ristretto's admission policy
// means this is an estimate immediately after a burst of inserts, settling
// once the internal buffer drains.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lastAccess)
}

func (c *Cache) IsEmpty() bool {
	return c.Len() == 0
}

func (c *Cache) Stats() Stats {
	return Stats{
		EntryCount: int64(c.Len()),
		Policy:     "weighted-lru,ttl=" + c.timeToLive.String() + ",tti=" + c.timeToIdle.String(),
	}
}

func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
}

// sweepLoop evicts idle entries on a fixed tick; ristretto itself only
// knows about TTL and capacity, so time-to-idle is enforced here.
func (c *Cache) sweepLoop() {
	defer c.wg.Done()

	if c.timeToIdle <= 0 {
		<-c.stop
		return
	}

	interval := c.timeToIdle / 4
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictIdle()
		}
	}
}

func (c *Cache) evictIdle() {
	now := time.Now()

	c.mu.Lock()
	var stale []string
	for key, last := range c.lastAccess {
		if now.Sub(last) > c.timeToIdle {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		delete(c.lastAccess, key)
		delete(c.expiresAt, key)
	}
	c.mu.Unlock()

	for _, key := range stale {
		c.rist.Del(key)
	}
}
