package cache

import (
	"sync"

	"github.com/queryrun/query/internal/config"
)

var (
	registryOnce sync.Once
	registry     map[Kind]*Cache
)

// Init lazily constructs all four caches from cfg. Safe to call more than
// once; only the first call takes effect, matching the spec's "process-
// global, immutable-after-init" registry.
func Init(cfg *config.CacheConfig) {
	registryOnce.Do(func() {
		registry = map[Kind]*Cache{
			Asset:            newCache(Asset, cfg.Asset, cfg.FileMaxCapacity, true),
			Function:         newCache(Function, cfg.Function, cfg.FileMaxCapacity, true),
			Path:             newCache(Path, cfg.Path, 0, false),
			FunctionResponse: newCache(FunctionResponse, cfg.FunctionResponse, cfg.FileMaxCapacity, true),
		}
	})
}

// Get returns the named cache. Panics if Init has not been called; the
// registry is wired once at process startup before any request is served.
func Get(kind Kind) *Cache {
	c, ok := registry[kind]
	if !ok {
		panic("cache: registry not initialized for kind " + kind.String())
	}
	return c
}

// CloseAll stops every cache's background sweep goroutine.
func CloseAll() {
	for _, c := range registry {
		c.Close()
	}
}
