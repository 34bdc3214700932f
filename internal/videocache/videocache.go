package videocache

import (
	"container/list"
	"context"
	"sync"

	"github.com/orgball2608/reel-feed-service/pkg/config"
	"github.com/orgball2608/reel-feed-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var evictions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "reelfeed_videocache_evictions_total",
	Help: "Warm asset handles evicted from the LRU.",
})

// Cache is a capacity-bounded LRU of warm video asset handles. The map and
// recency list are guarded by one mutex so reads are linearizable; eviction
// pops the least recently touched handle and cancels its in-flight load.
type Cache struct {
	loader   MetadataLoader
	logger   logger.Logger
	capacity int

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = least recently used
}

func New(cfg *config.Config, loader MetadataLoader, log logger.Logger) *Cache {
	return &Cache{
		loader:   loader,
		logger:   log.WithComponent("VideoWarmupCache"),
		capacity: cfg.VideoCache.Capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Warm creates handles for every URL not already resident and starts their
// metadata loads in the background. It never blocks on the network.
func (c *Cache) Warm(urls []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, url := range urls {
		if url == "" {
			continue
		}
		if el, ok := c.entries[url]; ok {
			c.order.MoveToBack(el)
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		asset := newAsset(url, cancel)
		c.entries[url] = c.order.PushBack(asset)
		go asset.load(ctx, c.loader)

		for c.order.Len() > c.capacity {
			c.evictOldestLocked()
		}
	}
}

// Asset returns the warm handle for url, marking it most recently used, or
// nil when not resident (caller falls back to a cold load).
func (c *Cache) Asset(url string) *Asset {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[url]
	if !ok {
		return nil
	}
	c.order.MoveToBack(el)
	return el.Value.(*Asset)
}

// Clear cancels all in-flight loads and empties the cache. Used on feed
// teardown.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.order.Front(); el != nil; el = el.Next() {
		el.Value.(*Asset).cancel()
	}
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of resident handles.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns resident URLs in recency order, least recent first.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*Asset).URL)
	}
	return keys
}

func (c *Cache) evictOldestLocked() {
	oldest := c.order.Front()
	if oldest == nil {
		return
	}
	asset := oldest.Value.(*Asset)
	asset.cancel()
	c.order.Remove(oldest)
	delete(c.entries, asset.URL)
	evictions.Inc()
	c.logger.Debug("Evicted warm asset", "url", asset.URL)
}
