package mediacache

import (
	"context"
	"sync"

	"github.com/orgball2608/reel-feed-service/internal/domain"
	"github.com/orgball2608/reel-feed-service/pkg/config"
	"github.com/orgball2608/reel-feed-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	windowLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelfeed_mediacache_window_loads_total",
		Help: "Number of PreloadWindow passes.",
	})
	preloadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelfeed_mediacache_preload_failures_total",
		Help: "Image preloads that failed.",
	})
)

// Fetcher is the slice of the network cache layer the image cache needs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Cache keeps decoded image bytes for the posts around the active index.
//
// Eviction is windowed-replace, not LRU: every PreloadWindow call clears the
// whole cache and repopulates only the [active-radius, active+radius]
// neighborhood. With a radius of 2 the working set is at most 5 images, and
// the network layer below still holds the bytes, so a window step costs a map
// rebuild rather than a refetch.
type Cache struct {
	fetcher Fetcher
	logger  logger.Logger

	maxEntries int
	maxBytes   int64
	radius     int

	mu      sync.RWMutex
	entries map[string][]byte
	bytes   int64
}

func New(cfg *config.Config, fetcher Fetcher, log logger.Logger) *Cache {
	return &Cache{
		fetcher:    fetcher,
		logger:     log.WithComponent("MediaAssetCache"),
		maxEntries: cfg.MediaCache.MaxEntries,
		maxBytes:   cfg.MediaCache.MaxBytes,
		radius:     cfg.MediaCache.WindowRadius,
		entries:    make(map[string][]byte),
	}
}

// Preload fetches and caches the image at url, reporting success. Already
// cached URLs are a no-op. Entries that would blow the item or byte budget
// are fetched but not retained.
func (c *Cache) Preload(ctx context.Context, url string) bool {
	if url == "" {
		return false
	}

	c.mu.RLock()
	_, ok := c.entries[url]
	c.mu.RUnlock()
	if ok {
		return true
	}

	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		preloadFailures.Inc()
		c.logger.Debug("Image preload failed", "url", url, "error", err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[url]; ok {
		return true
	}
	if len(c.entries) >= c.maxEntries || c.bytes+int64(len(body)) > c.maxBytes {
		c.logger.Warn("Image over cache budget, not retained", "url", url, "size", len(body))
		return false
	}
	c.entries[url] = body
	c.bytes += int64(len(body))
	return true
}

// Get returns cached bytes for url. It reads the cache only and never
// triggers a network fetch. The slice must be treated as read-only.
func (c *Cache) Get(url string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	body, ok := c.entries[url]
	return body, ok
}

// PreloadWindow snapshots a fresh working set around activeIndex: the cache
// is cleared and only image URLs of posts within the clamped window are
// preloaded.
func (c *Cache) PreloadWindow(ctx context.Context, posts []domain.Post, activeIndex int) {
	windowLoads.Inc()

	c.mu.Lock()
	c.entries = make(map[string][]byte)
	c.bytes = 0
	c.mu.Unlock()

	if len(posts) == 0 {
		return
	}

	lo := activeIndex - c.radius
	if lo < 0 {
		lo = 0
	}
	hi := activeIndex + c.radius
	if hi > len(posts)-1 {
		hi = len(posts) - 1
	}

	for i := lo; i <= hi; i++ {
		if posts[i].HasImage() {
			c.Preload(ctx, posts[i].ImageURL)
		}
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
	c.bytes = 0
}

// HandleMemoryPressure unconditionally clears all entries.
func (c *Cache) HandleMemoryPressure() {
	c.Clear()
	c.logger.Info("Cleared image cache on memory pressure")
}

// Len returns the number of resident entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
