package httpcache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/orgball2608/reel-feed-service/pkg/config"
	apperrors "github.com/orgball2608/reel-feed-service/pkg/errors"
	"github.com/orgball2608/reel-feed-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfeed_httpcache_hits_total",
		Help: "Byte cache hits by tier.",
	}, []string{"tier"})
	fetchMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelfeed_httpcache_misses_total",
		Help: "Byte cache misses that went to origin.",
	})
)

// Fetcher is the shared byte-cache boundary every media fetch goes through.
type Fetcher interface {
	// Fetch returns the body for url, from cache when possible. The returned
	// slice is shared and must be treated as read-only.
	Fetch(ctx context.Context, url string) ([]byte, error)
	// FetchRange fetches length bytes starting at offset.
	FetchRange(ctx context.Context, url string, offset, length int64) ([]byte, error)
	// Peek returns cached bytes without ever touching the network.
	Peek(url string) ([]byte, bool)
	// Purge drops every cached entry, memory and disk.
	Purge()
}

type entry struct {
	key  string
	body []byte
}

// Client wraps an http.Client with a memory LRU that spills evicted bodies to
// a bounded disk directory. Both tiers live and die with the process.
type Client struct {
	http   *http.Client
	logger logger.Logger

	mu        sync.Mutex
	entries   map[string]*list.Element
	order     *list.List // front = oldest recency
	memBytes  int64
	memBudget int64

	dir        string
	diskBytes  int64
	diskBudget int64
}

var _ Fetcher = (*Client)(nil)

func New(cfg *config.Config, log logger.Logger) (*Client, error) {
	if err := os.MkdirAll(cfg.HTTPCache.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create http cache dir: %w", err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.HTTPCache.ConnectTimeout,
		}).DialContext,
		MaxIdleConnsPerHost: 4,
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.HTTPCache.RequestTimeout,
		},
		logger:     log.WithComponent("HTTPCache"),
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		memBudget:  cfg.HTTPCache.MemoryBytes,
		dir:        cfg.HTTPCache.Dir,
		diskBudget: cfg.HTTPCache.DiskBytes,
	}, nil
}

func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if body, ok := c.lookup(url); ok {
		return body, nil
	}
	fetchMisses.Inc()

	body, err := c.do(ctx, url, 0, 0)
	if err != nil {
		return nil, err
	}

	c.store(url, body)
	return body, nil
}

func (c *Client) FetchRange(ctx context.Context, url string, offset, length int64) ([]byte, error) {
	key := fmt.Sprintf("%s#%d-%d", url, offset, length)
	if body, ok := c.lookup(key); ok {
		return body, nil
	}
	fetchMisses.Inc()

	body, err := c.do(ctx, url, offset, length)
	if err != nil {
		return nil, err
	}

	c.store(key, body)
	return body, nil
}

func (c *Client) Peek(url string) ([]byte, bool) {
	return c.lookup(url)
}

// Purge drops every entry from memory and removes all spilled files.
func (c *Client) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.memBytes = 0
	c.diskBytes = 0

	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}
	for _, de := range dirEntries {
		_ = os.Remove(filepath.Join(c.dir, de.Name()))
	}
}

// Close purges the cache and removes the spill directory.
func (c *Client) Close() {
	c.Purge()
	if err := os.RemoveAll(c.dir); err != nil {
		c.logger.Warn("Failed to remove http cache dir", "dir", c.dir, "error", err)
	}
}

func (c *Client) lookup(key string) ([]byte, bool) {
	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToBack(el)
		body := el.Value.(*entry).body
		c.mu.Unlock()
		fetchHits.WithLabelValues("memory").Inc()
		return body, true
	}
	c.mu.Unlock()

	body, err := os.ReadFile(c.diskPath(key))
	if err != nil {
		return nil, false
	}
	fetchHits.WithLabelValues("disk").Inc()

	// Re-admit to memory so a hot entry does not stay on disk. The spilled
	// file is dropped and the disk counter released, otherwise re-evicting the
	// same key would count its bytes twice.
	c.mu.Lock()
	if err := os.Remove(c.diskPath(key)); err == nil {
		c.diskBytes -= int64(len(body))
		if c.diskBytes < 0 {
			c.diskBytes = 0
		}
	}
	c.mu.Unlock()

	c.store(key, body)
	return body, true
}

func (c *Client) store(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.MoveToBack(el)
		return
	}

	el := c.order.PushBack(&entry{key: key, body: body})
	c.entries[key] = el
	c.memBytes += int64(len(body))

	for c.memBytes > c.memBudget && c.order.Len() > 1 {
		oldest := c.order.Front()
		ev := oldest.Value.(*entry)
		c.order.Remove(oldest)
		delete(c.entries, ev.key)
		c.memBytes -= int64(len(ev.body))
		c.spill(ev)
	}
}

// spill writes an evicted body to disk if the disk budget allows it.
func (c *Client) spill(ev *entry) {
	size := int64(len(ev.body))
	if c.diskBytes+size > c.diskBudget {
		return
	}
	path := c.diskPath(ev.key)
	if err := os.WriteFile(path, ev.body, 0o644); err != nil {
		c.logger.Warn("Failed to spill cache entry to disk", "key", ev.key, "error", err)
		return
	}
	c.diskBytes += size
}

func (c *Client) diskPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:]))
}

func (c *Client) do(ctx context.Context, url string, offset, length int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build request")
	}
	ranged := length > 0
	if ranged {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+length-1))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrNetwork, url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotFound, url)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: %s returned status %d", apperrors.ErrNetwork, url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", apperrors.ErrNetwork, url, err)
	}

	// Server ignored the range request and sent the whole object. Always
	// slice in that case: even a body shorter than the requested length must
	// be cut down to the suffix at offset.
	if ranged && resp.StatusCode == http.StatusOK {
		if offset >= int64(len(body)) {
			return nil, fmt.Errorf("%w: range offset beyond body for %s", apperrors.ErrNetwork, url)
		}
		end := offset + length
		if end > int64(len(body)) {
			end = int64(len(body))
		}
		body = body[offset:end]
	}

	return body, nil
}
