// Package pagecache caches fetched pages in the key-value store for a short time and counts
// how often each URL is requested.
package pagecache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/callcache/internal/cache"
	"github.com/charlesng35/callcache/internal/monitoring"
	"github.com/charlesng35/callcache/pkg/logger"
)

// CounterMode controls what the access counter measures.
type CounterMode string

const (
	// CounterTotal counts every request since the counter was created.
	CounterTotal CounterMode = "total"
	// CounterSinceRefresh resets the counter to zero whenever the page is fetched again.
	CounterSinceRefresh CounterMode = "since_refresh"
)

// ParseCounterMode maps a configuration string to a CounterMode.
func ParseCounterMode(value string) (CounterMode, error) {
	switch CounterMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", CounterTotal:
		return CounterTotal, nil
	case CounterSinceRefresh:
		return CounterSinceRefresh, nil
	default:
		return "", fmt.Errorf("unknown page cache counter mode %q", value)
	}
}

// Options configure a PageCache.
type Options struct {
	TTL         time.Duration
	CachePrefix string
	CountPrefix string
	CounterMode CounterMode
	// CounterTTL makes the access counter expire this long after its first increment.
	// Zero keeps it forever.
	CounterTTL time.Duration
	// Metrics receives hit and miss counts. Nil uses the process-wide module.
	Metrics *monitoring.Module
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 10 * time.Second
	}
	if o.CachePrefix == "" {
		o.CachePrefix = "cached"
	}
	if o.CountPrefix == "" {
		o.CountPrefix = "count"
	}
	if o.CounterMode == "" {
		o.CounterMode = CounterTotal
	}
	return o
}

// Page is the outcome of one lookup.
type Page struct {
	URL      string `json:"url"`
	Content  string `json:"content"`
	Hit      bool   `json:"hit"`
	Accesses int64  `json:"accesses"`
}

// PageCache wraps a Fetcher with a store-side TTL cache keyed by URL.
type PageCache struct {
	store   cache.Store
	fetcher Fetcher
	opts    Options
	log     *zap.Logger
}

var _ Fetcher = (*PageCache)(nil)

// New decorates fetcher with a cache kept in store.
func New(store cache.Store, fetcher Fetcher, opts Options) *PageCache {
	return &PageCache{
		store:   store,
		fetcher: fetcher,
		opts:    opts.withDefaults(),
		log:     logger.WithModule("pagecache"),
	}
}

// Options returns the effective options.
func (p *PageCache) Options() Options {
	return p.opts
}

// CacheKey is the key holding the cached content of url.
func (p *PageCache) CacheKey(url string) string {
	return p.opts.CachePrefix + ":" + url
}

// CountKey is the key holding the access counter of url.
func (p *PageCache) CountKey(url string) string {
	return p.opts.CountPrefix + ":" + url
}

func (p *PageCache) metrics() *monitoring.Module {
	if p.opts.Metrics != nil {
		return p.opts.Metrics
	}
	return monitoring.CurrentModule()
}

// Lookup counts the request, then serves the cached copy of url or fetches and caches it.
func (p *PageCache) Lookup(ctx context.Context, url string) (Page, error) {
	page := Page{URL: url}

	accesses, err := p.count(ctx, url)
	if err != nil {
		return page, err
	}
	page.Accesses = accesses

	cached, ok, err := p.store.Get(ctx, p.CacheKey(url))
	if err != nil {
		return page, fmt.Errorf("read cached page %s: %w", url, err)
	}
	if ok {
		page.Content = string(cached)
		page.Hit = true
		p.metrics().RecordPageLookup(true)
		p.log.Debug("page cache hit", zap.String("url", url), zap.Int64("accesses", accesses))
		return page, nil
	}
	p.metrics().RecordPageLookup(false)

	start := time.Now()
	content, err := p.fetcher.Fetch(ctx, url)
	p.metrics().ObservePageFetch(time.Since(start))
	if err != nil {
		return page, err
	}

	if p.opts.CounterMode == CounterSinceRefresh {
		if err := p.store.Set(ctx, p.CountKey(url), []byte("0"), p.opts.CounterTTL); err != nil {
			return page, fmt.Errorf("reset access count %s: %w", url, err)
		}
		page.Accesses = 0
	}

	if err := p.store.Set(ctx, p.CacheKey(url), []byte(content), p.opts.TTL); err != nil {
		return page, fmt.Errorf("cache page %s: %w", url, err)
	}

	p.log.Debug("page cache miss",
		zap.String("url", url),
		zap.Int("bytes", len(content)),
		zap.Duration("ttl", p.opts.TTL),
	)
	page.Content = content
	return page, nil
}

func (p *PageCache) count(ctx context.Context, url string) (int64, error) {
	key := p.CountKey(url)
	if p.opts.CounterTTL > 0 {
		n, _, err := p.store.IncrementWithTTL(ctx, key, p.opts.CounterTTL)
		if err != nil {
			return 0, fmt.Errorf("count access %s: %w", url, err)
		}
		return n, nil
	}
	n, err := p.store.Incr(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("count access %s: %w", url, err)
	}
	return n, nil
}

// GetPage returns the content of url, from the cache when it is still fresh.
func (p *PageCache) GetPage(ctx context.Context, url string) (string, error) {
	page, err := p.Lookup(ctx, url)
	if err != nil {
		return "", err
	}
	return page.Content, nil
}

// Fetch implements Fetcher so caches can be layered over each other.
func (p *PageCache) Fetch(ctx context.Context, url string) (string, error) {
	return p.GetPage(ctx, url)
}

// AccessCount returns the current access counter of url. A missing or unparsable counter
// reads as zero.
func (p *PageCache) AccessCount(ctx context.Context, url string) (int64, error) {
	raw, ok, err := p.store.Get(ctx, p.CountKey(url))
	if err != nil {
		return 0, fmt.Errorf("read access count %s: %w", url, err)
	}
	if !ok {
		return 0, nil
	}
	n, convErr := strconv.ParseInt(string(raw), 10, 64)
	if convErr != nil {
		return 0, nil
	}
	return n, nil
}
