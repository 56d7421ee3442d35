package firms

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/firms-hotspot-service/internal/domain"
	"github.com/couchcryptid/firms-hotspot-service/internal/observability"
)

// Default cache settings.
const (
	DefaultRefreshWindow  = 30 * time.Minute
	DefaultMaxEntries     = 64
	DefaultPublishTimeout = 30 * time.Second
)

// CacheConfig configures the retrieval cache.
type CacheConfig struct {
	// MapKey takes part in the fingerprint only; it is never stored in plain text.
	MapKey         string
	RefreshWindow  time.Duration
	MaxEntries     int
	Location       *time.Location
	Clock          clockwork.Clock
	Sink           domain.Sink // optional
	PublishTimeout time.Duration
}

// Cache serves hotspot datasets, calling the upstream source at most once per
// refresh window for each query fingerprint.
type Cache struct {
	source  domain.Source
	mapKey  string
	loc     *time.Location
	clock   clockwork.Clock
	sink    domain.Sink
	metrics *observability.Metrics
	logger  *slog.Logger

	publishTimeout time.Duration
	publishes      sync.WaitGroup

	group   singleflight.Group
	entries *lruCache
	fetches atomic.Int64
}

// NewCache wraps a source with a time-windowed LRU cache.
func NewCache(source domain.Source, cfg CacheConfig, metrics *observability.Metrics, logger *slog.Logger) *Cache {
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = DefaultRefreshWindow
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	return &Cache{
		source:         source,
		mapKey:         cfg.MapKey,
		loc:            cfg.Location,
		clock:          cfg.Clock,
		sink:           cfg.Sink,
		metrics:        metrics,
		logger:         logger,
		publishTimeout: cfg.PublishTimeout,
		entries:        newLRUCache(cfg.MaxEntries, cfg.RefreshWindow),
	}
}

// Fingerprint identifies a query together with the credential that serves it.
func Fingerprint(q domain.Query, mapKey string) string {
	sum := sha256.Sum256([]byte(q.BBox.String() + "|" + strconv.Itoa(q.Days) + "|" + mapKey + "|" + q.Source))
	return hex.EncodeToString(sum[:])
}

// FetchCount reports how many upstream fetches the cache has issued.
func (c *Cache) FetchCount() int64 {
	return c.fetches.Load()
}

// Get returns the dataset for q. A valid cached entry is returned without a
// network call unless forceRefresh is set. Concurrent misses for the same
// fingerprint share one fetch; a caller whose context ends stops waiting but
// the fetch completes for the others.
func (c *Cache) Get(ctx context.Context, q domain.Query, forceRefresh bool) (domain.Dataset, error) {
	if err := q.Validate(); err != nil {
		return domain.Dataset{}, err
	}
	fp := Fingerprint(q, c.mapKey)

	if forceRefresh {
		c.metrics.CacheLookups.WithLabelValues("forced").Inc()
	} else {
		if ds, ok := c.lookup(fp); ok {
			c.metrics.CacheLookups.WithLabelValues("hit").Inc()
			return ds, nil
		}
		c.metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fp, func() (any, error) {
		// A fetch may have landed between the lookup above and this flight.
		if !forceRefresh {
			if ds, ok := c.lookup(fp); ok {
				return ds, nil
			}
		}
		return c.fetch(flightCtx, q, fp)
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.metrics.CacheLookups.WithLabelValues("coalesced").Inc()
		}
		if res.Err != nil {
			return domain.Dataset{}, res.Err
		}
		return res.Val.(domain.Dataset), nil
	case <-ctx.Done():
		return domain.Dataset{}, ctx.Err()
	}
}

// Wait blocks until every sink publish started so far has finished.
func (c *Cache) Wait() {
	c.publishes.Wait()
}

// lookup returns the cached dataset for fp while it is inside the refresh window.
func (c *Cache) lookup(fp string) (domain.Dataset, bool) {
	e, ok := c.entries.get(fp, c.clock.Now())
	if !ok {
		return domain.Dataset{}, false
	}
	return e.dataset, true
}

func (c *Cache) fetch(ctx context.Context, q domain.Query, fp string) (domain.Dataset, error) {
	c.fetches.Add(1)
	payload, err := c.source.Fetch(ctx, q)
	if err != nil {
		return domain.Dataset{}, err
	}
	now := c.clock.Now()

	var ds domain.Dataset
	res, err := domain.ParseCSV(bytes.NewReader(payload.Body), c.loc)
	var schemaErr *domain.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		c.logger.Warn("firms response has no usable columns",
			"url", payload.URL,
			"missing", schemaErr.Missing,
			"body", snippet(payload.Body),
		)
		ds = domain.EmptyDataset(q, payload.URL, now)
	case err != nil:
		return domain.Dataset{}, &domain.UpstreamError{Op: "decode", URL: payload.URL, Err: err}
	default:
		ds = domain.NewDataset(q, payload.URL, now, res)
	}

	if n := len(ds.Rejected); n > 0 {
		c.metrics.RowsRejected.Add(float64(n))
		c.logger.Warn("firms rows rejected", "count", n, "first", ds.Rejected[0].Error())
	}

	c.entries.put(fp, cacheEntry{dataset: ds, fetchedAt: now})
	c.metrics.CacheEntries.Set(float64(c.entries.len()))
	c.metrics.DatasetRecords.Set(float64(ds.Len()))
	c.logger.Info("firms dataset fetched",
		"fingerprint", fp[:12],
		"records", ds.Len(),
		"rejected", len(ds.Rejected),
		"url", payload.URL,
	)

	if c.sink != nil {
		c.publish(ctx, fp, ds)
	}
	return ds, nil
}

// publish hands ds to the sink in the background under its own deadline, so
// callers waiting on the fetch never wait on the sink.
func (c *Cache) publish(ctx context.Context, fp string, ds domain.Dataset) {
	c.publishes.Go(func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.publishTimeout)
		defer cancel()
		if err := c.sink.PublishDataset(pubCtx, ds); err != nil {
			c.logger.Error("publish dataset", "fingerprint", fp[:12], "error", err)
		}
	})
}

// snippet trims a response body for logging.
func snippet(body []byte) string {
	const limit = 120
	if len(body) > limit {
		body = body[:limit]
	}
	return string(bytes.TrimSpace(body))
}

// cacheEntry is one fetched dataset and the moment it was fetched.
type cacheEntry struct {
	dataset   domain.Dataset
	fetchedAt time.Time
}

// lruCache is a thread-safe LRU of datasets keyed by fingerprint. Entries older
// than window are dropped on access and swept on every put.
type lruCache struct {
	maxEntries int
	window     time.Duration
	mu         sync.Mutex
	entries    map[string]*node
	head       *node // most recently used
	tail       *node // least recently used
}

type node struct {
	key   string
	value cacheEntry
	prev  *node
	next  *node
}

func newLRUCache(maxEntries int, window time.Duration) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		window:     window,
		entries:    make(map[string]*node),
	}
}

func (c *lruCache) expired(e cacheEntry, now time.Time) bool {
	return !now.Before(e.fetchedAt.Add(c.window))
}

// get returns the entry for key if it is still fresh at now.
func (c *lruCache) get(key string, now time.Time) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		return cacheEntry{}, false
	}
	if c.expired(n.value, now) {
		c.unlink(n)
		return cacheEntry{}, false
	}
	c.moveToFront(n)
	return n.value, true
}

// put stores value under key. The entry's fetch time is taken as now for the
// expiry sweep.
func (c *lruCache) put(key string, value cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep(value.fetchedAt)

	if n, ok := c.entries[key]; ok {
		n.value = value
		c.moveToFront(n)
		return
	}

	n := &node{key: key, value: value}
	c.entries[key] = n
	c.addToFront(n)

	if len(c.entries) > c.maxEntries {
		c.unlink(c.tail)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweep drops every entry expired at now.
func (c *lruCache) sweep(now time.Time) {
	for n := c.tail; n != nil; {
		prev := n.prev
		if c.expired(n.value, now) {
			c.unlink(n)
		}
		n = prev
	}
}

func (c *lruCache) moveToFront(n *node) {
	if n == c.head {
		return
	}
	c.remove(n)
	c.addToFront(n)
}

func (c *lruCache) addToFront(n *node) {
	n.next = c.head
	n.prev = nil
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *lruCache) remove(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
}

func (c *lruCache) unlink(n *node) {
	if n == nil {
		return
	}
	delete(c.entries, n.key)
	c.remove(n)
}
