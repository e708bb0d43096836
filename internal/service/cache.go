package service

import (
	"container/list"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/blip-health/blipgate/internal/model"
	"github.com/blip-health/blipgate/internal/pkg/logger"
	"github.com/blip-health/blipgate/internal/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// CacheResult is reported to the caller through the X-Cache header.
type CacheResult string

const (
	CacheHit    CacheResult = "HIT"
	CacheMiss   CacheResult = "MISS"
	CacheBypass CacheResult = "BYPASS"
)

// uncacheable statuses are always fetched fresh and never stored.
var uncacheable = map[int]struct{}{
	http.StatusBadRequest:          {},
	http.StatusUnauthorized:        {},
	http.StatusForbidden:           {},
	http.StatusNotFound:            {},
	http.StatusMethodNotAllowed:    {},
	http.StatusNotAcceptable:       {},
	http.StatusInternalServerError: {},
	http.StatusServiceUnavailable:  {},
}

// Cacheable reports whether a response with this status may be stored.
func Cacheable(status int) bool {
	_, bad := uncacheable[status]
	return !bad
}

type CacheStore interface {
	Get(ctx context.Context, key string) (*model.CacheEntry, bool, error)
	Set(ctx context.Context, entry *model.CacheEntry, ttl time.Duration) error
}

// Sweeper is implemented by stores that need expired entries purged actively.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// ResponseCache serves GET responses from a CacheStore, collapsing concurrent
// misses on the same key into one upstream call.
type ResponseCache struct {
	store CacheStore
	ttl   time.Duration
	group singleflight.Group
	now   func() time.Time
}

func NewResponseCache(store CacheStore, ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: store, ttl: ttl, now: time.Now}
}

// Fetch returns the cached response for key, or calls fetch and stores the
// result when its status is cacheable. Store failures degrade to a miss.
func (c *ResponseCache) Fetch(ctx context.Context, key string, fetch func(context.Context) (*model.UpstreamResponse, error)) (*model.UpstreamResponse, CacheResult, error) {
	if entry, ok := c.lookup(ctx, key); ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return &model.UpstreamResponse{
			StatusCode: entry.StatusCode,
			Header:     entry.Header.Clone(),
			Body:       entry.Body,
		}, CacheHit, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// shared by every waiter on key, so one caller leaving must not cancel it
		shared := context.WithoutCancel(ctx)
		resp, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		if !Cacheable(resp.StatusCode) {
			return resp, nil
		}
		entry := &model.CacheEntry{
			Key:        key,
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       resp.Body,
			InsertedAt: c.now(),
		}
		if err := c.store.Set(shared, entry, c.ttl); err != nil {
			logger.Warn("cache store write failed", "error", err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, CacheMiss, err
	}

	resp := v.(*model.UpstreamResponse)
	if !Cacheable(resp.StatusCode) {
		metrics.CacheLookups.WithLabelValues("bypass").Inc()
		return resp, CacheBypass, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()
	return resp, CacheMiss, nil
}

func (c *ResponseCache) lookup(ctx context.Context, key string) (*model.CacheEntry, bool) {
	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		logger.Warn("cache store read failed", "error", err)
		return nil, false
	}
	if !ok || entry == nil || entry.Key != key {
		return nil, false
	}
	if entry.Expired(c.now(), c.ttl) {
		return nil, false
	}
	return entry, true
}

// RunSweeper purges expired entries every interval until ctx is done. It is a
// no-op for stores that expire entries on their own.
func (c *ResponseCache) RunSweeper(ctx context.Context, interval time.Duration) {
	sweeper, ok := c.store.(Sweeper)
	if !ok || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sweeper.Sweep(ctx)
			if err != nil {
				logger.Warn("cache sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("cache sweep", "removed", n)
			}
		}
	}
}

type memoryItem struct {
	entry     *model.CacheEntry
	expiresAt time.Time
	elem      *list.Element
}

// MemoryCacheStore is an in-process store bounded by entry count. When full,
// the oldest inserted entry is evicted first.
type MemoryCacheStore struct {
	mu         sync.Mutex
	items      map[string]*memoryItem
	order      *list.List
	maxEntries int
	now        func() time.Time
}

func NewMemoryCacheStore(maxEntries int) *MemoryCacheStore {
	return &MemoryCacheStore{
		items:      make(map[string]*memoryItem),
		order:      list.New(),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (s *MemoryCacheStore) Get(_ context.Context, key string) (*model.CacheEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(item.expiresAt) {
		s.removeLocked(key, item)
		return nil, false, nil
	}
	return item.entry, true, nil
}

func (s *MemoryCacheStore) Set(_ context.Context, entry *model.CacheEntry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.items[entry.Key]; ok {
		s.removeLocked(entry.Key, old)
	}
	for s.maxEntries > 0 && len(s.items) >= s.maxEntries {
		oldest := s.order.Front()
		if oldest == nil {
			break
		}
		key := oldest.Value.(string)
		s.removeLocked(key, s.items[key])
	}

	item := &memoryItem{
		entry:     entry,
		expiresAt: entry.InsertedAt.Add(ttl),
	}
	item.elem = s.order.PushBack(entry.Key)
	s.items[entry.Key] = item
	return nil
}

// Sweep drops every expired entry and returns how many were removed.
func (s *MemoryCacheStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, item := range s.items {
		if !now.Before(item.expiresAt) {
			s.removeLocked(key, item)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryCacheStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *MemoryCacheStore) removeLocked(key string, item *memoryItem) {
	if item == nil {
		return
	}
	s.order.Remove(item.elem)
	delete(s.items, key)
}
