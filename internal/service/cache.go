package service

import (
	"container/list"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSweepInterval = 1 * time.Minute

// ErrCacheCapacityExceeded is returned when a single entry exceeds the
// whole memory budget even after evicting everything else. The entry is
// rejected; callers proceed without caching.
var ErrCacheCapacityExceeded = errors.New("cache entry exceeds memory budget")

// CacheStats is the capacity-planning view of the cache. Not used for
// correctness.
type CacheStats struct {
	Hits        int64    `json:"hits"`
	Misses      int64    `json:"misses"`
	HitRate     float64  `json:"hit_rate"`
	Items       int      `json:"items"`
	BytesUsed   int64    `json:"bytes_used"`
	Evictions   int64    `json:"evictions"`
	Expirations int64    `json:"expirations"`
	TopKeys     []TopKey `json:"top_keys"`
}

type TopKey struct {
	ID       uuid.UUID `json:"id"`
	Accesses int64     `json:"accesses"`
}

type cacheEntry struct {
	id        uuid.UUID
	value     *domain.Hypothesis
	size      int64
	expiresAt time.Time
	accesses  int64
}

// HypothesisCache keeps hot hypothesis records in bounded memory. Strict
// LRU eviction under a byte budget, TTL expiry checked lazily on read and
// by a background sweep. One mutex guards the LRU list and index; hot-path
// sections are short so per-key locking is not worth its bookkeeping.
type HypothesisCache struct {
	logger *zap.Logger

	budget int64
	ttl    time.Duration

	mu    sync.Mutex
	lru   *list.List // front = most recently used
	index map[uuid.UUID]*list.Element
	used  int64

	hits        int64
	misses      int64
	evictions   int64
	expirations int64

	sweepInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

func NewHypothesisCache(cfg domain.TuningConfig, logger *zap.Logger) *HypothesisCache {
	return &HypothesisCache{
		logger:        logger,
		budget:        cfg.CacheBudgetBytes,
		ttl:           time.Duration(cfg.CacheTTLMinutes) * time.Minute,
		lru:           list.New(),
		index:         make(map[uuid.UUID]*list.Element),
		sweepInterval: defaultSweepInterval,
		stopCh:        make(chan struct{}),
	}
}

func (c *HypothesisCache) SetSweepInterval(d time.Duration) {
	c.sweepInterval = d
}

// Start launches the background TTL sweep.
func (c *HypothesisCache) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()

		c.logger.Info("cache sweep started", zap.Duration("interval", c.sweepInterval))

		for {
			select {
			case <-ticker.C:
				removed := c.sweep(time.Now())
				if removed > 0 {
					c.logger.Debug("cache sweep removed expired entries", zap.Int("count", removed))
				}
			case <-c.stopCh:
				c.logger.Info("cache sweep stopped")
				return
			}
		}
	}()
}

func (c *HypothesisCache) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

// Get returns the cached hypothesis, or nil on miss. Expired entries are
// removed and never returned even when the budget would allow them.
func (c *HypothesisCache) Get(id uuid.UUID) *domain.Hypothesis {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[id]
	if !ok {
		c.misses++
		return nil
	}

	entry := el.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeLocked(el)
		c.expirations++
		c.misses++
		return nil
	}

	entry.accesses++
	entry.expiresAt = time.Now().Add(c.ttl)
	c.lru.MoveToFront(el)
	c.hits++
	return entry.value
}

// GetBatch returns the subset of ids currently cached.
func (c *HypothesisCache) GetBatch(ids []uuid.UUID) map[uuid.UUID]*domain.Hypothesis {
	found := make(map[uuid.UUID]*domain.Hypothesis, len(ids))
	for _, id := range ids {
		if h := c.Get(id); h != nil {
			found[id] = h
		}
	}
	return found
}

// Set inserts or refreshes an entry, evicting the coldest entries until the
// budget fits. A single entry larger than the whole budget is rejected.
func (c *HypothesisCache) Set(id uuid.UUID, h *domain.Hypothesis) error {
	size := estimateSize(h)
	if c.budget > 0 && size > c.budget {
		return ErrCacheCapacityExceeded
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[id]; ok {
		c.removeLocked(el)
	}

	for c.budget > 0 && c.used+size > c.budget {
		coldest := c.lru.Back()
		if coldest == nil {
			break
		}
		c.removeLocked(coldest)
		c.evictions++
	}

	entry := &cacheEntry{
		id:        id,
		value:     h,
		size:      size,
		expiresAt: time.Now().Add(c.ttl),
		accesses:  1,
	}
	c.index[id] = c.lru.PushFront(entry)
	c.used += size
	return nil
}

func (c *HypothesisCache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[id]; ok {
		c.removeLocked(el)
	}
}

func (c *HypothesisCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Init()
	c.index = make(map[uuid.UUID]*list.Element)
	c.used = 0
}

// Stats returns a point-in-time snapshot with the ten most-accessed keys.
func (c *HypothesisCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Hits:        c.hits,
		Misses:      c.misses,
		Items:       c.lru.Len(),
		BytesUsed:   c.used,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}

	for el := c.lru.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*cacheEntry)
		stats.TopKeys = append(stats.TopKeys, TopKey{ID: entry.id, Accesses: entry.accesses})
	}
	sort.Slice(stats.TopKeys, func(i, j int) bool {
		return stats.TopKeys[i].Accesses > stats.TopKeys[j].Accesses
	})
	if len(stats.TopKeys) > 10 {
		stats.TopKeys = stats.TopKeys[:10]
	}
	return stats
}

func (c *HypothesisCache) sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		entry := el.Value.(*cacheEntry)
		if now.After(entry.expiresAt) {
			c.removeLocked(el)
			c.expirations++
			removed++
		}
		el = prev
	}
	return removed
}

func (c *HypothesisCache) removeLocked(el *list.Element) {
	entry := el.Value.(*cacheEntry)
	c.lru.Remove(el)
	delete(c.index, entry.id)
	c.used -= entry.size
}

// estimateSize approximates the in-memory footprint of a hypothesis via
// its JSON encoding plus fixed overhead for the entry bookkeeping.
func estimateSize(h *domain.Hypothesis) int64 {
	const entryOverhead = 128
	b, err := json.Marshal(h)
	if err != nil {
		return entryOverhead
	}
	return int64(len(b)) + entryOverhead
}
