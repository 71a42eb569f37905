package service

import (
	"errors"
	"testing"
	"time"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testHypothesis() *domain.Hypothesis {
	return &domain.Hypothesis{
		ID:         uuid.New(),
		EntityID:   uuid.New(),
		Category:   "budget",
		Statement:  "entity has an approved budget",
		Prior:      0.2,
		Confidence: 0.2,
		Status:     domain.StatusActive,
		PatternKey: "budget/approved-budget",
	}
}

func TestCache_HitAndMiss(t *testing.T) {
	cache := NewHypothesisCache(domain.DefaultTuningConfig(), zap.NewNop())
	h := testHypothesis()

	if got := cache.Get(h.ID); got != nil {
		t.Fatal("expected miss on empty cache")
	}
	if err := cache.Set(h.ID, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := cache.Get(h.ID)
	if got == nil {
		t.Fatal("expected hit after set")
	}
	if got.ID != h.ID {
		t.Errorf("cached id = %s, want %s", got.ID, h.ID)
	}

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("hits=%d misses=%d, want 1/1", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("hit rate = %f, want 0.5", stats.HitRate)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	cache := NewHypothesisCache(domain.DefaultTuningConfig(), zap.NewNop())
	cache.ttl = 10 * time.Millisecond

	h := testHypothesis()
	if err := cache.Set(h.ID, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(25 * time.Millisecond)

	if got := cache.Get(h.ID); got != nil {
		t.Error("expired entry was returned")
	}
	stats := cache.Stats()
	if stats.Expirations != 1 {
		t.Errorf("expirations = %d, want 1", stats.Expirations)
	}
	if stats.Items != 0 {
		t.Errorf("items = %d, want 0 after expiry", stats.Items)
	}
}

func TestCache_HitRefreshesTTL(t *testing.T) {
	cache := NewHypothesisCache(domain.DefaultTuningConfig(), zap.NewNop())
	cache.ttl = 40 * time.Millisecond

	h := testHypothesis()
	if err := cache.Set(h.ID, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Touch the entry before expiry; the second read after the original
	// deadline must still hit because the TTL was refreshed.
	time.Sleep(25 * time.Millisecond)
	if got := cache.Get(h.ID); got == nil {
		t.Fatal("entry expired too early")
	}
	time.Sleep(25 * time.Millisecond)
	if got := cache.Get(h.ID); got == nil {
		t.Error("hit did not refresh the TTL")
	}
}

func TestCache_LRUEvictionUnderBudget(t *testing.T) {
	cfg := domain.DefaultTuningConfig()
	a, b, c := testHypothesis(), testHypothesis(), testHypothesis()
	cfg.CacheBudgetBytes = estimateSize(a) + estimateSize(b)

	cache := NewHypothesisCache(cfg, zap.NewNop())
	if err := cache.Set(a.ID, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cache.Set(b.ID, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Touch a so b is the coldest, then overflow the budget.
	if cache.Get(a.ID) == nil {
		t.Fatal("expected hit for a")
	}
	if err := cache.Set(c.ID, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cache.Get(b.ID) != nil {
		t.Error("coldest entry survived eviction")
	}
	if cache.Get(a.ID) == nil {
		t.Error("recently used entry was evicted")
	}
	if cache.Get(c.ID) == nil {
		t.Error("new entry missing after insert")
	}
	if cache.Stats().Evictions != 1 {
		t.Errorf("evictions = %d, want 1", cache.Stats().Evictions)
	}
}

func TestCache_RejectsOversizedEntry(t *testing.T) {
	cfg := domain.DefaultTuningConfig()
	cfg.CacheBudgetBytes = 64

	cache := NewHypothesisCache(cfg, zap.NewNop())
	err := cache.Set(uuid.New(), testHypothesis())
	if !errors.Is(err, ErrCacheCapacityExceeded) {
		t.Fatalf("error = %v, want ErrCacheCapacityExceeded", err)
	}
	if cache.Stats().Items != 0 {
		t.Error("oversized entry was stored")
	}
}

func TestCache_BackgroundSweep(t *testing.T) {
	cache := NewHypothesisCache(domain.DefaultTuningConfig(), zap.NewNop())
	cache.ttl = 10 * time.Millisecond
	cache.SetSweepInterval(10 * time.Millisecond)

	h := testHypothesis()
	if err := cache.Set(h.ID, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cache.Start()
	defer cache.Stop()

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if cache.Stats().Items == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("sweep did not remove the expired entry")
}

func TestCache_InvalidateAndClear(t *testing.T) {
	cache := NewHypothesisCache(domain.DefaultTuningConfig(), zap.NewNop())
	a, b := testHypothesis(), testHypothesis()
	_ = cache.Set(a.ID, a)
	_ = cache.Set(b.ID, b)

	cache.Invalidate(a.ID)
	if cache.Get(a.ID) != nil {
		t.Error("invalidated entry still cached")
	}

	cache.Clear()
	stats := cache.Stats()
	if stats.Items != 0 || stats.BytesUsed != 0 {
		t.Errorf("items=%d bytes=%d after clear, want 0/0", stats.Items, stats.BytesUsed)
	}
}

func TestCache_GetBatch(t *testing.T) {
	cache := NewHypothesisCache(domain.DefaultTuningConfig(), zap.NewNop())
	a, b := testHypothesis(), testHypothesis()
	_ = cache.Set(a.ID, a)

	found := cache.GetBatch([]uuid.UUID{a.ID, b.ID})
	if len(found) != 1 {
		t.Fatalf("batch found %d, want 1", len(found))
	}
	if _, ok := found[a.ID]; !ok {
		t.Error("batch missed the cached id")
	}
}
