package evidence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Harshitk-cp/prospector/internal/domain"
)

// MockCollector synthesizes evidence for development and testing. Each
// call produces a fresh source reference so updates are never rejected as
// duplicates.
type MockCollector struct {
	mu    sync.Mutex
	calls int

	// Items, when set, is returned verbatim instead of synthesized output.
	Items []domain.Evidence
}

func NewMockCollector() *MockCollector {
	return &MockCollector{}
}

func (m *MockCollector) Collect(ctx context.Context, h *domain.Hypothesis) ([]domain.Evidence, error) {
	m.mu.Lock()
	m.calls++
	n := m.calls
	m.mu.Unlock()

	if m.Items != nil {
		return m.Items, nil
	}

	return []domain.Evidence{{
		HypothesisID:     h.ID,
		EntityID:         h.EntityID,
		RawText:          fmt.Sprintf("synthetic observation %d for %s", n, h.Category),
		Source:           fmt.Sprintf("mock://%s/%d", h.ID, n),
		SignalClass:      domain.SignalClassGeneric,
		CredibilityScore: 0.5,
		CollectedAt:      time.Now(),
	}}, nil
}
