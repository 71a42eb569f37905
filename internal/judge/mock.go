package judge

import (
	"context"
	"strings"

	"github.com/Harshitk-cp/prospector/internal/domain"
)

// MockClient is a deterministic, keyword-driven judge for testing and for
// running the engine without an external classifier. Set the response
// fields to override the keyword behavior.
type MockClient struct {
	JudgeResponse *domain.Verdict
	JudgeError    error

	// Call tracking for assertions
	JudgeCalls []string
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Judge(ctx context.Context, h *domain.Hypothesis, evidence []domain.Evidence) (*domain.Verdict, error) {
	m.JudgeCalls = append(m.JudgeCalls, h.Statement)

	if m.JudgeError != nil {
		return nil, m.JudgeError
	}
	if m.JudgeResponse != nil {
		return m.JudgeResponse, nil
	}

	var combined strings.Builder
	for _, ev := range evidence {
		combined.WriteString(strings.ToLower(ev.RawText))
		combined.WriteByte(' ')
	}
	text := combined.String()

	switch {
	case strings.Contains(text, "vendor selected") || strings.Contains(text, "rfp issued"):
		return &domain.Verdict{Decision: domain.DecisionAccept, Rationale: "transactional language"}, nil
	case strings.Contains(text, "hiring") || strings.Contains(text, "director"):
		return &domain.Verdict{Decision: domain.DecisionWeakAccept, Rationale: "capability signal"}, nil
	case strings.Contains(text, "cancelled") || strings.Contains(text, "abandoned"):
		return &domain.Verdict{Decision: domain.DecisionReject, Rationale: "contradicting language"}, nil
	default:
		return &domain.Verdict{Decision: domain.DecisionNoProgress, Rationale: "no usable signal"}, nil
	}
}
