package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Harshitk-cp/prospector/internal/domain"
)

// HTTPClient posts a hypothesis and its evidence to a judge endpoint and
// parses the verdict. The endpoint is typically an LLM-backed classifier;
// the engine does not care which.
type HTTPClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPClient(endpoint, apiKey string) *HTTPClient {
	return &HTTPClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

type judgeRequest struct {
	Statement string            `json:"statement"`
	Category  string            `json:"category"`
	Evidence  []judgeEvidence   `json:"evidence"`
}

type judgeEvidence struct {
	Text        string  `json:"text"`
	Source      string  `json:"source"`
	Credibility float64 `json:"credibility"`
}

type judgeResponse struct {
	Decision        string  `json:"decision"`
	ConfidenceDelta float64 `json:"confidence_delta"`
	Rationale       string  `json:"rationale"`
	Error           string  `json:"error,omitempty"`
}

func (c *HTTPClient) Judge(ctx context.Context, h *domain.Hypothesis, evidence []domain.Evidence) (*domain.Verdict, error) {
	req := judgeRequest{
		Statement: h.Statement,
		Category:  h.Category,
	}
	for _, ev := range evidence {
		req.Evidence = append(req.Evidence, judgeEvidence{
			Text:        ev.RawText,
			Source:      ev.Source,
			Credibility: ev.CredibilityScore,
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal judge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create judge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("judge request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read judge response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("judge returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result judgeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal judge response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("judge error: %s", result.Error)
	}

	decision, err := parseDecision(result.Decision)
	if err != nil {
		return nil, err
	}
	return &domain.Verdict{
		Decision:        decision,
		ConfidenceDelta: result.ConfidenceDelta,
		Rationale:       result.Rationale,
	}, nil
}

func parseDecision(s string) (domain.Decision, error) {
	switch domain.Decision(s) {
	case domain.DecisionAccept, domain.DecisionWeakAccept, domain.DecisionReject, domain.DecisionNoProgress:
		return domain.Decision(s), nil
	default:
		return "", fmt.Errorf("judge returned unknown decision %q", s)
	}
}
