package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Harshitk-cp/prospector/internal/domain"
)

// HTTPCollector queries a collection service for evidence relevant to a
// hypothesis. The service owns scraping, parsing and credibility scoring;
// the engine consumes its typed output.
type HTTPCollector struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPCollector(endpoint, apiKey string) *HTTPCollector {
	return &HTTPCollector{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

type collectorItem struct {
	RawText     string  `json:"raw_text"`
	Source      string  `json:"source"`
	SignalClass string  `json:"signal_class"`
	Credibility float64 `json:"credibility"`
	CollectedAt string  `json:"collected_at"`
}

type collectorResponse struct {
	Items []collectorItem `json:"items"`
	Error string          `json:"error,omitempty"`
}

func (c *HTTPCollector) Collect(ctx context.Context, h *domain.Hypothesis) ([]domain.Evidence, error) {
	q := url.Values{}
	q.Set("entity_id", h.EntityID.String())
	q.Set("category", h.Category)
	q.Set("statement", h.Statement)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create collector request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("collector request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read collector response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("collector returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed collectorResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse collector response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("collector error: %s", parsed.Error)
	}

	out := make([]domain.Evidence, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		ev := domain.Evidence{
			HypothesisID:     h.ID,
			EntityID:         h.EntityID,
			RawText:          item.RawText,
			Source:           item.Source,
			SignalClass:      parseSignalClass(item.SignalClass),
			CredibilityScore: clamp01(item.Credibility),
		}
		// Unparseable timestamps stay zero and decay to the minimum weight.
		if ts, err := time.Parse(time.RFC3339, item.CollectedAt); err == nil {
			ev.CollectedAt = ts
		}
		out = append(out, ev)
	}
	return out, nil
}

func parseSignalClass(s string) domain.SignalClass {
	switch domain.SignalClass(s) {
	case domain.SignalClassCapability, domain.SignalClassProcurement:
		return domain.SignalClass(s)
	default:
		return domain.SignalClassGeneric
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
