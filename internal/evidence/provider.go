// Package evidence holds clients for external evidence collectors. The
// engine only ever sees the domain.EvidenceProvider interface.
package evidence

import (
	"fmt"

	"github.com/Harshitk-cp/prospector/internal/domain"
)

const (
	ProviderHTTP = "http"
	ProviderMock = "mock"
)

// NewCollector creates an evidence provider for the configured backend.
func NewCollector(provider, endpoint, apiKey string) (domain.EvidenceProvider, error) {
	switch provider {
	case ProviderHTTP:
		if endpoint == "" {
			return nil, fmt.Errorf("EVIDENCE_ENDPOINT is required for http provider")
		}
		return NewHTTPCollector(endpoint, apiKey), nil
	case ProviderMock:
		return NewMockCollector(), nil
	default:
		return nil, fmt.Errorf("unknown evidence provider: %s", provider)
	}
}
