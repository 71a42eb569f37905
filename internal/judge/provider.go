// Package judge holds clients for the external evidence-classification
// service. The engine only ever sees the domain.VerdictClient interface.
package judge

import (
	"fmt"

	"github.com/Harshitk-cp/prospector/internal/domain"
)

const (
	ProviderHTTP = "http"
	ProviderMock = "mock"
)

// NewClient creates a verdict client for the configured provider.
func NewClient(provider, endpoint, apiKey string) (domain.VerdictClient, error) {
	switch provider {
	case ProviderHTTP:
		if endpoint == "" {
			return nil, fmt.Errorf("JUDGE_ENDPOINT is required for http provider")
		}
		return NewHTTPClient(endpoint, apiKey), nil
	case ProviderMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown judge provider: %s", provider)
	}
}
