// Package report forwards per-iteration decision output to downstream
// consumers. Sinks only ever see the external signal vocabulary.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"go.uber.org/zap"
)

// LogSink writes every iteration report to the structured log.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, report domain.IterationReport) error {
	s.logger.Info("iteration report",
		zap.String("entity_id", report.EntityID.String()),
		zap.Int("iteration", report.Iteration),
		zap.String("signal", string(report.Signal)),
		zap.String("band", string(report.Band)),
		zap.Float64("confidence", report.Confidence))
	return nil
}

// WebhookSink posts reports to an external endpoint and logs them as well.
type WebhookSink struct {
	url        string
	httpClient *http.Client
	log        *LogSink
}

func NewWebhookSink(url string, logger *zap.Logger) *WebhookSink {
	return &WebhookSink{
		url:        url,
		httpClient: &http.Client{},
		log:        NewLogSink(logger),
	}
}

func (s *WebhookSink) Emit(ctx context.Context, report domain.IterationReport) error {
	_ = s.log.Emit(ctx, report)

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("report webhook failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("report webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// NewSink returns a webhook sink when a URL is configured, otherwise a
// plain log sink.
func NewSink(webhookURL string, logger *zap.Logger) domain.ReportSink {
	if webhookURL != "" {
		return NewWebhookSink(webhookURL, logger)
	}
	return NewLogSink(logger)
}
