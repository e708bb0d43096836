package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/blip-health/blipgate/internal/model"
)

// HTTPAuditSink posts the bare event message to an external ingestion
// endpoint. The response body is ignored.
type HTTPAuditSink struct {
	url    string
	client *http.Client
}

func NewHTTPAuditSink(url string, timeout time.Duration) *HTTPAuditSink {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPAuditSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPAuditSink) Name() string {
	return "http"
}

func (s *HTTPAuditSink) Deliver(ctx context.Context, event *model.AuditEvent) error {
	if event == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBufferString(event.Message))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if event.RequestID != "" {
		req.Header.Set("X-Request-ID", event.RequestID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("audit sink answered %d", resp.StatusCode)
	}
	return nil
}
