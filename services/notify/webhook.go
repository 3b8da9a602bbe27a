package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/enrollment-api/model"
)

// WebhookNotifier posts enrollment events as JSON to an automation webhook
type WebhookNotifier struct {
	URL        string
	HTTPClient *http.Client
}

// NewWebhookNotifier creates a webhook notifier.
// The client has no timeout; the request is bounded by the caller's context only.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:        url,
		HTTPClient: &http.Client{},
	}
}

// Send posts the event. The response is drained and discarded without being inspected.
func (w *WebhookNotifier) Send(ctx context.Context, event model.EnrollmentEvent) {
	if err := w.post(ctx, event); err != nil {
		log.Errorf("webhook notify failed for %s: %v", event.Email, err)
	}
}

func (w *WebhookNotifier) post(ctx context.Context, event model.EnrollmentEvent) error {
	if w.URL == "" {
		return fmt.Errorf("webhook url not configured")
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	// let the transport reuse the connection
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
