// Package webhook delivers created-notification payloads to the configured
// webhook endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/civicsignal/go-message-pipeline/pkg/dispatch"
	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
)

// payload is the wire body POSTed to the subscriber endpoint.
type payload struct {
	MessageID       string    `json:"messageId"`
	NotificationID  string    `json:"notificationId"`
	FiscalCode      string    `json:"fiscalCode"`
	SenderServiceID string    `json:"senderServiceId"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Dispatcher struct {
	httpClient *http.Client
	token      string
	logger     *slog.Logger
}

// NewDispatcher creates a webhook dispatcher. token, when set, is sent as a
// bearer credential so the receiving endpoint can authenticate the platform.
func NewDispatcher(httpClient *http.Client, token string, logger *slog.Logger) *Dispatcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Dispatcher{
		httpClient: httpClient,
		token:      token,
		logger:     logger.With("component", "WebhookDispatcher"),
	}
}

// Dispatch POSTs the created event to the channel URL and classifies the
// response: 2xx delivered, 404/410 and other 4xx permanent, everything else
// transient so the pipeline retries.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	ch messaging.WebhookChannel,
	event messaging.NotificationCreatedEvent,
	message messaging.Message,
) error {
	body, err := json.Marshal(payload{
		MessageID:       event.MessageID,
		NotificationID:  event.NotificationID,
		FiscalCode:      message.FiscalCode,
		SenderServiceID: message.SenderServiceID,
		CreatedAt:       message.CreatedAt,
	})
	if err != nil {
		return dispatch.Permanent(fmt.Errorf("failed to marshal webhook payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ch.URL, bytes.NewReader(body))
	if err != nil {
		return dispatch.Permanent(fmt.Errorf("failed to build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		// Transport error (DNS, timeout): retryable.
		return fmt.Errorf("webhook transport error for %s: %w", ch.URL, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		// Endpoint is dead; retrying cannot revive it.
		return dispatch.Permanent(fmt.Errorf("webhook endpoint gone: status %d", resp.StatusCode))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		d.logger.Warn("Webhook rejected", "status", resp.StatusCode, "url", ch.URL)
		return dispatch.Permanent(fmt.Errorf("webhook rejected: status %d", resp.StatusCode))
	default:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
}
