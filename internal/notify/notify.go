// Package notify delivers best-effort messages to actors and population
// broadcast channels. Delivery failures are logged by callers and never
// retried by the engines.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Sink is the outbound notification surface of the engine.
type Sink interface {
	// NotifyActor delivers a direct message to a single actor.
	NotifyActor(ctx context.Context, actorID string, message string) error
	// Broadcast delivers a message to a population broadcast channel.
	Broadcast(ctx context.Context, channelRef string, message string) error
}

// Message is the wire form posted to the webhook sink.
type Message struct {
	Target  string `json:"target"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// WebhookSink posts notifications to a configured HTTP endpoint.
type WebhookSink struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	logger := slog.With("component", "notify", "sink", "webhook")
	logger.Debug("Initializing webhook notification sink", "url", url)

	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (s *WebhookSink) NotifyActor(ctx context.Context, actorID string, message string) error {
	return s.post(ctx, Message{Target: actorID, Kind: "actor", Message: message})
}

func (s *WebhookSink) Broadcast(ctx context.Context, channelRef string, message string) error {
	return s.post(ctx, Message{Target: channelRef, Kind: "channel", Message: message})
}

func (s *WebhookSink) post(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification sink responded with status %d", resp.StatusCode)
	}

	s.logger.Debug("Notification delivered", "target", msg.Target, "kind", msg.Kind)
	return nil
}

// NopSink discards all notifications. Used when no webhook is configured.
type NopSink struct{}

func (NopSink) NotifyActor(ctx context.Context, actorID string, message string) error { return nil }

func (NopSink) Broadcast(ctx context.Context, channelRef string, message string) error { return nil }
