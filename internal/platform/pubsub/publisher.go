// Package pubsub adapts the Google Pub/Sub client to the pipeline's event
// publisher contract.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

// Publisher fans pipeline events out to Pub/Sub topics. Topic publishers
// are created lazily and reused; Stop flushes their outstanding batches.
type Publisher struct {
	client *gcppubsub.Client
	logger *slog.Logger

	mu         sync.Mutex
	publishers map[string]*gcppubsub.Publisher
}

func NewPublisher(client *gcppubsub.Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:     client,
		logger:     logger.With("component", "EventPublisher"),
		publishers: make(map[string]*gcppubsub.Publisher),
	}
}

// Publish marshals the event as JSON and blocks until the Pub/Sub server
// acknowledges it, so a returned nil means the event is durably queued.
func (p *Publisher) Publish(ctx context.Context, topicID string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for topic %s: %w", topicID, err)
	}

	result := p.topic(topicID).Publish(ctx, &gcppubsub.Message{Data: payload})
	serverID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish to topic %s: %w", topicID, err)
	}

	p.logger.Debug("Event published", "topic_id", topicID, "server_id", serverID)
	return nil
}

func (p *Publisher) topic(topicID string) *gcppubsub.Publisher {
	p.mu.Lock()
	defer p.mu.Unlock()
	pub, ok := p.publishers[topicID]
	if !ok {
		pub = p.client.Publisher(topicID)
		p.publishers[topicID] = pub
	}
	return pub
}

// Stop flushes and stops every topic publisher. Call during shutdown after
// the pipeline stages have drained.
func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, pub := range p.publishers {
		pub.Stop()
		delete(p.publishers, id)
	}
}
