package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
	"github.com/civicsignal/go-message-pipeline/pkg/store"
)

// MessageStore reads the producer's interim records and materializes
// message content. All writes are upserts: under at-least-once delivery
// every pipeline stage can re-run for the same messageId.
type MessageStore struct {
	client *firestore.Client
}

func NewMessageStore(client *firestore.Client) *MessageStore {
	return &MessageStore{client: client}
}

func (s *MessageStore) RetrieveProcessing(ctx context.Context, messageID string) (*messaging.ProcessingMessageData, error) {
	doc, err := s.client.Collection("processing-messages").Doc(messageID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore processing-message get failed: %w", err)
	}

	var data messaging.ProcessingMessageData
	if err := doc.DataTo(&data); err != nil {
		return nil, fmt.Errorf("failed to decode processing data %s: %w", messageID, err)
	}
	return &data, nil
}

func (s *MessageStore) StoreContent(ctx context.Context, messageID string, content messaging.MessageContent) error {
	// Set, not Create: retries overwrite with identical content instead of
	// failing on an existing document.
	_, err := s.client.Collection("message-content").Doc(messageID).Set(ctx, content)
	if err != nil {
		return fmt.Errorf("firestore content write failed for %s: %w", messageID, err)
	}
	return nil
}

func (s *MessageStore) MarkProcessed(ctx context.Context, messageID string) error {
	_, err := s.client.Collection("messages").Doc(messageID).Set(ctx, map[string]any{
		"isPending": false,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("firestore pending flip failed for %s: %w", messageID, err)
	}
	return nil
}
