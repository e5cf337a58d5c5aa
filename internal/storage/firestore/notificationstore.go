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

// NotificationStore persists notification aggregates, one document per
// messageId. The document id is the messageId, which is what makes "at most
// one notification per message" a storage invariant instead of a convention.
type NotificationStore struct {
	client *firestore.Client
}

func NewNotificationStore(client *firestore.Client) *NotificationStore {
	return &NotificationStore{client: client}
}

// Create writes the notification with create-once semantics. When a
// redelivered message races or replays, the original document wins and is
// returned, so the channel set and notification id never change after the
// first write.
func (s *NotificationStore) Create(ctx context.Context, n *messaging.Notification) (*messaging.Notification, error) {
	ref := s.client.Collection("notifications").Doc(n.MessageID)

	_, err := ref.Create(ctx, n)
	if status.Code(err) == codes.AlreadyExists {
		return s.GetByMessageID(ctx, n.MessageID)
	}
	if err != nil {
		return nil, fmt.Errorf("firestore notification create failed for %s: %w", n.MessageID, err)
	}
	return n, nil
}

func (s *NotificationStore) GetByMessageID(ctx context.Context, messageID string) (*messaging.Notification, error) {
	doc, err := s.client.Collection("notifications").Doc(messageID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore notification get failed for %s: %w", messageID, err)
	}

	var n messaging.Notification
	if err := doc.DataTo(&n); err != nil {
		return nil, fmt.Errorf("failed to decode notification %s: %w", messageID, err)
	}
	return &n, nil
}
