package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/civicsignal/go-message-pipeline/internal/eligibility"
	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
	"github.com/civicsignal/go-message-pipeline/pkg/store"
)

// NewNotificationProcessor creates the CreateNotification stage logic: build
// the channel map from the echoed profile, persist the notification exactly
// once per messageId, then emit one created event per populated channel.
func NewNotificationProcessor(
	messages store.MessageStore,
	notifications store.NotificationStore,
	publisher store.EventPublisher,
	cfg eligibility.DeliveryConfig,
	emailTopicID string,
	webhookTopicID string,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[messaging.ProcessedMessageEvent] {

	return func(ctx context.Context, original messagepipeline.Message, event *messaging.ProcessedMessageEvent) error {
		procLogger := logger.With(
			"message_id", event.MessageID,
			"pubsub_msg_id", original.ID,
		)

		// ProcessMessage wrote this before publishing, so absence here is
		// replica lag: retryable, never final.
		data, err := messages.RetrieveProcessing(ctx, event.MessageID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("processing data for message %s not visible yet: %w", event.MessageID, err)
		}
		if err != nil {
			return fmt.Errorf("failed to retrieve processing data for message %s: %w", event.MessageID, err)
		}

		channels := eligibility.NotificationChannels(&event.Profile, event.BlockedInboxOrChannels, data.Sender, cfg)
		if channels.IsEmpty() {
			// Designed short-circuit: no notification record, no events.
			procLogger.Info("No channel eligible; skipping notification creation")
			return nil
		}

		stored, err := notifications.Create(ctx, &messaging.Notification{
			ID:         uuid.NewString(),
			MessageID:  event.MessageID,
			FiscalCode: event.Profile.FiscalCode,
			Channels:   channels,
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to persist notification for message %s: %w", event.MessageID, err)
		}

		// Emit from the stored record: a redelivery reuses the original
		// notification id and channel set.
		created := messaging.NotificationCreatedEvent{
			MessageID:      stored.MessageID,
			NotificationID: stored.ID,
		}
		if stored.Channels.Email != nil {
			if err := publisher.Publish(ctx, emailTopicID, created); err != nil {
				return fmt.Errorf("failed to publish email-created event for message %s: %w", event.MessageID, err)
			}
		}
		if stored.Channels.Webhook != nil {
			if err := publisher.Publish(ctx, webhookTopicID, created); err != nil {
				return fmt.Errorf("failed to publish webhook-created event for message %s: %w", event.MessageID, err)
			}
		}

		procLogger.Info("Notification created",
			"notification_id", stored.ID,
			"email", stored.Channels.Email != nil,
			"webhook", stored.Channels.Webhook != nil,
		)
		return nil
	}
}
