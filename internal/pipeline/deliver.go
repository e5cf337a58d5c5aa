package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/civicsignal/go-message-pipeline/pkg/dispatch"
	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
	"github.com/civicsignal/go-message-pipeline/pkg/store"
)

// NewEmailDeliveryProcessor creates the DeliverEmail stage logic. The stage
// loads the stored notification and content, hands them to the dispatcher,
// and splits failures: permanent rejections ack, everything else retries.
func NewEmailDeliveryProcessor(
	notifications store.NotificationStore,
	messages store.MessageStore,
	dispatcher dispatch.EmailDispatcher,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[messaging.NotificationCreatedEvent] {

	return func(ctx context.Context, original messagepipeline.Message, event *messaging.NotificationCreatedEvent) error {
		procLogger := logger.With(
			"message_id", event.MessageID,
			"notification_id", event.NotificationID,
			"pubsub_msg_id", original.ID,
		)

		notification, data, err := loadDeliveryData(ctx, notifications, messages, event)
		if err != nil {
			return err
		}
		if notification.Channels.Email == nil {
			// The channel set is fixed at creation, so an event without a
			// matching entry is a defect upstream; retrying cannot help.
			procLogger.Warn("Email-created event for notification without email channel; dropping")
			return nil
		}

		err = dispatcher.Dispatch(ctx, *notification.Channels.Email, data.Content, data.Sender)
		if dispatch.IsPermanent(err) {
			procLogger.Error("Email delivery failed permanently",
				"reason", string(messaging.FailurePermanentError), "err", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("email delivery for notification %s failed: %w", event.NotificationID, err)
		}

		procLogger.Info("Email delivered")
		return nil
	}
}

// NewWebhookDeliveryProcessor creates the DeliverWebhook stage logic.
func NewWebhookDeliveryProcessor(
	notifications store.NotificationStore,
	messages store.MessageStore,
	dispatcher dispatch.WebhookDispatcher,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[messaging.NotificationCreatedEvent] {

	return func(ctx context.Context, original messagepipeline.Message, event *messaging.NotificationCreatedEvent) error {
		procLogger := logger.With(
			"message_id", event.MessageID,
			"notification_id", event.NotificationID,
			"pubsub_msg_id", original.ID,
		)

		notification, data, err := loadDeliveryData(ctx, notifications, messages, event)
		if err != nil {
			return err
		}
		if notification.Channels.Webhook == nil {
			procLogger.Warn("Webhook-created event for notification without webhook channel; dropping")
			return nil
		}

		err = dispatcher.Dispatch(ctx, *notification.Channels.Webhook, *event, data.Message)
		if dispatch.IsPermanent(err) {
			procLogger.Error("Webhook delivery failed permanently",
				"reason", string(messaging.FailurePermanentError), "err", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("webhook delivery for notification %s failed: %w", event.NotificationID, err)
		}

		procLogger.Info("Webhook delivered")
		return nil
	}
}

// loadDeliveryData fetches the notification record and interim message data
// for a created event. Not-found is returned as an error on purpose: the
// record was persisted before the event was published, so absence is
// replica lag and must retry.
func loadDeliveryData(
	ctx context.Context,
	notifications store.NotificationStore,
	messages store.MessageStore,
	event *messaging.NotificationCreatedEvent,
) (*messaging.Notification, *messaging.ProcessingMessageData, error) {
	notification, err := notifications.GetByMessageID(ctx, event.MessageID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, fmt.Errorf("notification %s not visible yet: %w", event.NotificationID, err)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load notification %s: %w", event.NotificationID, err)
	}

	data, err := messages.RetrieveProcessing(ctx, event.MessageID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load message data for notification %s: %w", event.NotificationID, err)
	}
	return notification, data, nil
}
