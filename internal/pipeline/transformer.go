// Package pipeline contains the stage processors of the notification
// pipeline: ProcessMessage, CreateNotification and the per-channel delivery
// stages.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
)

// CreatedMessageTransformer decodes the ProcessMessage stage input. A
// payload that does not decode is a poison pill: skip is set so the
// streaming service routes it to the DLQ instead of retrying forever.
func CreatedMessageTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*messaging.CreatedMessageEvent, bool, error) {
	var event messaging.CreatedMessageEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, true, fmt.Errorf("failed to unmarshal created-message event from message %s: %w", msg.ID, err)
	}
	if event.MessageID == "" {
		return nil, true, fmt.Errorf("created-message event %s carries no messageId", msg.ID)
	}
	return &event, false, nil
}

// ProcessedMessageTransformer decodes the CreateNotification stage input.
func ProcessedMessageTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*messaging.ProcessedMessageEvent, bool, error) {
	var event messaging.ProcessedMessageEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, true, fmt.Errorf("failed to unmarshal processed-message event from message %s: %w", msg.ID, err)
	}
	if event.MessageID == "" {
		return nil, true, fmt.Errorf("processed-message event %s carries no messageId", msg.ID)
	}
	return &event, false, nil
}

// NotificationCreatedTransformer decodes the input of both delivery stages.
func NotificationCreatedTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*messaging.NotificationCreatedEvent, bool, error) {
	var event messaging.NotificationCreatedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, true, fmt.Errorf("failed to unmarshal notification-created event from message %s: %w", msg.ID, err)
	}
	if event.MessageID == "" || event.NotificationID == "" {
		return nil, true, fmt.Errorf("notification-created event %s is missing identifiers", msg.ID)
	}
	return &event, false, nil
}
