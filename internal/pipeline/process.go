package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/civicsignal/go-message-pipeline/internal/eligibility"
	"github.com/civicsignal/go-message-pipeline/internal/telemetry"
	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
	"github.com/civicsignal/go-message-pipeline/pkg/store"
)

// NewMessageProcessor creates the ProcessMessage stage logic.
//
// The stage has two distinct result channels: a typed terminal outcome
// (SUCCESS publishes the processed event, a FAILURE reason publishes
// nothing and acks) and a returned error for transient faults, which the
// transport retries. Ambiguous failures always take the error channel;
// they are never downgraded to a business outcome.
func NewMessageProcessor(
	profiles store.ProfileStore,
	resolver *eligibility.Resolver,
	messages store.MessageStore,
	publisher store.EventPublisher,
	tracker telemetry.Tracker,
	cfg eligibility.DeliveryConfig,
	processedTopicID string,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[messaging.CreatedMessageEvent] {

	return func(ctx context.Context, original messagepipeline.Message, event *messaging.CreatedMessageEvent) error {
		procLogger := logger.With(
			"message_id", event.MessageID,
			"pubsub_msg_id", original.ID,
		)

		// 1. Interim data written by the producer stage.
		data, err := messages.RetrieveProcessing(ctx, event.MessageID)
		if errors.Is(err, store.ErrNotFound) {
			terminate(procLogger, messaging.ProcessMessageFailure(messaging.FailureBadData))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to retrieve processing data for message %s: %w", event.MessageID, err)
		}

		// 2. Latest profile version. Storage errors here must retry,
		// otherwise the content is never saved.
		profile, err := profiles.Latest(ctx, data.Message.FiscalCode)
		if errors.Is(err, store.ErrNotFound) {
			terminate(procLogger, messaging.ProcessMessageFailure(messaging.FailureProfileNotFound))
			return nil
		}
		if err != nil {
			return fmt.Errorf("profile lookup failed for message %s: %w", event.MessageID, err)
		}

		// 3. Master switch overrides everything downstream.
		if !profile.IsInboxEnabled {
			terminate(procLogger, messaging.ProcessMessageFailure(messaging.FailureMasterInboxDisabled))
			return nil
		}

		// 4. Resolve blocked channels under the profile's preference mode.
		blocked, err := resolver.BlockedChannels(ctx, profile, data.Sender.ServiceID)
		if err != nil {
			return fmt.Errorf("blocked-channel resolution failed for message %s: %w", event.MessageID, err)
		}

		inboxBlocked := messaging.ContainsChannel(blocked, messaging.ChannelInbox)
		tracker.MessageProcessed(ctx, telemetry.Event{
			HashedFiscalCode: telemetry.HashFiscalCode(profile.FiscalCode),
			ServiceID:        data.Sender.ServiceID,
			Mode:             profile.ServicePreferencesSettings.Mode,
			InboxBlocked:     inboxBlocked,
		})

		// 5. The sender-block check runs after resolution so telemetry
		// records mode and block status for every resolved message.
		if inboxBlocked {
			terminate(procLogger, messaging.ProcessMessageFailure(messaging.FailureSenderBlocked))
			return nil
		}

		// 6. Materialize: store content, then flip pending. Both writes are
		// idempotent upserts, safe under at-least-once delivery.
		content := data.Content.WithNormalizedPayment(data.Sender.OrganizationFiscalCode)
		if err := messages.StoreContent(ctx, event.MessageID, content); err != nil {
			return fmt.Errorf("failed to store content for message %s: %w", event.MessageID, err)
		}
		if err := messages.MarkProcessed(ctx, event.MessageID); err != nil {
			return fmt.Errorf("failed to mark message %s processed: %w", event.MessageID, err)
		}

		// 7. Echo the profile with the opt-out email override applied. The
		// blocked-channel pass above ran against the raw profile; only the
		// downstream re-derivation sees the overridden flag.
		echoed := eligibility.ApplyEmailOptOutOverride(*profile, cfg)
		if blocked == nil {
			blocked = []messaging.Channel{}
		}
		result := messaging.ProcessMessageSuccess(blocked, &echoed)

		out := messaging.ProcessedMessageEvent{
			MessageID:              event.MessageID,
			BlockedInboxOrChannels: result.BlockedInboxOrChannels,
			Profile:                echoed,
		}
		if err := publisher.Publish(ctx, processedTopicID, out); err != nil {
			return fmt.Errorf("failed to publish processed event for message %s: %w", event.MessageID, err)
		}

		procLogger.Info("Message processed", "blocked_channels", len(blocked))
		return nil
	}
}

// terminate records a non-retryable FAILURE outcome. The stage writes no
// output value for these: an absent processed event is the contract, not a
// sentinel.
func terminate(logger *slog.Logger, result messaging.ProcessMessageResult) {
	logger.Warn("Message processing terminated", "reason", string(result.Reason))
}
