// Package store contains the public capability interfaces the pipeline
// depends on for profile, preference, message and notification storage.
package store

import (
	"context"
	"errors"

	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
)

// ErrNotFound signals the absent-record outcome of a lookup, which every
// consumer must treat as distinct from a storage failure.
var ErrNotFound = errors.New("store: not found")

// ProfileStore reads recipient profiles.
type ProfileStore interface {
	// Latest returns the last version of the profile for fiscalCode, or
	// ErrNotFound if the recipient has no profile.
	Latest(ctx context.Context, fiscalCode string) (*messaging.Profile, error)
}

// ServicePreferenceStore reads versioned per-service preference records.
type ServicePreferenceStore interface {
	// Get returns the record keyed by (fiscalCode, serviceID, version), or
	// ErrNotFound when no record exists for that key.
	Get(ctx context.Context, fiscalCode, serviceID string, version int64) (*messaging.ServicePreference, error)
}

// MessageStore reads interim message data and materializes message content.
type MessageStore interface {
	// RetrieveProcessing loads the interim record written by the upstream
	// producer, or ErrNotFound if it is not (yet) visible.
	RetrieveProcessing(ctx context.Context, messageID string) (*messaging.ProcessingMessageData, error)

	// StoreContent durably persists the message content. The write has
	// overwrite semantics: re-running it with identical content must not
	// fail on an existing document.
	StoreContent(ctx context.Context, messageID string, content messaging.MessageContent) error

	// MarkProcessed flips the message's pending flag to false, idempotently.
	MarkProcessed(ctx context.Context, messageID string) error
}

// NotificationStore persists notification aggregates, at most one per
// messageId.
type NotificationStore interface {
	// Create persists the notification exactly once per message and
	// returns the stored record. A replay for an already-created messageId
	// returns the original record, keeping the channel set fixed.
	Create(ctx context.Context, n *messaging.Notification) (*messaging.Notification, error)

	// GetByMessageID returns the notification for messageID, or
	// ErrNotFound if none was created (yet).
	GetByMessageID(ctx context.Context, messageID string) (*messaging.Notification, error)
}

// EventPublisher publishes stage events to a named topic.
type EventPublisher interface {
	Publish(ctx context.Context, topicID string, event any) error
}
