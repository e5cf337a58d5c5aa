// Package dispatch contains the public contracts for per-channel delivery of
// created notifications.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
)

// PermanentError marks a delivery failure that must not be retried (bad
// address, dead endpoint). Everything else is treated as transient and
// returned to the transport for redelivery.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent delivery failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries the non-retryable marker.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// EmailDispatcher delivers a message rendered as mail to the notification's
// email destination.
type EmailDispatcher interface {
	Dispatch(ctx context.Context, to messaging.EmailChannel, content messaging.MessageContent, sender messaging.SenderMetadata) error
}

// WebhookDispatcher posts the created-notification payload to the
// notification's webhook URL.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, ch messaging.WebhookChannel, event messaging.NotificationCreatedEvent, message messaging.Message) error
}
