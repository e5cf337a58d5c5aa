package messaging

// DefaultAddresses optionally overrides destination addresses for a single
// message, supplied by the upstream producer.
type DefaultAddresses struct {
	Email string `json:"email,omitempty"`
}

// CreatedMessageEvent is the input to the ProcessMessage stage. MessageID
// must resolve to interim data materialized by the producer stage.
type CreatedMessageEvent struct {
	MessageID        string            `json:"messageId"`
	ServiceVersion   int64             `json:"serviceVersion"`
	DefaultAddresses *DefaultAddresses `json:"defaultAddresses,omitempty"`
}

// ProcessedMessageEvent is emitted by ProcessMessage on SUCCESS and consumed
// by the CreateNotification stage. No event is published for FAILURE
// outcomes. Profile is the echoed profile with the opt-out email override
// already applied; the consumer re-derives email eligibility from it.
type ProcessedMessageEvent struct {
	MessageID              string    `json:"messageId"`
	BlockedInboxOrChannels []Channel `json:"blockedInboxOrChannels"`
	Profile                Profile   `json:"profile"`
}

// NotificationCreatedEvent is published per eligible channel once the
// Notification record is persisted. Delivery consumers must treat a
// not-yet-visible record as retryable, not final.
type NotificationCreatedEvent struct {
	MessageID      string `json:"messageId"`
	NotificationID string `json:"notificationId"`
}
