package messaging

import "time"

// AddressSource records where the email destination of a notification came
// from.
type AddressSource string

const (
	AddressSourceProfile AddressSource = "PROFILE_ADDRESS"
	// AddressSourceServiceUser routes sandbox traffic to the sender
	// service's registered owner address.
	AddressSourceServiceUser AddressSource = "SERVICE_USER_ADDRESS"
	AddressSourceDefault     AddressSource = "DEFAULT_ADDRESS"
)

// EmailChannel is the destination descriptor for EMAIL fan-out.
type EmailChannel struct {
	AddressSource AddressSource `json:"addressSource" firestore:"addressSource"`
	ToAddress     string        `json:"toAddress" firestore:"toAddress"`
}

// WebhookChannel is the destination descriptor for WEBHOOK fan-out.
type WebhookChannel struct {
	URL string `json:"url" firestore:"url"`
}

// NotificationChannels maps channel tags to destination descriptors. A
// channel key is present only if that channel was judged eligible.
type NotificationChannels struct {
	Email   *EmailChannel   `json:"email,omitempty" firestore:"email,omitempty"`
	Webhook *WebhookChannel `json:"webhook,omitempty" firestore:"webhook,omitempty"`
}

// IsEmpty reports whether no channel was eligible. An empty channel map
// means no Notification record is created at all.
func (c NotificationChannels) IsEmpty() bool {
	return c.Email == nil && c.Webhook == nil
}

// Notification is the per-message aggregate created by the CreateNotification
// stage, at most one per message. Its channel set is fixed at creation and
// never grows afterwards.
type Notification struct {
	ID         string               `json:"id" firestore:"id"`
	MessageID  string               `json:"messageId" firestore:"messageId"`
	FiscalCode string               `json:"fiscalCode" firestore:"fiscalCode"`
	Channels   NotificationChannels `json:"channels" firestore:"channels"`
	CreatedAt  time.Time            `json:"createdAt" firestore:"createdAt"`
}
