// Package messaging contains the public domain models for the citizen
// messaging notification pipeline.
package messaging

// Channel is one of the independent notification delivery mechanisms.
type Channel string

const (
	ChannelInbox   Channel = "INBOX"
	ChannelEmail   Channel = "EMAIL"
	ChannelWebhook Channel = "WEBHOOK"
)

// ContainsChannel reports whether c appears in the blocked-channel slice.
func ContainsChannel(channels []Channel, c Channel) bool {
	for _, ch := range channels {
		if ch == c {
			return true
		}
	}
	return false
}
