package messaging_test

import (
	"testing"

	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
	"github.com/stretchr/testify/assert"
)

func TestWithNormalizedPayment(t *testing.T) {
	t.Run("Fills Missing Payee From Sender Organization", func(t *testing.T) {
		content := messaging.MessageContent{
			Subject:  "Tax notice",
			Markdown: "Please pay.",
			Payment:  &messaging.PaymentData{Amount: 1000, NoticeNumber: "0123"},
		}

		normalized := content.WithNormalizedPayment("ORG-FC-01")

		assert.Equal(t, "ORG-FC-01", normalized.Payment.PayeeFiscalCode)
		// Input must not be mutated.
		assert.Empty(t, content.Payment.PayeeFiscalCode)
	})

	t.Run("Idempotent - Existing Payee Unchanged", func(t *testing.T) {
		content := messaging.MessageContent{
			Payment: &messaging.PaymentData{Amount: 1000, NoticeNumber: "0123", PayeeFiscalCode: "PAYEE-FC"},
		}

		normalized := content.WithNormalizedPayment("ORG-FC-01")

		assert.Equal(t, content, normalized)
	})

	t.Run("No Payment Data Is A No-Op", func(t *testing.T) {
		content := messaging.MessageContent{Subject: "Hello"}

		assert.Equal(t, content, content.WithNormalizedPayment("ORG-FC-01"))
	})
}

func TestProfileChannelDefaults(t *testing.T) {
	t.Run("Email Flags Default True", func(t *testing.T) {
		p := &messaging.Profile{}
		assert.True(t, p.EmailEnabled())
		assert.True(t, p.EmailValidated())
	})

	t.Run("Explicit False Wins", func(t *testing.T) {
		p := &messaging.Profile{
			IsEmailEnabled:   messaging.Bool(false),
			IsEmailValidated: messaging.Bool(false),
		}
		assert.False(t, p.EmailEnabled())
		assert.False(t, p.EmailValidated())
	})

	t.Run("Webhook Defaults False", func(t *testing.T) {
		p := &messaging.Profile{}
		assert.False(t, p.WebhookEnabled())

		p.IsWebhookEnabled = messaging.Bool(true)
		assert.True(t, p.WebhookEnabled())
	})
}
