//go:build integration

package firestore_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/illmade-knight/go-test/emulators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fs "github.com/civicsignal/go-message-pipeline/internal/storage/firestore"
	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
	"github.com/civicsignal/go-message-pipeline/pkg/store"
)

func setupSuite(t *testing.T) (context.Context, *firestore.Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	projectID := "test-message-pipeline"
	conn := emulators.SetupFirestoreEmulator(t, ctx, emulators.GetDefaultFirestoreConfig(projectID))
	client, err := firestore.NewClient(ctx, projectID, conn.ClientOptions...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return ctx, client
}

func TestProfileStore_Integration(t *testing.T) {
	ctx, client := setupSuite(t)
	profiles := fs.NewProfileStore(client)
	const fiscalCode = "AAABBB80A01C123D"

	t.Run("Missing Profile Is ErrNotFound", func(t *testing.T) {
		_, err := profiles.Latest(ctx, "UNKNOWN00A00A000A")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Latest Version Wins", func(t *testing.T) {
		versions := client.Collection("profiles").Doc(fiscalCode).Collection("versions")
		_, err := versions.Doc("1").Set(ctx, messaging.Profile{
			FiscalCode: fiscalCode, Version: 1, Email: "old@example.com", IsInboxEnabled: false,
			ServicePreferencesSettings: messaging.ServicePreferencesSettings{Mode: messaging.PreferenceModeLegacy},
		})
		require.NoError(t, err)
		_, err = versions.Doc("2").Set(ctx, messaging.Profile{
			FiscalCode: fiscalCode, Version: 2, Email: "new@example.com", IsInboxEnabled: true,
			ServicePreferencesSettings: messaging.ServicePreferencesSettings{Mode: messaging.PreferenceModeAuto, Version: 1},
		})
		require.NoError(t, err)

		profile, err := profiles.Latest(ctx, fiscalCode)
		require.NoError(t, err)
		assert.Equal(t, int64(2), profile.Version)
		assert.Equal(t, "new@example.com", profile.Email)
		assert.True(t, profile.IsInboxEnabled)
	})
}

func TestPreferenceStore_Integration(t *testing.T) {
	ctx, client := setupSuite(t)
	prefs := fs.NewPreferenceStore(client)

	t.Run("Absent Record Is ErrNotFound Not All-Disabled", func(t *testing.T) {
		_, err := prefs.Get(ctx, "AAABBB80A01C123D", "svc-01", 5)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Round Trip", func(t *testing.T) {
		record := messaging.ServicePreference{
			FiscalCode: "AAABBB80A01C123D", ServiceID: "svc-01", SettingsVersion: 5,
			IsInboxEnabled: true, IsEmailEnabled: false, IsWebhookEnabled: true,
		}
		_, err := client.Collection("service-preferences").Doc("AAABBB80A01C123D-svc-01-5").Set(ctx, record)
		require.NoError(t, err)

		got, err := prefs.Get(ctx, "AAABBB80A01C123D", "svc-01", 5)
		require.NoError(t, err)
		assert.Equal(t, &record, got)
	})
}

func TestMessageStore_Integration(t *testing.T) {
	ctx, client := setupSuite(t)
	messages := fs.NewMessageStore(client)
	const messageID = "msg-0001"

	content := messaging.MessageContent{
		Subject:  "Notice",
		Markdown: "Body",
		Payment:  &messaging.PaymentData{Amount: 100, NoticeNumber: "0042", PayeeFiscalCode: "ORG-FC"},
	}

	t.Run("StoreContent Is Idempotent", func(t *testing.T) {
		require.NoError(t, messages.StoreContent(ctx, messageID, content))
		// Second write with identical content must not fail.
		require.NoError(t, messages.StoreContent(ctx, messageID, content))

		doc, err := client.Collection("message-content").Doc(messageID).Get(ctx)
		require.NoError(t, err)
		var stored messaging.MessageContent
		require.NoError(t, doc.DataTo(&stored))
		assert.Equal(t, content, stored)
	})

	t.Run("MarkProcessed Flips Pending And Replays Cleanly", func(t *testing.T) {
		_, err := client.Collection("messages").Doc(messageID).Set(ctx, map[string]any{
			"id": messageID, "isPending": true,
		})
		require.NoError(t, err)

		require.NoError(t, messages.MarkProcessed(ctx, messageID))
		require.NoError(t, messages.MarkProcessed(ctx, messageID))

		doc, err := client.Collection("messages").Doc(messageID).Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, false, doc.Data()["isPending"])
		assert.Equal(t, messageID, doc.Data()["id"])
	})

	t.Run("RetrieveProcessing Reads Producer Record", func(t *testing.T) {
		data := messaging.ProcessingMessageData{
			Message: messaging.Message{ID: messageID, FiscalCode: "AAABBB80A01C123D", SenderServiceID: "svc-01", IsPending: true},
			Content: content,
			Sender:  messaging.SenderMetadata{ServiceID: "svc-01", OrganizationFiscalCode: "ORG-FC"},
		}
		_, err := client.Collection("processing-messages").Doc(messageID).Set(ctx, data)
		require.NoError(t, err)

		got, err := messages.RetrieveProcessing(ctx, messageID)
		require.NoError(t, err)
		assert.Equal(t, "svc-01", got.Sender.ServiceID)
		assert.True(t, got.Message.IsPending)
	})
}

func TestNotificationStore_Integration(t *testing.T) {
	ctx, client := setupSuite(t)
	notifications := fs.NewNotificationStore(client)

	base := &messaging.Notification{
		ID:         "ntf-01",
		MessageID:  "msg-0002",
		FiscalCode: "AAABBB80A01C123D",
		Channels: messaging.NotificationChannels{
			Email: &messaging.EmailChannel{AddressSource: messaging.AddressSourceProfile, ToAddress: "citizen@example.com"},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	t.Run("First Create Wins And Replay Returns Original", func(t *testing.T) {
		stored, err := notifications.Create(ctx, base)
		require.NoError(t, err)
		assert.Equal(t, "ntf-01", stored.ID)

		replay := *base
		replay.ID = "ntf-replay"
		replay.Channels.Webhook = &messaging.WebhookChannel{URL: "https://late.example.com"}

		second, err := notifications.Create(ctx, &replay)
		require.NoError(t, err)
		assert.Equal(t, "ntf-01", second.ID)
		// The channel set never grows after creation.
		assert.Nil(t, second.Channels.Webhook)
	})

	t.Run("GetByMessageID Not Found", func(t *testing.T) {
		_, err := notifications.GetByMessageID(ctx, "msg-none")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
