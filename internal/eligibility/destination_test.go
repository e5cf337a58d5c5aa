package eligibility_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicsignal/go-message-pipeline/internal/eligibility"
	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
)

const sandboxFiscalCode = "SNDBX000TEST0000"

func baseProfile() *messaging.Profile {
	return &messaging.Profile{
		FiscalCode:     "AAABBB80A01C123D",
		Email:          "citizen@example.com",
		IsInboxEnabled: true,
	}
}

func baseSender() messaging.SenderMetadata {
	return messaging.SenderMetadata{
		ServiceID:              "svc-01",
		ServiceName:            "Tax Office",
		OrganizationFiscalCode: "ORG-FC-01",
		ServiceUserEmail:       "owner@agency.example.com",
	}
}

func TestEmailDestination(t *testing.T) {
	t.Run("Profile Address By Default", func(t *testing.T) {
		dest := eligibility.EmailDestination(baseProfile(), baseSender(), sandboxFiscalCode)
		require.NotNil(t, dest)
		assert.Equal(t, messaging.AddressSourceProfile, dest.AddressSource)
		assert.Equal(t, "citizen@example.com", dest.ToAddress)
	})

	t.Run("Sandbox Routes To Service Owner", func(t *testing.T) {
		profile := baseProfile()
		profile.FiscalCode = sandboxFiscalCode

		dest := eligibility.EmailDestination(profile, baseSender(), sandboxFiscalCode)
		require.NotNil(t, dest)
		assert.Equal(t, messaging.AddressSourceServiceUser, dest.AddressSource)
		assert.Equal(t, "owner@agency.example.com", dest.ToAddress)
	})

	t.Run("No Profile Email Means No Candidate", func(t *testing.T) {
		profile := baseProfile()
		profile.Email = ""

		assert.Nil(t, eligibility.EmailDestination(profile, baseSender(), sandboxFiscalCode))
	})
}

func TestNotificationChannels(t *testing.T) {
	cfg := eligibility.DeliveryConfig{
		SandboxFiscalCode: sandboxFiscalCode,
		DefaultWebhookURL: "https://hooks.example.com/notify",
	}

	t.Run("Email And Webhook When Everything Allows", func(t *testing.T) {
		profile := baseProfile()
		profile.IsWebhookEnabled = messaging.Bool(true)

		channels := eligibility.NotificationChannels(profile, nil, baseSender(), cfg)
		require.NotNil(t, channels.Email)
		require.NotNil(t, channels.Webhook)
		assert.Equal(t, "https://hooks.example.com/notify", channels.Webhook.URL)
		assert.False(t, channels.IsEmpty())
	})

	t.Run("Blocked EMAIL Tag Suppresses Email Only", func(t *testing.T) {
		profile := baseProfile()
		profile.IsWebhookEnabled = messaging.Bool(true)

		channels := eligibility.NotificationChannels(profile,
			[]messaging.Channel{messaging.ChannelEmail}, baseSender(), cfg)
		assert.Nil(t, channels.Email)
		assert.NotNil(t, channels.Webhook)
	})

	t.Run("Email Service Blocklist Wins Over Preferences", func(t *testing.T) {
		blockedCfg := cfg
		blockedCfg.EmailServiceBlocklist = []string{"svc-01"}

		channels := eligibility.NotificationChannels(baseProfile(), nil, baseSender(), blockedCfg)
		assert.Nil(t, channels.Email)
	})

	t.Run("Webhook Service Blocklist Suppresses Webhook", func(t *testing.T) {
		blockedCfg := cfg
		blockedCfg.WebhookServiceBlocklist = []string{"svc-01"}
		profile := baseProfile()
		profile.IsWebhookEnabled = messaging.Bool(true)

		channels := eligibility.NotificationChannels(profile, nil, baseSender(), blockedCfg)
		assert.Nil(t, channels.Webhook)
	})

	t.Run("Secure Channel Services Never Get Email", func(t *testing.T) {
		sender := baseSender()
		sender.RequireSecureChannels = true

		channels := eligibility.NotificationChannels(baseProfile(), nil, sender, cfg)
		assert.Nil(t, channels.Email)
	})

	t.Run("Explicitly Disabled Email Flag Suppresses Email", func(t *testing.T) {
		profile := baseProfile()
		profile.IsEmailEnabled = messaging.Bool(false)

		channels := eligibility.NotificationChannels(profile, nil, baseSender(), cfg)
		assert.Nil(t, channels.Email)
	})

	t.Run("Unvalidated Email Suppresses Email", func(t *testing.T) {
		profile := baseProfile()
		profile.IsEmailValidated = messaging.Bool(false)

		channels := eligibility.NotificationChannels(profile, nil, baseSender(), cfg)
		assert.Nil(t, channels.Email)
	})

	t.Run("Sandbox Forces Email Flags True", func(t *testing.T) {
		profile := baseProfile()
		profile.FiscalCode = sandboxFiscalCode
		profile.IsEmailEnabled = messaging.Bool(false)
		profile.IsEmailValidated = messaging.Bool(false)

		channels := eligibility.NotificationChannels(profile, nil, baseSender(), cfg)
		require.NotNil(t, channels.Email)
		assert.Equal(t, messaging.AddressSourceServiceUser, channels.Email.AddressSource)
	})

	t.Run("Webhook Needs Explicit Opt-In", func(t *testing.T) {
		channels := eligibility.NotificationChannels(baseProfile(), nil, baseSender(), cfg)
		assert.Nil(t, channels.Webhook)
	})

	t.Run("Nothing Eligible Is Empty Not An Error", func(t *testing.T) {
		profile := baseProfile()
		profile.Email = ""

		channels := eligibility.NotificationChannels(profile, nil, baseSender(), cfg)
		assert.True(t, channels.IsEmpty())
	})
}

func TestApplyEmailOptOutOverride(t *testing.T) {
	switchDate := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Old Profile Forced Off When Flag Enabled", func(t *testing.T) {
		cfg := eligibility.DeliveryConfig{OptInEmailEnabled: true, OptOutEmailSwitchDate: switchDate}
		profile := *baseProfile()
		profile.UpdatedAt = switchDate.Add(-24 * time.Hour)

		echoed := eligibility.ApplyEmailOptOutOverride(profile, cfg)
		require.NotNil(t, echoed.IsEmailEnabled)
		assert.False(t, *echoed.IsEmailEnabled)
		// The input profile is untouched: the blocked-channel pass ran on it.
		assert.Nil(t, profile.IsEmailEnabled)
	})

	t.Run("Recent Profile Untouched", func(t *testing.T) {
		cfg := eligibility.DeliveryConfig{OptInEmailEnabled: true, OptOutEmailSwitchDate: switchDate}
		profile := *baseProfile()
		profile.UpdatedAt = switchDate.Add(24 * time.Hour)

		echoed := eligibility.ApplyEmailOptOutOverride(profile, cfg)
		assert.Nil(t, echoed.IsEmailEnabled)
	})

	t.Run("Flag Disabled Is A No-Op", func(t *testing.T) {
		cfg := eligibility.DeliveryConfig{OptOutEmailSwitchDate: switchDate}
		profile := *baseProfile()
		profile.UpdatedAt = switchDate.Add(-24 * time.Hour)

		echoed := eligibility.ApplyEmailOptOutOverride(profile, cfg)
		assert.Nil(t, echoed.IsEmailEnabled)
	})
}
