package eligibility

import (
	"time"

	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
)

// DeliveryConfig carries the feature flags and static blocklists consulted
// when turning a blocked-channel set into concrete fan-out destinations.
type DeliveryConfig struct {
	// SandboxFiscalCode reroutes email for the configured test recipient to
	// the sender service's own registered address.
	SandboxFiscalCode string

	// EmailServiceBlocklist and WebhookServiceBlocklist exclude specific
	// sender services from a channel regardless of user preferences.
	EmailServiceBlocklist   []string
	WebhookServiceBlocklist []string

	// DefaultWebhookURL is the single destination for all webhook fan-out.
	DefaultWebhookURL string

	// OptInEmailEnabled plus OptOutEmailSwitchDate force isEmailEnabled
	// false on profiles stored before the switch-over, applied only to the
	// profile echoed downstream.
	OptInEmailEnabled     bool
	OptOutEmailSwitchDate time.Time
}

func (c DeliveryConfig) emailServiceBlocked(serviceID string) bool {
	return containsString(c.EmailServiceBlocklist, serviceID)
}

func (c DeliveryConfig) webhookServiceBlocked(serviceID string) bool {
	return containsString(c.WebhookServiceBlocklist, serviceID)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// EmailDestination computes the candidate email destination for a message,
// independent of the blocking decision. Sandbox traffic goes to the sender
// service's registered owner address; everyone else gets their profile
// address. No candidate means email fan-out is impossible.
func EmailDestination(profile *messaging.Profile, sender messaging.SenderMetadata, sandboxFiscalCode string) *messaging.EmailChannel {
	if profile.FiscalCode == sandboxFiscalCode && sandboxFiscalCode != "" {
		if sender.ServiceUserEmail == "" {
			return nil
		}
		return &messaging.EmailChannel{
			AddressSource: messaging.AddressSourceServiceUser,
			ToAddress:     sender.ServiceUserEmail,
		}
	}
	if profile.Email == "" {
		return nil
	}
	return &messaging.EmailChannel{
		AddressSource: messaging.AddressSourceProfile,
		ToAddress:     profile.Email,
	}
}

// NotificationChannels builds the channel map for a notification from the
// echoed profile and the already-resolved blocked set. Both channels
// absent is a designed short-circuit: no notification is created.
func NotificationChannels(
	profile *messaging.Profile,
	blocked []messaging.Channel,
	sender messaging.SenderMetadata,
	cfg DeliveryConfig,
) messaging.NotificationChannels {
	var channels messaging.NotificationChannels

	sandbox := cfg.SandboxFiscalCode != "" && profile.FiscalCode == cfg.SandboxFiscalCode

	emailEnabled := profile.EmailEnabled() || sandbox
	emailValidated := profile.EmailValidated() || sandbox

	if emailEnabled && emailValidated &&
		!cfg.emailServiceBlocked(sender.ServiceID) &&
		!messaging.ContainsChannel(blocked, messaging.ChannelEmail) &&
		!sender.RequireSecureChannels {
		channels.Email = EmailDestination(profile, sender, cfg.SandboxFiscalCode)
	}

	if profile.WebhookEnabled() &&
		!cfg.webhookServiceBlocked(sender.ServiceID) &&
		!messaging.ContainsChannel(blocked, messaging.ChannelWebhook) &&
		cfg.DefaultWebhookURL != "" {
		channels.Webhook = &messaging.WebhookChannel{URL: cfg.DefaultWebhookURL}
	}

	return channels
}

// ApplyEmailOptOutOverride returns the profile to echo downstream. When the
// opt-in email flag is on and this profile version predates the switch-over
// date, its effective isEmailEnabled is forced false. The blocked-channel
// computation has already run against the raw profile by the time this is
// applied; only the re-derivation in the CreateNotification stage sees the
// overridden flag.
func ApplyEmailOptOutOverride(profile messaging.Profile, cfg DeliveryConfig) messaging.Profile {
	if !cfg.OptInEmailEnabled {
		return profile
	}
	if profile.UpdatedAt.Before(cfg.OptOutEmailSwitchDate) {
		profile.IsEmailEnabled = messaging.Bool(false)
	}
	return profile
}
