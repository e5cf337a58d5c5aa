// Package eligibility computes which notification channels are blocked or
// allowed for a message, and where email and webhook fan-out should go.
package eligibility

import (
	"context"
	"errors"
	"fmt"

	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
	"github.com/civicsignal/go-message-pipeline/pkg/store"
)

// preferenceChannelFlags maps each ServicePreference flag to its channel
// tag. Adding a preference channel means adding a row here, nothing else.
var preferenceChannelFlags = []struct {
	Channel messaging.Channel
	Enabled func(p *messaging.ServicePreference) bool
}{
	{messaging.ChannelInbox, func(p *messaging.ServicePreference) bool { return p.IsInboxEnabled }},
	{messaging.ChannelEmail, func(p *messaging.ServicePreference) bool { return p.IsEmailEnabled }},
	{messaging.ChannelWebhook, func(p *messaging.ServicePreference) bool { return p.IsWebhookEnabled }},
}

// Resolver decides the blocked-channel set for a (profile, sender service)
// pair under the profile's preference regime.
type Resolver struct {
	preferences store.ServicePreferenceStore
}

func NewResolver(preferences store.ServicePreferenceStore) *Resolver {
	return &Resolver{preferences: preferences}
}

// BlockedChannels returns the channels that must not deliver this message.
//
// LEGACY profiles answer from the embedded blacklist and never touch the
// preference store. AUTO and MANUAL consult the record keyed by the
// profile's current settings version; absence means fully-allowed for AUTO
// and inbox-blocked for MANUAL. A storage failure, or a preference mode this
// code does not know, is returned as an error so the caller retries rather
// than guessing at a blocked/allowed outcome.
func (r *Resolver) BlockedChannels(ctx context.Context, profile *messaging.Profile, serviceID string) ([]messaging.Channel, error) {
	settings := profile.ServicePreferencesSettings

	switch settings.Mode {
	case messaging.PreferenceModeLegacy:
		blocked, ok := profile.BlockedInboxOrChannels[serviceID]
		if !ok {
			return nil, nil
		}
		out := make([]messaging.Channel, len(blocked))
		copy(out, blocked)
		return out, nil

	case messaging.PreferenceModeAuto, messaging.PreferenceModeManual:
		pref, err := r.preferences.Get(ctx, profile.FiscalCode, serviceID, settings.Version)
		if errors.Is(err, store.ErrNotFound) {
			if settings.Mode == messaging.PreferenceModeManual {
				// No opt-in record yet: inbox stays closed, email and
				// webhook remain governed by the profile-level defaults.
				return []messaging.Channel{messaging.ChannelInbox}, nil
			}
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("service preference lookup for %q failed: %w", serviceID, err)
		}

		var blocked []messaging.Channel
		for _, flag := range preferenceChannelFlags {
			if !flag.Enabled(pref) {
				blocked = append(blocked, flag.Channel)
			}
		}
		return blocked, nil

	default:
		return nil, fmt.Errorf("unknown service preference mode %q", settings.Mode)
	}
}
