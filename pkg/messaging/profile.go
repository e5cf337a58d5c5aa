package messaging

import "time"

// PreferenceMode selects which regime governs per-service channel blocking
// for a profile.
type PreferenceMode string

const (
	// PreferenceModeLegacy reads the profile-embedded blacklist map and
	// never consults the preference store.
	PreferenceModeLegacy PreferenceMode = "LEGACY"
	// PreferenceModeAuto is opt-out: a preference record is an exception,
	// absence means fully allowed.
	PreferenceModeAuto PreferenceMode = "AUTO"
	// PreferenceModeManual is opt-in: absence of a record means the user
	// has not yet opted in to inbox storage.
	PreferenceModeManual PreferenceMode = "MANUAL"
)

// ServicePreferencesSettings carries the profile's preference regime and the
// monotonic settings version that keys ServicePreference records.
type ServicePreferencesSettings struct {
	Mode    PreferenceMode `json:"mode" firestore:"mode"`
	Version int64          `json:"version" firestore:"version"`
}

// Profile is the recipient's profile snapshot at processing time. Profiles
// are versioned append-only in storage; the pipeline reads the last version.
//
// The per-channel enablement flags use pointers so that "never set" is
// distinguishable from "explicitly false": email enablement and validation
// default to true, webhook enablement defaults to false.
type Profile struct {
	FiscalCode                 string                     `json:"fiscalCode" firestore:"fiscalCode"`
	Version                    int64                      `json:"version" firestore:"version"`
	Email                      string                     `json:"email,omitempty" firestore:"email,omitempty"`
	IsInboxEnabled             bool                       `json:"isInboxEnabled" firestore:"isInboxEnabled"`
	IsEmailEnabled             *bool                      `json:"isEmailEnabled,omitempty" firestore:"isEmailEnabled,omitempty"`
	IsEmailValidated           *bool                      `json:"isEmailValidated,omitempty" firestore:"isEmailValidated,omitempty"`
	IsWebhookEnabled           *bool                      `json:"isWebhookEnabled,omitempty" firestore:"isWebhookEnabled,omitempty"`
	ServicePreferencesSettings ServicePreferencesSettings `json:"servicePreferencesSettings" firestore:"servicePreferencesSettings"`
	// BlockedInboxOrChannels is only meaningful in LEGACY mode.
	BlockedInboxOrChannels map[string][]Channel `json:"blockedInboxOrChannels,omitempty" firestore:"blockedInboxOrChannels,omitempty"`
	// UpdatedAt is the storage timestamp of this profile version, compared
	// against the opt-out email switch-over date.
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// EmailEnabled resolves the default-true semantics of IsEmailEnabled.
func (p *Profile) EmailEnabled() bool {
	return p.IsEmailEnabled == nil || *p.IsEmailEnabled
}

// EmailValidated resolves the default-true semantics of IsEmailValidated.
func (p *Profile) EmailValidated() bool {
	return p.IsEmailValidated == nil || *p.IsEmailValidated
}

// WebhookEnabled resolves IsWebhookEnabled; webhook fan-out is opt-in.
func (p *Profile) WebhookEnabled() bool {
	return p.IsWebhookEnabled != nil && *p.IsWebhookEnabled
}

// ServicePreference is one versioned per-service preference record,
// meaningful only in AUTO/MANUAL mode. Absence of a record is a distinct
// state, not equivalent to all-disabled.
type ServicePreference struct {
	FiscalCode       string `json:"fiscalCode" firestore:"fiscalCode"`
	ServiceID        string `json:"serviceId" firestore:"serviceId"`
	SettingsVersion  int64  `json:"settingsVersion" firestore:"settingsVersion"`
	IsInboxEnabled   bool   `json:"isInboxEnabled" firestore:"isInboxEnabled"`
	IsEmailEnabled   bool   `json:"isEmailEnabled" firestore:"isEmailEnabled"`
	IsWebhookEnabled bool   `json:"isWebhookEnabled" firestore:"isWebhookEnabled"`
}

// Bool returns a pointer to b, for populating the profile's tri-state flags.
func Bool(b bool) *bool {
	return &b
}
