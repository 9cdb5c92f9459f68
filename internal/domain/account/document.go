// Package account defines the per-user profile document and the typed
// patches merged into it.
package account

import (
	"encoding/json"
	"time"
)

// SubscriptionState is the cached billing snapshot embedded in the user
// document. The billing provider is the source of truth once linked.
type SubscriptionState struct {
	Status               string `json:"status,omitempty"`
	Plan                 string `json:"plan,omitempty"`
	CurrentPeriodEnd     int64  `json:"currentPeriodEnd,omitempty"`
	StripeCustomerID     string `json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID string `json:"stripeSubscriptionId,omitempty"`
}

// Trial tracks one-shot trial usage. Used is sticky: once true it never
// resets, no matter what a later patch carries.
type Trial struct {
	Used      bool   `json:"used"`
	StartedAt int64  `json:"startedAt,omitempty"`
	EndsAt    int64  `json:"endsAt,omitempty"`
	Source    string `json:"source,omitempty"`
}

// DeviceSummary is the per-device entry kept on the owning user's
// document so device lists never need a scan.
type DeviceSummary struct {
	Serial    string `json:"serial"`
	ThingName string `json:"thingName"`
	ClaimedAt int64  `json:"claimedAt"`
	Name      string `json:"name,omitempty"`
}

// Document is the typed view of a user profile document. Writes go
// through the synchronizer only; DocVersion increases monotonically.
type Document struct {
	UID          string                          `json:"uid"`
	DocVersion   int64                           `json:"docVersion"`
	Premium      bool                            `json:"premium"`
	Profile      map[string]any                  `json:"profile,omitempty"`
	State        map[string]any                  `json:"state,omitempty"`
	Subscription *SubscriptionState              `json:"subscription,omitempty"`
	Usage        map[string]map[string]int64     `json:"usage,omitempty"`
	Trial        *Trial                          `json:"trial,omitempty"`
	Devices      map[string]DeviceSummary        `json:"devices,omitempty"`
	UpdatedAt    time.Time                       `json:"updatedAt"`

	// Shadow copies of the billing linkage ids, kept at the top level
	// so the equality-lookup index can resolve webhook events without
	// a scan.
	StripeCustomerID     string `json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID string `json:"stripeSubscriptionId,omitempty"`
}

// FromJSON decodes a stored document body.
func FromJSON(body json.RawMessage) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
