package account

import "time"

// Patch is a typed partial update rendered to a patch document for the
// generic deep merge. Absent keys mean "no change"; the generic
// merge-over-anything stays at the storage layer only.
type Patch interface {
	// PatchDoc renders the patch as a document fragment.
	PatchDoc(now time.Time) map[string]any
}

// ProfilePatch overwrites user-editable profile fields key-by-key.
type ProfilePatch struct {
	Fields map[string]any
}

func (p ProfilePatch) PatchDoc(now time.Time) map[string]any {
	return map[string]any{"profile": p.Fields}
}

// StatePatch merges controller-reported state (zones, schedules, last
// sync markers).
type StatePatch struct {
	Fields map[string]any
}

func (p StatePatch) PatchDoc(now time.Time) map[string]any {
	return map[string]any{"state": p.Fields}
}

// UsagePatch sets a feature's counter for the current daily and monthly
// buckets. Counts are absolute values computed by the caller from the
// current document inside the synchronizer's retry loop.
type UsagePatch struct {
	Feature    string
	DayKey     string
	MonthKey   string
	DayCount   int64
	MonthCount int64
}

func (p UsagePatch) PatchDoc(now time.Time) map[string]any {
	return map[string]any{
		"usage": map[string]any{
			p.Feature: map[string]any{
				p.DayKey:   p.DayCount,
				p.MonthKey: p.MonthCount,
			},
		},
	}
}

// SubscriptionPatch replaces the cached billing snapshot and refreshes
// the top-level shadow index fields.
type SubscriptionPatch struct {
	Snapshot SubscriptionState
	Premium  bool
}

func (p SubscriptionPatch) PatchDoc(now time.Time) map[string]any {
	doc := map[string]any{
		"premium": p.Premium,
		"subscription": map[string]any{
			"status":               p.Snapshot.Status,
			"plan":                 p.Snapshot.Plan,
			"currentPeriodEnd":     p.Snapshot.CurrentPeriodEnd,
			"stripeCustomerId":     p.Snapshot.StripeCustomerID,
			"stripeSubscriptionId": p.Snapshot.StripeSubscriptionID,
		},
	}
	if p.Snapshot.StripeCustomerID != "" {
		doc["stripeCustomerId"] = p.Snapshot.StripeCustomerID
	}
	if p.Snapshot.StripeSubscriptionID != "" {
		doc["stripeSubscriptionId"] = p.Snapshot.StripeSubscriptionID
	}
	return doc
}

// TrialPatch marks trial usage with its observed window. The
// synchronizer keeps the used flag sticky, so delivering the same
// webhook event twice never double-counts.
type TrialPatch struct {
	StartedAt int64
	EndsAt    int64
	Source    string
}

func (p TrialPatch) PatchDoc(now time.Time) map[string]any {
	return map[string]any{
		"trial": map[string]any{
			"used":      true,
			"startedAt": p.StartedAt,
			"endsAt":    p.EndsAt,
			"source":    p.Source,
		},
	}
}

// DeviceSummaryPatch records a claimed device on the owning user's
// document.
type DeviceSummaryPatch struct {
	HWID    string
	Summary DeviceSummary
}

func (p DeviceSummaryPatch) PatchDoc(now time.Time) map[string]any {
	return map[string]any{
		"devices": map[string]any{
			p.HWID: map[string]any{
				"serial":    p.Summary.Serial,
				"thingName": p.Summary.ThingName,
				"claimedAt": p.Summary.ClaimedAt,
			},
		},
	}
}
