package billing

import "sort"

// Subscription statuses as reported by the provider.
const (
	StatusActive     = "active"
	StatusTrialing   = "trialing"
	StatusPastDue    = "past_due"
	StatusUnpaid     = "unpaid"
	StatusIncomplete = "incomplete"
	StatusCanceled   = "canceled"
)

// Snapshot is the reconciled subscription state persisted on the user
// profile document.
type Snapshot struct {
	Status           string
	Plan             string
	CurrentPeriodEnd int64
	CustomerID       string
	SubscriptionID   string
	Premium          bool
}

// IsPremiumStatus reports whether a status grants premium features.
func IsPremiumStatus(status string) bool {
	return status == StatusActive || status == StatusTrialing
}

// statusPriority orders candidate subscriptions for recovery. Higher is
// better.
func statusPriority(status string) int {
	switch status {
	case StatusActive, StatusTrialing:
		return 4
	case StatusPastDue, StatusUnpaid:
		return 3
	case StatusIncomplete:
		return 2
	case StatusCanceled:
		return 1
	default:
		return 0
	}
}

// PickBest selects the most relevant subscription from recovery
// candidates: highest status priority, ties broken by most recent
// creation. Returns nil for an empty slice.
func PickBest(subs []Subscription) *Subscription {
	if len(subs) == 0 {
		return nil
	}
	sorted := make([]Subscription, len(subs))
	copy(sorted, subs)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := statusPriority(sorted[i].Status), statusPriority(sorted[j].Status)
		if pi != pj {
			return pi > pj
		}
		return sorted[i].Created > sorted[j].Created
	})
	return &sorted[0]
}

// SnapshotOf builds the profile snapshot for a provider subscription.
func SnapshotOf(sub *Subscription) Snapshot {
	return Snapshot{
		Status:           sub.Status,
		Plan:             sub.Plan,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		CustomerID:       sub.CustomerID,
		SubscriptionID:   sub.ID,
		Premium:          IsPremiumStatus(sub.Status),
	}
}
