// Package billing defines the boundary to the external subscription
// provider and the cached snapshot reconciled into user profiles.
package billing

import "context"

// MetadataUIDKey is the customer/subscription metadata key linking a
// provider object back to a profile uid.
const MetadataUIDKey = "uid"

// Customer is the provider-side billing customer.
type Customer struct {
	ID       string
	Email    string
	Metadata map[string]string
	Created  int64
}

// Subscription is the provider-side subscription state.
type Subscription struct {
	ID               string
	CustomerID       string
	Status           string
	Plan             string
	CurrentPeriodEnd int64
	TrialStart       int64
	TrialEnd         int64
	Created          int64
	Metadata         map[string]string
}

// Provider is the external billing system. Every call is a blocking
// network round trip and must be given a bounded context.
type Provider interface {
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	ListCustomersByEmail(ctx context.Context, email string) ([]Customer, error)
	UpdateCustomerMetadata(ctx context.Context, customerID string, metadata map[string]string) error
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	ListSubscriptionsByCustomer(ctx context.Context, customerID string) ([]Subscription, error)
}

// Webhook event types this core consumes.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// CheckoutSession carries the fields of a completed checkout this core
// needs to resolve the owning uid and the new subscription.
type CheckoutSession struct {
	CustomerID        string
	SubscriptionID    string
	ClientReferenceID string
	Metadata          map[string]string
}

// Event is a decoded, authenticity-verified webhook event.
type Event struct {
	ID           string
	Type         string
	Checkout     *CheckoutSession
	Subscription *Subscription
}

// WebhookVerifier checks a delivered payload's signature and decodes it.
// The signature scheme belongs to the provider; this core only requires
// that unverified payloads never produce an Event.
type WebhookVerifier interface {
	ConstructEvent(payload []byte, signature string) (*Event, error)
}
