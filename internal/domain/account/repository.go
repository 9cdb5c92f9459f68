package account

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrVersionMismatch is returned by CompareAndPut when another writer
// advanced the document between the caller's read and write. The caller
// must re-read before retrying.
var ErrVersionMismatch = errors.New("account: document version mismatch")

// ErrNotFound is returned by lookups that find no profile.
var ErrNotFound = errors.New("account: profile not found")

// StoredDocument couples a raw profile body with the version observed at
// read time. Exists is false for a uid that has never been written; the
// synchronizer then creates the document with an insert-if-absent.
type StoredDocument struct {
	Body    json.RawMessage
	Version int64
	Exists  bool
}

// Repository persists user profile documents. All mutation is versioned
// compare-and-swap; there is no unconditional profile write.
type Repository interface {
	// Get reads the current document. A missing profile is not an
	// error: it returns Exists=false with an empty body.
	Get(ctx context.Context, uid string) (*StoredDocument, error)

	// CompareAndPut writes body only if the stored version still
	// equals expectedVersion (or the document does not exist yet when
	// exists is false). Returns ErrVersionMismatch when the caller
	// lost the race.
	CompareAndPut(ctx context.Context, uid string, body json.RawMessage, expectedVersion int64, exists bool) error

	// FindUIDByStripeCustomerID resolves the profile linked to a
	// billing customer id, or ErrNotFound.
	FindUIDByStripeCustomerID(ctx context.Context, customerID string) (string, error)

	// FindUIDByStripeSubscriptionID resolves the profile linked to a
	// billing subscription id, or ErrNotFound.
	FindUIDByStripeSubscriptionID(ctx context.Context, subscriptionID string) (string, error)

	// Delete removes the profile document. Only the explicit
	// account-deletion flow calls this.
	Delete(ctx context.Context, uid string) error
}
