package device

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for the key.
var ErrNotFound = errors.New("device: record not found")

// ErrAlreadyExists is returned by Create when the hardware id is taken.
var ErrAlreadyExists = errors.New("device: record already exists")

// ErrTransitionRejected is returned when a conditional transition's
// predicate does not hold. Callers re-read the record to classify the
// rejection into the closed outcome vocabulary; this error must never
// reach an API caller as-is.
var ErrTransitionRejected = errors.New("device: transition predicate rejected")

// Repository persists provisioning records. Every transition is a
// conditional write on a single record; audit entries are appended
// atomically with the transition that caused them.
type Repository interface {
	// Create inserts a fresh record, failing with ErrAlreadyExists
	// when the hardware id was provisioned concurrently.
	Create(ctx context.Context, rec *Record) error

	// GetByHWID reads a record, or ErrNotFound.
	GetByHWID(ctx context.Context, hwID string) (*Record, error)

	// FindBySerial resolves a record through the serial equality
	// index, or ErrNotFound.
	FindBySerial(ctx context.Context, serial string) (*Record, error)

	// Claim sets ownership if the device is active and unclaimed (or
	// already claimed by the same uid, making re-claim idempotent).
	// alreadyOwned reports that this uid held the claim before the
	// call. Rejections return ErrTransitionRejected.
	Claim(ctx context.Context, hwID, uid string, now time.Time) (alreadyOwned bool, err error)

	// Unclaim releases ownership if actorUID holds the claim and the
	// device is active, appending an audit entry.
	Unclaim(ctx context.Context, hwID, actorUID, reason string, now time.Time) error

	// Revoke sets status to revoked regardless of ownership if not
	// already revoked, appending an audit entry.
	Revoke(ctx context.Context, hwID, actorUID, reason string, now time.Time) error

	// Reactivate sets status back to active if not already active,
	// appending an audit entry. Prior ownership is not restored.
	Reactivate(ctx context.Context, hwID, actorUID, reason string, now time.Time) error
}
