// Package docstore implements the single-key document store backing all
// account, device, and rate-limit records. Every operation is atomic on
// exactly one partition key; there are no cross-key transactions.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no document exists for the key.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrAlreadyExists is returned by PutIfAbsent when the key is taken.
	ErrAlreadyExists = errors.New("docstore: document already exists")
	// ErrPredicateFailed is returned by UpdateIf when the predicate
	// rejects the current document. Callers must re-read and classify
	// before reporting anything to their own callers.
	ErrPredicateFailed = errors.New("docstore: predicate failed")
)

// Document is a stored record: an opaque JSON body under a partition key.
type Document struct {
	Key       string
	Body      json.RawMessage
	UpdatedAt time.Time
}

// Predicate is evaluated against the current document body while the row
// is locked. It must be pure.
type Predicate func(body json.RawMessage) bool

// Mutation produces the new document body from the current one. It must
// be pure; it may be re-invoked if the caller retries.
type Mutation func(body json.RawMessage) (json.RawMessage, error)

// Store is the document store contract consumed by all repositories.
type Store interface {
	// Get returns the document for key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Document, error)

	// Put writes the document unconditionally (insert or overwrite).
	Put(ctx context.Context, key string, body json.RawMessage) error

	// PutIfAbsent inserts the document only when the key is free,
	// returning ErrAlreadyExists otherwise.
	PutIfAbsent(ctx context.Context, key string, body json.RawMessage) error

	// UpdateIf atomically replaces the document with mutate(current)
	// when pred(current) holds. Returns ErrNotFound when the key does
	// not exist and ErrPredicateFailed when pred rejects. A nil pred
	// always passes.
	UpdateIf(ctx context.Context, key string, mutate Mutation, pred Predicate) (*Document, error)

	// Increment atomically adds delta to a top-level numeric field,
	// treating a missing field as 0, and returns the new value.
	Increment(ctx context.Context, key string, field string, delta int64) (int64, error)

	// FindByField returns the single document whose top-level field
	// equals value (the equality-lookup secondary index). Returns
	// ErrNotFound when no document matches and an error when the
	// index is not unique.
	FindByField(ctx context.Context, field string, value any) (*Document, error)

	// Delete removes the document for key. Deleting an absent key is
	// not an error.
	Delete(ctx context.Context, key string) error
}
