// Package serialalloc issues globally unique device serial numbers from
// a single counter record in the document store.
package serialalloc

import (
	"context"
	"fmt"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/device"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/docstore"
	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

const counterField = "serialCounter"

// Allocator issues strictly increasing serial sequence numbers. No two
// calls ever observe the same value.
type Allocator interface {
	NextSerial(ctx context.Context) (int64, error)
}

// DocstoreAllocator implements Allocator on the document store's atomic
// increment primitive.
type DocstoreAllocator struct {
	store  docstore.Store
	logger logger.Interface
}

// NewDocstoreAllocator creates a serial allocator.
func NewDocstoreAllocator(store docstore.Store, log logger.Interface) *DocstoreAllocator {
	return &DocstoreAllocator{
		store:  store,
		logger: log.Named("serialalloc"),
	}
}

// NextSerial initializes the counter record idempotently, then performs
// one atomic increment-and-fetch. A non-positive result indicates store
// corruption and is fatal to the calling request.
func (a *DocstoreAllocator) NextSerial(ctx context.Context) (int64, error) {
	seed := []byte(fmt.Sprintf(`{"%s":0}`, counterField))
	err := a.store.PutIfAbsent(ctx, docstore.SerialCounterKey, seed)
	if err != nil && err != docstore.ErrAlreadyExists {
		a.logger.Errorw("failed to initialize serial counter", "error", err)
		return 0, fmt.Errorf("failed to initialize serial counter: %w", err)
	}

	next, err := a.store.Increment(ctx, docstore.SerialCounterKey, counterField, 1)
	if err != nil {
		a.logger.Errorw("failed to increment serial counter", "error", err)
		return 0, fmt.Errorf("failed to increment serial counter: %w", err)
	}
	if next <= 0 {
		a.logger.Errorw("serial counter returned non-positive value", "value", next)
		return 0, apperrors.NewInvariantError("serial counter corrupted",
			fmt.Sprintf("increment returned %d", next))
	}
	return next, nil
}

// FormatSerial renders a sequence number as the 6-digit zero-padded
// serial printed on the device label.
func FormatSerial(seq int64) string {
	return fmt.Sprintf("%06d", seq)
}

// ThingName derives the IoT thing name for a serial.
func ThingName(serial string) string {
	return device.ThingNamePrefix + serial
}
