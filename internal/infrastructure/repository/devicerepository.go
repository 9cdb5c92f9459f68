package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/device"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/docstore"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// DeviceRepositoryImpl persists provisioning records through the
// document store adapter. Each transition is one conditional write; the
// audit entry it produces is appended in the same write, so concurrent
// actions never lose entries.
type DeviceRepositoryImpl struct {
	store  docstore.Store
	logger logger.Interface
}

// NewDeviceRepository creates a device repository.
func NewDeviceRepository(store docstore.Store, log logger.Interface) device.Repository {
	return &DeviceRepositoryImpl{
		store:  store,
		logger: log.Named("device-repository"),
	}
}

func (r *DeviceRepositoryImpl) Create(ctx context.Context, rec *device.Record) error {
	body, err := rec.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	err = r.store.PutIfAbsent(ctx, docstore.DeviceKey(rec.HWID), body)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return device.ErrAlreadyExists
	}
	if err != nil {
		r.logger.Errorw("failed to create device record", "hw_id", rec.HWID, "error", err)
		return fmt.Errorf("failed to create device record: %w", err)
	}
	return nil
}

func (r *DeviceRepositoryImpl) GetByHWID(ctx context.Context, hwID string) (*device.Record, error) {
	doc, err := r.store.Get(ctx, docstore.DeviceKey(hwID))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, device.ErrNotFound
		}
		r.logger.Errorw("failed to read device record", "hw_id", hwID, "error", err)
		return nil, fmt.Errorf("failed to read device record: %w", err)
	}
	return r.decode(doc.Body, doc.Key)
}

func (r *DeviceRepositoryImpl) FindBySerial(ctx context.Context, serial string) (*device.Record, error) {
	doc, err := r.store.FindByField(ctx, "serial", serial)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, device.ErrNotFound
		}
		r.logger.Errorw("serial index lookup failed", "serial", serial, "error", err)
		return nil, fmt.Errorf("serial index lookup failed: %w", err)
	}
	return r.decode(doc.Body, doc.Key)
}

func (r *DeviceRepositoryImpl) Claim(ctx context.Context, hwID, uid string, now time.Time) (bool, error) {
	alreadyOwned := false
	err := r.transition(ctx, hwID,
		func(rec *device.Record) bool {
			return rec.Status == device.StatusActive && (rec.ClaimedBy == "" || rec.ClaimedBy == uid)
		},
		func(rec *device.Record) {
			alreadyOwned = rec.ClaimedBy == uid
			rec.ClaimedBy = uid
			claimedAt := now
			rec.ClaimedAt = &claimedAt
			rec.UpdatedAt = now
			if !alreadyOwned {
				appendAudit(rec, device.ActionClaim, uid, "", now)
			}
		})
	return alreadyOwned, err
}

func (r *DeviceRepositoryImpl) Unclaim(ctx context.Context, hwID, actorUID, reason string, now time.Time) error {
	return r.transition(ctx, hwID,
		func(rec *device.Record) bool {
			return rec.Status == device.StatusActive && rec.ClaimedBy == actorUID
		},
		func(rec *device.Record) {
			rec.ClaimedBy = ""
			rec.ClaimedAt = nil
			rec.UpdatedAt = now
			appendAudit(rec, device.ActionUnclaim, actorUID, reason, now)
		})
}

func (r *DeviceRepositoryImpl) Revoke(ctx context.Context, hwID, actorUID, reason string, now time.Time) error {
	return r.transition(ctx, hwID,
		func(rec *device.Record) bool {
			return rec.Status != device.StatusRevoked
		},
		func(rec *device.Record) {
			rec.Status = device.StatusRevoked
			rec.UpdatedAt = now
			appendAudit(rec, device.ActionRevoke, actorUID, reason, now)
		})
}

func (r *DeviceRepositoryImpl) Reactivate(ctx context.Context, hwID, actorUID, reason string, now time.Time) error {
	return r.transition(ctx, hwID,
		func(rec *device.Record) bool {
			return rec.Status != device.StatusActive
		},
		func(rec *device.Record) {
			rec.Status = device.StatusActive
			// Reactivation does not restore prior ownership.
			rec.ClaimedBy = ""
			rec.ClaimedAt = nil
			rec.UpdatedAt = now
			appendAudit(rec, device.ActionReactivate, actorUID, reason, now)
		})
}

// transition runs a conditional record update: pred and apply both see
// the record as currently stored, under the row lock.
func (r *DeviceRepositoryImpl) transition(ctx context.Context, hwID string, pred func(*device.Record) bool, apply func(*device.Record)) error {
	_, err := r.store.UpdateIf(ctx, docstore.DeviceKey(hwID),
		func(current json.RawMessage) (json.RawMessage, error) {
			rec, err := device.FromJSON(current)
			if err != nil {
				return nil, fmt.Errorf("malformed device record %s: %w", hwID, err)
			}
			apply(rec)
			return rec.ToJSON()
		},
		func(current json.RawMessage) bool {
			rec, err := device.FromJSON(current)
			if err != nil {
				return false
			}
			return pred(rec)
		})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return device.ErrNotFound
		}
		if errors.Is(err, docstore.ErrPredicateFailed) {
			return device.ErrTransitionRejected
		}
		r.logger.Errorw("device transition failed", "hw_id", hwID, "error", err)
		return fmt.Errorf("device transition failed: %w", err)
	}
	return nil
}

func appendAudit(rec *device.Record, action, actorUID, reason string, now time.Time) {
	if rec.AuditTrail == nil {
		rec.AuditTrail = []device.AuditEntry{}
	}
	rec.AuditTrail = append(rec.AuditTrail, device.AuditEntry{
		Action:    action,
		ActorUID:  actorUID,
		Timestamp: now,
		Reason:    reason,
	})
}

func (r *DeviceRepositoryImpl) decode(body json.RawMessage, key string) (*device.Record, error) {
	rec, err := device.FromJSON(body)
	if err != nil {
		return nil, fmt.Errorf("malformed device record at key %s: %w", key, err)
	}
	return rec, nil
}
