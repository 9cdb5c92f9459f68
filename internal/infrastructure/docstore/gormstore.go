package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// DocumentModel is the gorm model for the documents table.
type DocumentModel struct {
	PK        string         `gorm:"column:pk;primaryKey;size:191"`
	Doc       datatypes.JSON `gorm:"column:doc"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

// TableName returns the table name for gorm
func (DocumentModel) TableName() string {
	return "documents"
}

// GormStore implements Store on a single gorm-managed table with the
// document body in a JSON column. Conditional writes run inside a
// single-key transaction with the row locked, which gives the same
// per-key atomicity the contract requires.
type GormStore struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewGormStore creates a document store on the given connection.
func NewGormStore(db *gorm.DB, log logger.Interface) *GormStore {
	return &GormStore{
		db:     db,
		logger: log.Named("docstore"),
	}
}

// AutoMigrate creates the documents table. Used by the development
// migration strategy and by storage tests.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&DocumentModel{})
}

func (s *GormStore) Get(ctx context.Context, key string) (*Document, error) {
	var model DocumentModel
	err := s.db.WithContext(ctx).Where("pk = ?", key).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Errorw("failed to get document", "key", key, "error", err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return toDocument(&model), nil
}

func (s *GormStore) Put(ctx context.Context, key string, body json.RawMessage) error {
	model := DocumentModel{
		PK:        key,
		Doc:       datatypes.JSON(body),
		UpdatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pk"}},
		DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		s.logger.Errorw("failed to put document", "key", key, "error", err)
		return fmt.Errorf("failed to put document: %w", err)
	}
	return nil
}

func (s *GormStore) PutIfAbsent(ctx context.Context, key string, body json.RawMessage) error {
	model := DocumentModel{
		PK:        key,
		Doc:       datatypes.JSON(body),
		UpdatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Create(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || apperrors.IsDuplicateError(err) {
			return ErrAlreadyExists
		}
		s.logger.Errorw("failed to insert document", "key", key, "error", err)
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (s *GormStore) UpdateIf(ctx context.Context, key string, mutate Mutation, pred Predicate) (*Document, error) {
	var updated *Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := s.lockRow(tx, key)
		if err != nil {
			return err
		}

		if pred != nil && !pred(json.RawMessage(model.Doc)) {
			return ErrPredicateFailed
		}

		newBody, err := mutate(json.RawMessage(model.Doc))
		if err != nil {
			return fmt.Errorf("mutation failed: %w", err)
		}

		now := time.Now().UTC()
		err = tx.Model(&DocumentModel{}).Where("pk = ?", key).Updates(map[string]interface{}{
			"doc":        datatypes.JSON(newBody),
			"updated_at": now,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}

		updated = &Document{Key: key, Body: newBody, UpdatedAt: now}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrPredicateFailed) {
			return nil, err
		}
		s.logger.Errorw("conditional update failed", "key", key, "error", err)
		return nil, err
	}
	return updated, nil
}

func (s *GormStore) Increment(ctx context.Context, key string, field string, delta int64) (int64, error) {
	var result int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := s.lockRow(tx, key)
		if err != nil {
			return err
		}

		doc := map[string]any{}
		dec := json.NewDecoder(bytes.NewReader(model.Doc))
		dec.UseNumber()
		if len(model.Doc) > 0 {
			if err := dec.Decode(&doc); err != nil {
				return fmt.Errorf("malformed stored document: %w", err)
			}
		}

		current, err := numericField(doc, field)
		if err != nil {
			return err
		}

		result = current + delta
		doc[field] = result

		newBody, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}

		err = tx.Model(&DocumentModel{}).Where("pk = ?", key).Updates(map[string]interface{}{
			"doc":        datatypes.JSON(newBody),
			"updated_at": time.Now().UTC(),
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update counter: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, err
		}
		s.logger.Errorw("atomic increment failed", "key", key, "field", field, "error", err)
		return 0, err
	}
	return result, nil
}

func (s *GormStore) FindByField(ctx context.Context, field string, value any) (*Document, error) {
	var models []DocumentModel
	err := s.db.WithContext(ctx).
		Where(datatypes.JSONQuery("doc").Equals(value, field)).
		Limit(2).
		Find(&models).Error
	if err != nil {
		s.logger.Errorw("index lookup failed", "field", field, "error", err)
		return nil, fmt.Errorf("index lookup failed: %w", err)
	}
	switch len(models) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return toDocument(&models[0]), nil
	default:
		return nil, fmt.Errorf("index on %q is not unique for value %v", field, value)
	}
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("pk = ?", key).Delete(&DocumentModel{}).Error
	if err != nil {
		s.logger.Errorw("failed to delete document", "key", key, "error", err)
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// lockRow fetches the row for key with an exclusive lock where the
// dialect supports it. SQLite serializes writers on its own.
func (s *GormStore) lockRow(tx *gorm.DB, key string) (*DocumentModel, error) {
	query := tx.Where("pk = ?", key)
	if tx.Dialector.Name() == "mysql" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var model DocumentModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return &model, nil
}

func toDocument(model *DocumentModel) *Document {
	return &Document{
		Key:       model.PK,
		Body:      json.RawMessage(model.Doc),
		UpdatedAt: model.UpdatedAt,
	}
}

// numericField extracts a top-level integer field, treating a missing
// field as 0. Anything non-integer is a store corruption.
func numericField(doc map[string]any, field string) (int64, error) {
	raw, ok := doc[field]
	if !ok || raw == nil {
		return 0, nil
	}
	switch v := raw.(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("field %q is not an integer: %v", field, raw)
		}
		return n, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("field %q is not an integer: %v", field, raw)
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("field %q is not numeric: %T", field, raw)
	}
}
