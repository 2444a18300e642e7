package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"drawboard/internal/models"

	"gorm.io/gorm"
)

// ObjectRepositoryImpl is the gorm-backed persistence collaborator for
// canvas objects. It implements registry.ObjectStore.
type ObjectRepositoryImpl struct {
	db *gorm.DB
}

// NewObjectRepository creates a new object repository
func NewObjectRepository(db *gorm.DB) *ObjectRepositoryImpl {
	return &ObjectRepositoryImpl{db: db}
}

// AddObject stores the full object snapshot as one jsonb row.
func (r *ObjectRepositoryImpl) AddObject(ctx context.Context, canvasID string, object *models.CanvasObject) error {
	data, err := json.Marshal(object)
	if err != nil {
		return fmt.Errorf("failed to marshal object %s: %w", object.ID, err)
	}

	record := &models.ObjectRecord{
		ID:        object.ID,
		CanvasID:  canvasID,
		Type:      string(object.Type),
		Data:      data,
		CreatedBy: object.CreatedBy,
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to store object %s: %w", object.ID, err)
	}
	return nil
}

// UpdateObject loads the durable snapshot, merges the partial update
// into it and saves the result. A row missing here is not an engine
// error - the in-memory mirror is authoritative - so it is reported
// but left to the caller's log.
func (r *ObjectRepositoryImpl) UpdateObject(ctx context.Context, canvasID, objectID string, update *models.ObjectUpdate) error {
	var record models.ObjectRecord
	err := r.db.WithContext(ctx).
		Where("canvas_id = ? AND id = ?", canvasID, objectID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("object %s not persisted for canvas %s", objectID, canvasID)
		}
		return fmt.Errorf("failed to load object %s: %w", objectID, err)
	}

	var object models.CanvasObject
	if err := json.Unmarshal(record.Data, &object); err != nil {
		return fmt.Errorf("failed to unmarshal object %s: %w", objectID, err)
	}

	object.Apply(update)

	data, err := json.Marshal(&object)
	if err != nil {
		return fmt.Errorf("failed to marshal object %s: %w", objectID, err)
	}

	err = r.db.WithContext(ctx).
		Model(&models.ObjectRecord{}).
		Where("canvas_id = ? AND id = ?", canvasID, objectID).
		Update("data", data).Error
	if err != nil {
		return fmt.Errorf("failed to update object %s: %w", objectID, err)
	}
	return nil
}

// RemoveObject deletes the durable row. Deleting an absent row is not
// an error.
func (r *ObjectRepositoryImpl) RemoveObject(ctx context.Context, canvasID, objectID string) error {
	err := r.db.WithContext(ctx).
		Where("canvas_id = ? AND id = ?", canvasID, objectID).
		Delete(&models.ObjectRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectID, err)
	}
	return nil
}

// Clear deletes every durable object row for the canvas.
func (r *ObjectRepositoryImpl) Clear(ctx context.Context, canvasID string) error {
	err := r.db.WithContext(ctx).
		Where("canvas_id = ?", canvasID).
		Delete(&models.ObjectRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear canvas %s: %w", canvasID, err)
	}
	return nil
}

// ListObjects returns all persisted objects for a canvas, used to
// warm a canvas after a process restart.
func (r *ObjectRepositoryImpl) ListObjects(ctx context.Context, canvasID string) ([]*models.CanvasObject, error) {
	var records []*models.ObjectRecord
	err := r.db.WithContext(ctx).
		Where("canvas_id = ?", canvasID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list objects for canvas %s: %w", canvasID, err)
	}

	objects := make([]*models.CanvasObject, 0, len(records))
	for _, record := range records {
		var object models.CanvasObject
		if err := json.Unmarshal(record.Data, &object); err != nil {
			return nil, fmt.Errorf("failed to unmarshal object %s: %w", record.ID, err)
		}
		objects = append(objects, &object)
	}
	return objects, nil
}
