package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"drawboard/internal/models"

	"gorm.io/gorm"
)

// AuditRepositoryImpl is the gorm-backed audit collaborator. It
// implements registry.AuditLog and receives only the forwarded subset
// of activity events.
type AuditRepositoryImpl struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) *AuditRepositoryImpl {
	return &AuditRepositoryImpl{db: db}
}

// Record appends one event to the durable audit trail.
func (r *AuditRepositoryImpl) Record(ctx context.Context, event *models.ActivityEvent) error {
	var payload []byte
	if event.Payload != nil {
		var err error
		payload, err = json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal audit payload: %w", err)
		}
	}

	record := &models.AuditRecord{
		EventID:   event.ID,
		CanvasID:  event.CanvasID,
		UserID:    event.UserID,
		ClientID:  event.ClientID,
		Type:      string(event.Type),
		Payload:   payload,
		Timestamp: event.Timestamp,
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to record audit event %s: %w", event.ID, err)
	}
	return nil
}

// ListByCanvas returns the audit trail for one canvas, newest first.
func (r *AuditRepositoryImpl) ListByCanvas(ctx context.Context, canvasID string, limit int) ([]*models.AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	var records []*models.AuditRecord
	err := r.db.WithContext(ctx).
		Where("canvas_id = ?", canvasID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records for canvas %s: %w", canvasID, err)
	}
	return records, nil
}
