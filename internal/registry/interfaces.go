package registry

import (
	"context"

	"drawboard/internal/models"
)

// Interfaces for the registry's downstream collaborators live here,
// in the consumer package. The repository package implements them.

// ObjectStore is the persistence collaborator. Every call is made
// after the in-memory mutation already happened; a failure is logged
// and never rolled back.
type ObjectStore interface {
	AddObject(ctx context.Context, canvasID string, object *models.CanvasObject) error
	UpdateObject(ctx context.Context, canvasID, objectID string, update *models.ObjectUpdate) error
	RemoveObject(ctx context.Context, canvasID, objectID string) error
	Clear(ctx context.Context, canvasID string) error
}

// AuditLog receives the forwarded subset of activity events
// (join, leave, object_create, object_delete).
type AuditLog interface {
	Record(ctx context.Context, event *models.ActivityEvent) error
}
