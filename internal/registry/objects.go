package registry

import (
	"fmt"

	"drawboard/internal/models"

	"github.com/google/uuid"
)

// GetObjects returns copies of all objects on the canvas, unordered.
// An unknown canvas yields an empty slice, not an error.
func (r *Registry) GetObjects(canvasID string) []*models.CanvasObject {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.canvases[canvasID]
	if !ok {
		return []*models.CanvasObject{}
	}

	out := make([]*models.CanvasObject, 0, len(cs.objects))
	for _, obj := range cs.objects {
		out = append(out, obj.Clone())
	}
	return out
}

// AddObject inserts an object into the canvas, stamps ownership and
// timestamps, then enqueues the durable write and audit event.
// Returns a copy of the stored object.
func (r *Registry) AddObject(canvasID string, object *models.CanvasObject, userID, clientID string) *models.CanvasObject {
	r.mu.Lock()
	cs := r.getOrCreateLocked(canvasID)

	obj := object.Clone()
	if obj.ID == "" {
		obj.ID = uuid.NewString()
	}
	now := r.clock.Now()
	obj.CreatedBy = userID
	obj.UpdatedBy = userID
	obj.CreatedAt = now
	obj.UpdatedAt = now

	cs.objects[obj.ID] = obj

	ev := r.appendActivityLocked(cs, canvasID, userID, clientID, models.ActivityObjectCreate, map[string]any{
		"object_id":   obj.ID,
		"object_type": string(obj.Type),
	})
	stored := obj.Clone()
	r.mu.Unlock()

	r.dispatcher.submitStore(persistJob{kind: jobAddObject, canvasID: canvasID, object: stored.Clone()})
	r.publish(ev)
	return stored
}

// UpdateObject merges a partial update into an existing object.
// Returns ErrObjectNotFound if the canvas or object is unknown.
func (r *Registry) UpdateObject(canvasID, objectID string, update *models.ObjectUpdate, userID, clientID string) (*models.CanvasObject, error) {
	r.mu.Lock()
	cs, ok := r.canvases[canvasID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("canvas %s: %w", canvasID, ErrObjectNotFound)
	}
	obj, ok := cs.objects[objectID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("object %s: %w", objectID, ErrObjectNotFound)
	}

	obj.Apply(update)
	obj.UpdatedBy = userID
	obj.UpdatedAt = r.clock.Now()

	ev := r.appendActivityLocked(cs, canvasID, userID, clientID, models.ActivityObjectUpdate, map[string]any{
		"object_id": objectID,
	})
	updated := obj.Clone()
	r.mu.Unlock()

	r.dispatcher.submitStore(persistJob{kind: jobUpdateObject, canvasID: canvasID, objectID: objectID, update: update})
	r.publish(ev)
	return updated, nil
}

// RemoveObject deletes an object. Removing from an unknown canvas or
// an already-absent object is a successful no-op.
func (r *Registry) RemoveObject(canvasID, objectID string, userID, clientID string) bool {
	r.mu.Lock()
	cs, ok := r.canvases[canvasID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if _, ok := cs.objects[objectID]; !ok {
		r.mu.Unlock()
		return false
	}

	delete(cs.objects, objectID)

	ev := r.appendActivityLocked(cs, canvasID, userID, clientID, models.ActivityObjectDelete, map[string]any{
		"object_id": objectID,
	})
	r.mu.Unlock()

	r.dispatcher.submitStore(persistJob{kind: jobRemoveObject, canvasID: canvasID, objectID: objectID})
	r.publish(ev)
	return true
}

// ClearCanvas empties the object map atomically with respect to
// readers of that canvas and logs a single aggregate event carrying
// the removed count. Unknown canvas is a no-op returning 0.
func (r *Registry) ClearCanvas(canvasID, userID, clientID string) int {
	r.mu.Lock()
	cs, ok := r.canvases[canvasID]
	if !ok {
		r.mu.Unlock()
		return 0
	}

	removed := len(cs.objects)
	cs.objects = make(map[string]*models.CanvasObject)

	ev := r.appendActivityLocked(cs, canvasID, userID, clientID, models.ActivityObjectDelete, map[string]any{
		"cleared": true,
		"count":   removed,
	})
	r.mu.Unlock()

	r.dispatcher.submitStore(persistJob{kind: jobClearCanvas, canvasID: canvasID})
	r.publish(ev)
	return removed
}
