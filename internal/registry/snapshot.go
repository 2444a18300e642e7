package registry

import (
	"time"

	"drawboard/internal/models"
)

// CanvasMetadata is the derived view attached to a snapshot.
type CanvasMetadata struct {
	MemberCount  int       `json:"member_count"`
	LastActivity time.Time `json:"last_activity"`
	Version      uint64    `json:"version"`
}

// CanvasSnapshot is a deep, independent copy of one canvas's runtime
// state, used to seed a client that just joined or switched canvases.
// Copy-on-read avoids aliasing bugs: a client can mutate its view
// without racing live engine state.
type CanvasSnapshot struct {
	CanvasID string                  `json:"canvas_id"`
	Objects  []*models.CanvasObject  `json:"objects"`
	Cursors  []*models.CursorState   `json:"cursors"`
	Presence []*models.PresenceEntry `json:"presence"`
	Activity []*models.ActivityEvent `json:"activity"`
	Metadata CanvasMetadata          `json:"metadata"`
	TakenAt  time.Time               `json:"taken_at"`
}

// GetSnapshot returns a deep copy of the canvas's objects, cursors,
// presence and recent activity plus derived metadata. An unknown
// canvas yields an empty snapshot.
func (r *Registry) GetSnapshot(canvasID string) *CanvasSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := &CanvasSnapshot{
		CanvasID: canvasID,
		Objects:  []*models.CanvasObject{},
		Cursors:  []*models.CursorState{},
		Presence: []*models.PresenceEntry{},
		Activity: []*models.ActivityEvent{},
		TakenAt:  r.clock.Now(),
	}

	cs, ok := r.canvases[canvasID]
	if !ok {
		return snap
	}

	for _, obj := range cs.objects {
		snap.Objects = append(snap.Objects, obj.Clone())
	}
	for _, cursor := range cs.cursors {
		snap.Cursors = append(snap.Cursors, cursor.Clone())
	}

	// Metadata carries the most recent activity time across all
	// presence entries, falling back to the event log's freshness.
	lastActivity := cs.lastActivity
	for _, entry := range cs.presence {
		snap.Presence = append(snap.Presence, entry.Clone())
		if entry.LastActiveAt.After(lastActivity) {
			lastActivity = entry.LastActiveAt
		}
	}
	for _, ev := range cs.activity {
		snap.Activity = append(snap.Activity, ev.Clone())
	}

	snap.Metadata = CanvasMetadata{
		MemberCount:  len(cs.presence),
		LastActivity: lastActivity,
		Version:      cs.version,
	}
	return snap
}
