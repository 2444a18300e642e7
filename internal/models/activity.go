package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType classifies an entry in a canvas's activity log.
type ActivityType string

const (
	ActivityJoin         ActivityType = "join"
	ActivityLeave        ActivityType = "leave"
	ActivityObjectCreate ActivityType = "object_create"
	ActivityObjectUpdate ActivityType = "object_update"
	ActivityObjectDelete ActivityType = "object_delete"
	ActivityCursorMove   ActivityType = "cursor_move"
	ActivityIdle         ActivityType = "idle"
	ActivityAway         ActivityType = "away"
	ActivityActive       ActivityType = "active"
)

// ActivityEvent is an immutable record in a canvas's bounded event
// log. Selected types (join, leave, object_create, object_delete) are
// also forwarded to the audit collaborator.
type ActivityEvent struct {
	ID        string         `json:"id"`
	CanvasID  string         `json:"canvas_id"`
	UserID    string         `json:"user_id"`
	ClientID  string         `json:"client_id"`
	Type      ActivityType   `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewActivityEvent builds an event with a fresh id.
func NewActivityEvent(canvasID, userID, clientID string, typ ActivityType, ts time.Time, payload map[string]any) *ActivityEvent {
	return &ActivityEvent{
		ID:        uuid.NewString(),
		CanvasID:  canvasID,
		UserID:    userID,
		ClientID:  clientID,
		Type:      typ,
		Timestamp: ts,
		Payload:   payload,
	}
}

// Audited reports whether this event type is forwarded to the audit
// collaborator. The rest stay in-memory only.
func (e *ActivityEvent) Audited() bool {
	switch e.Type {
	case ActivityJoin, ActivityLeave, ActivityObjectCreate, ActivityObjectDelete:
		return true
	}
	return false
}

// Clone returns an independent copy of the event.
func (e *ActivityEvent) Clone() *ActivityEvent {
	dup := *e
	if e.Payload != nil {
		dup.Payload = make(map[string]any, len(e.Payload))
		for k, v := range e.Payload {
			dup.Payload[k] = v
		}
	}
	return &dup
}
