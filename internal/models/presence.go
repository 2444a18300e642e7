package models

import "time"

// PresenceStatus is the activity state of a participant.
// Transitions are monotonic decay (active → idle → away); any activity
// resets directly to active from any state.
type PresenceStatus string

const (
	StatusActive PresenceStatus = "active"
	StatusIdle   PresenceStatus = "idle"
	StatusAway   PresenceStatus = "away"
)

// Role is resolved by the permission collaborator and attached at join
// time. The engine treats it as opaque data - it never computes or
// enforces permissions itself.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

// UserInfo is the display metadata a client supplies about its user.
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"` // hex color for cursor/highlight
}

// PresenceEntry is the live roster record for one (canvas, user) pair.
type PresenceEntry struct {
	UserID       string         `json:"user_id"`
	ClientID     string         `json:"client_id"`
	Name         string         `json:"name"`
	Color        string         `json:"color,omitempty"`
	Role         Role           `json:"role"`
	Status       PresenceStatus `json:"status"`
	JoinedAt     time.Time      `json:"joined_at"`
	LastActiveAt time.Time      `json:"last_active_at"`
}

// Clone returns an independent copy of the entry.
func (p *PresenceEntry) Clone() *PresenceEntry {
	dup := *p
	return &dup
}

// Identity is the result of verifying an identity token.
type Identity struct {
	UserID string         `json:"user_id"`
	Name   string         `json:"name,omitempty"`
	Claims map[string]any `json:"claims,omitempty"`
}
