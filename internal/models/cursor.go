package models

import "time"

// CursorState is the ephemeral pointer state for one (canvas, user)
// pair. It is upserted on every pointer move, deleted with the user's
// presence, and never written to durable storage.
type CursorState struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name,omitempty"`
	Position  Point     `json:"position"`
	Visible   bool      `json:"visible"`
	Tool      string    `json:"tool,omitempty"`
	Color     string    `json:"color,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns an independent copy of the cursor state.
func (c *CursorState) Clone() *CursorState {
	dup := *c
	return &dup
}
