package models

import (
	"time"

	"github.com/segmentio/ksuid"
)

// ClientSession identifies one physical connection for the lifetime of
// its transport. The id is a KSUID so sessions sort by connect time.
type ClientSession struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	UserName     string    `json:"user_name,omitempty"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

func NewClientSession() *ClientSession {
	now := time.Now()
	return &ClientSession{
		ID:           ksuid.New().String(),
		ConnectedAt:  now,
		LastActiveAt: now,
	}
}

// Websocket message types for the collaboration protocol.
// Client → server.
const (
	MessageAuthenticate = "authenticate"
	MessageJoin         = "join"
	MessageLeave        = "leave"
	MessageSwitch       = "switch"
	MessageReconnect    = "reconnect"
	MessageObjectAdd    = "object_add"
	MessageObjectUpdate = "object_update"
	MessageObjectDelete = "object_delete"
	MessageCanvasClear  = "canvas_clear"
	MessageCursor       = "cursor"
)

// Server → client.
const (
	MessageConnected     = "connected"
	MessageAuthenticated = "authenticated"
	MessageJoined        = "joined"
	MessageReconnected   = "reconnected"
	MessageUserJoined    = "user_joined"
	MessageUserLeft      = "user_left"
	MessagePresence      = "presence"
	MessageError         = "error"
)
