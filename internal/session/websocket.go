package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"drawboard/internal/middleware"
	"drawboard/internal/models"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: validate origin against an allowlist in production
		return true
	},
}

// envelope is the client → server message frame. Exactly one of the
// optional groups is populated depending on Type.
type envelope struct {
	Type string `json:"type"`

	// authenticate / reconnect
	Token string           `json:"token,omitempty"`
	User  *models.UserInfo `json:"user,omitempty"`

	// join / switch
	CanvasID     string `json:"canvas_id,omitempty"`
	FromCanvasID string `json:"from_canvas_id,omitempty"`

	// object edits
	Object   *models.CanvasObject `json:"object,omitempty"`
	ObjectID string               `json:"object_id,omitempty"`
	Update   *models.ObjectUpdate `json:"update,omitempty"`

	// cursor moves
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	Visible *bool   `json:"visible,omitempty"`
	Tool    string  `json:"tool,omitempty"`
}

// ServeWS upgrades the HTTP connection and runs the session until the
// transport closes.
func (m *Manager) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return
	}

	c := m.Connect(conn)
	log.Printf("✓ WebSocket connection established (session %s)", c.ID)

	go c.writePump()
	go c.readPump(r.Context())
}

// readPump reads frames from the connection in its own goroutine.
// A missed heartbeat (no pong within the timeout) breaks the read
// and is treated as an implicit full disconnect.
func (c *Client) readPump(ctx context.Context) {
	m := c.manager
	defer func() {
		m.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(m.cfg.HeartbeatTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(m.cfg.HeartbeatTimeout))
		c.LastActiveAt = time.Now()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		c.LastActiveAt = time.Now()

		msgCtx, span := middleware.StartSpan(ctx, "WebSocket.ProcessMessage",
			attribute.String("session.id", c.ID),
			attribute.Int("message.size", len(message)),
		)
		if err := m.dispatch(msgCtx, c, message); err != nil {
			middleware.AddSpanError(msgCtx, err)
			m.sendError(c, err)
		}
		span.End()
	}
}

// writePump writes queued frames and periodic pings in its own
// goroutine, so a slow reader never blocks the rest of the engine.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.manager.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Batch additional queued frames into one write
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var newline = []byte("\n")

// dispatch routes one inbound frame to the matching operation.
func (m *Manager) dispatch(ctx context.Context, c *Client, raw []byte) error {
	var msg envelope
	if err := json.Unmarshal(raw, &msg); err != nil {
		return errors.New("malformed message")
	}

	switch msg.Type {
	case models.MessageAuthenticate:
		info := models.UserInfo{}
		if msg.User != nil {
			info = *msg.User
		}
		identity, err := m.Authenticate(ctx, c, msg.Token, info)
		if err != nil {
			return err
		}
		m.sendJSON(c, map[string]any{
			"type":    models.MessageAuthenticated,
			"user_id": identity.UserID,
			"name":    c.UserName,
		})

	case models.MessageJoin:
		snap, err := m.JoinRoom(ctx, c, msg.CanvasID)
		if err != nil {
			return err
		}
		m.sendJSON(c, map[string]any{
			"type":     models.MessageJoined,
			"snapshot": snap,
			"roster":   snap.Presence,
		})

	case models.MessageLeave:
		return m.LeaveRoom(c)

	case models.MessageSwitch:
		snap, err := m.SwitchRoom(ctx, c, msg.FromCanvasID, msg.CanvasID)
		if err != nil {
			return err
		}
		m.sendJSON(c, map[string]any{
			"type":     models.MessageJoined,
			"snapshot": snap,
			"roster":   snap.Presence,
		})

	case models.MessageReconnect:
		// Reconnect arrives on an already-connected transport when
		// the client wants to resume a prior session instead of
		// authenticating and joining from scratch.
		if err := m.Reconnect(ctx, c, msg.Token); err != nil {
			return err
		}
		m.sendJSON(c, map[string]any{
			"type":            models.MessageReconnected,
			"client_id":       c.ID,
			"reconnect_token": c.reconnectToken,
			"snapshot":        m.registry.GetSnapshot(c.CanvasID()),
		})

	case models.MessageObjectAdd:
		canvasID, err := m.requireRoom(c)
		if err != nil {
			return err
		}
		if msg.Object == nil {
			return errors.New("object is required")
		}
		stored := m.registry.AddObject(canvasID, msg.Object, c.UserID, c.ID)
		m.registry.TouchActivity(canvasID, c.UserID, c.ID)
		m.broadcastRoom(canvasID, map[string]any{
			"type":      models.MessageObjectAdd,
			"canvas_id": canvasID,
			"object":    stored,
			"user_id":   c.UserID,
		}, c)

	case models.MessageObjectUpdate:
		canvasID, err := m.requireRoom(c)
		if err != nil {
			return err
		}
		updated, err := m.registry.UpdateObject(canvasID, msg.ObjectID, msg.Update, c.UserID, c.ID)
		if err != nil {
			return err
		}
		m.registry.TouchActivity(canvasID, c.UserID, c.ID)
		m.broadcastRoom(canvasID, map[string]any{
			"type":      models.MessageObjectUpdate,
			"canvas_id": canvasID,
			"object":    updated,
			"user_id":   c.UserID,
		}, c)

	case models.MessageObjectDelete:
		canvasID, err := m.requireRoom(c)
		if err != nil {
			return err
		}
		if m.registry.RemoveObject(canvasID, msg.ObjectID, c.UserID, c.ID) {
			m.registry.TouchActivity(canvasID, c.UserID, c.ID)
			m.broadcastRoom(canvasID, map[string]any{
				"type":      models.MessageObjectDelete,
				"canvas_id": canvasID,
				"object_id": msg.ObjectID,
				"user_id":   c.UserID,
			}, c)
		}

	case models.MessageCanvasClear:
		canvasID, err := m.requireRoom(c)
		if err != nil {
			return err
		}
		removed := m.registry.ClearCanvas(canvasID, c.UserID, c.ID)
		m.registry.TouchActivity(canvasID, c.UserID, c.ID)
		m.broadcastRoom(canvasID, map[string]any{
			"type":      models.MessageCanvasClear,
			"canvas_id": canvasID,
			"removed":   removed,
			"user_id":   c.UserID,
		}, c)

	case models.MessageCursor:
		canvasID, err := m.requireRoom(c)
		if err != nil {
			return err
		}
		visible := true
		if msg.Visible != nil {
			visible = *msg.Visible
		}
		cursor := m.registry.UpdateCursor(canvasID, c.UserID, c.ID,
			models.Point{X: msg.X, Y: msg.Y}, visible, msg.Tool, c.info)
		m.broadcastRoom(canvasID, map[string]any{
			"type":      models.MessageCursor,
			"canvas_id": canvasID,
			"cursor":    cursor,
		}, c)

	default:
		return errors.New("unknown message type: " + msg.Type)
	}
	return nil
}

// requireRoom returns the client's current canvas or an error.
func (m *Manager) requireRoom(c *Client) (string, error) {
	canvasID := c.CanvasID()
	if canvasID == "" {
		return "", errors.New("not in a canvas room")
	}
	return canvasID, nil
}

// sendError reports a failure to the offending client only; another
// user's local failure is never broadcast.
func (m *Manager) sendError(c *Client, err error) {
	m.sendJSON(c, map[string]any{
		"type":    models.MessageError,
		"message": err.Error(),
	})
}
