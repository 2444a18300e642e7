package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"drawboard/internal/models"
	"drawboard/internal/registry"

	"github.com/gorilla/websocket"
)

/*
LEARNING: TRANSPORT VS STATE

The manager owns transport concerns only: connections, rooms as
fan-out sets, reconnect tokens, heartbeats. Every piece of canvas
state - objects, cursors, presence - is mutated exclusively through
registry operations. The manager never reaches into canvas internals,
which is what keeps the registry's serialization contract honest.
*/

var (
	// ErrNotConnected is returned for room operations on a session
	// that is not in the connected state.
	ErrNotConnected = errors.New("session not connected")
	// ErrNotAuthenticated is returned for join attempts before a
	// successful authenticate.
	ErrNotAuthenticated = errors.New("session not authenticated")
)

// ConnState is the protocol state of one client session.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
	StateError        ConnState = "error"
)

// Config carries the session-layer thresholds.
type Config struct {
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	ReconnectTokenTTL time.Duration
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 54 * time.Second,
		HeartbeatTimeout:  60 * time.Second,
		ReconnectTokenTTL: 5 * time.Minute,
	}
}

// Client is one live connection and its protocol state.
type Client struct {
	*models.ClientSession

	conn    *websocket.Conn
	send    chan []byte // buffered outbound queue
	manager *Manager

	state          ConnState
	identity       *models.Identity
	info           models.UserInfo
	role           models.Role
	canvasID       string // current room, "" if none
	reconnectToken string
	closed         bool
}

// State returns the client's protocol state.
func (c *Client) State() ConnState {
	c.manager.mu.RLock()
	defer c.manager.mu.RUnlock()
	return c.state
}

// CanvasID returns the client's current room, or "".
func (c *Client) CanvasID() string {
	c.manager.mu.RLock()
	defer c.manager.mu.RUnlock()
	return c.canvasID
}

// Manager is the session/connection manager: client lifecycle,
// authentication, room membership, reconnect and heartbeat.
type Manager struct {
	registry *registry.Registry
	verifier TokenVerifier
	roles    RoleResolver
	tokens   *tokenStore
	clock    registry.Clock
	cfg      Config

	mu      sync.RWMutex
	clients map[string]*Client          // client id → client
	rooms   map[string]map[*Client]bool // canvas id → fan-out set

	done     chan struct{}
	stopOnce sync.Once
}

// NewManager wires the session layer to an injected registry and the
// external identity/permission collaborators.
func NewManager(reg *registry.Registry, verifier TokenVerifier, roles RoleResolver, clock registry.Clock, cfg Config) *Manager {
	if clock == nil {
		clock = registry.SystemClock()
	}
	m := &Manager{
		registry: reg,
		verifier: verifier,
		roles:    roles,
		tokens:   newTokenStore(clock, cfg.ReconnectTokenTTL),
		clock:    clock,
		cfg:      cfg,
		clients:  make(map[string]*Client),
		rooms:    make(map[string]map[*Client]bool),
		done:     make(chan struct{}),
	}
	reg.SetNotifier(m.handleActivityEvent)
	return m
}

// Start begins background maintenance (expired token pruning).
func (m *Manager) Start() {
	log.Println("🔄 Starting session manager...")
	go m.maintenanceLoop()
}

func (m *Manager) maintenanceLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.tokens.prune()
		}
	}
}

// Connect registers a new client session and queues the
// connection-established frame carrying its freshly minted client id,
// the server time and a reconnect token.
func (m *Manager) Connect(conn *websocket.Conn) *Client {
	c := &Client{
		ClientSession: models.NewClientSession(),
		conn:          conn,
		send:          make(chan []byte, 256),
		manager:       m,
		state:         StateConnecting,
	}
	c.reconnectToken = m.tokens.mint(c.ID)

	m.mu.Lock()
	c.state = StateConnected
	m.clients[c.ID] = c
	m.mu.Unlock()

	m.sendJSON(c, map[string]any{
		"type":            models.MessageConnected,
		"client_id":       c.ID,
		"server_time":     m.clock.Now(),
		"reconnect_token": c.reconnectToken,
	})
	return c
}

// Authenticate validates the identity token and binds the resolved
// user to the client for the rest of the session. On failure the
// connection stays un-authenticated, drops into the error state and
// no partial state is created; a retried Authenticate recovers it.
func (m *Manager) Authenticate(ctx context.Context, c *Client, token string, info models.UserInfo) (*models.Identity, error) {
	identity, err := m.verifier.Verify(ctx, token)
	if err != nil {
		m.setError(c)
		return nil, err
	}

	m.mu.Lock()
	c.state = StateConnected
	c.identity = identity
	c.UserID = identity.UserID
	c.UserName = identity.Name
	if info.Name != "" {
		c.UserName = info.Name
	}
	c.info = info
	c.info.ID = identity.UserID
	if c.info.Name == "" {
		c.info.Name = identity.Name
	}
	m.mu.Unlock()

	m.tokens.update(c.ID, func(rec *reconnectSession) {
		rec.UserID = identity.UserID
		rec.UserName = c.UserName
		rec.Info = c.info
	})
	return identity, nil
}

// JoinRoom adds the client to a canvas room: resolves the role,
// creates presence through the registry and returns the snapshot the
// caller uses to seed the client.
func (m *Manager) JoinRoom(ctx context.Context, c *Client, canvasID string) (*registry.CanvasSnapshot, error) {
	m.mu.RLock()
	state, identity, info := c.state, c.identity, c.info
	m.mu.RUnlock()

	if state != StateConnected {
		return nil, ErrNotConnected
	}
	if identity == nil {
		return nil, ErrNotAuthenticated
	}

	role, err := m.roles.Resolve(ctx, identity, canvasID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve role: %w", err)
	}

	m.registry.AddPresence(canvasID, identity.UserID, c.ID, info, role)

	m.mu.Lock()
	prev := c.canvasID
	m.leaveRoomLocked(c)
	if m.rooms[canvasID] == nil {
		m.rooms[canvasID] = make(map[*Client]bool)
	}
	m.rooms[canvasID][c] = true
	c.canvasID = canvasID
	c.role = role
	m.mu.Unlock()

	m.tokens.update(c.ID, func(rec *reconnectSession) {
		rec.CanvasID = canvasID
		rec.Role = role
	})

	// Joining while already in a room is an implicit switch: the old
	// room's clients need the leave too, or the avatar lingers there.
	if prev != "" && prev != canvasID {
		m.broadcastRoom(prev, map[string]any{
			"type":      models.MessageUserLeft,
			"canvas_id": prev,
			"user":      info,
		}, nil)
	}

	m.broadcastRoom(canvasID, map[string]any{
		"type":      models.MessageUserJoined,
		"canvas_id": canvasID,
		"user":      info,
		"role":      role,
	}, c)

	return m.registry.GetSnapshot(canvasID), nil
}

// LeaveRoom gracefully removes the client from its current room and
// invalidates its reconnect token's room membership.
func (m *Manager) LeaveRoom(c *Client) error {
	m.mu.Lock()
	canvasID := c.canvasID
	m.leaveRoomLocked(c)
	m.mu.Unlock()

	if canvasID == "" {
		return nil
	}

	m.registry.RemovePresence(canvasID, c.UserID, c.ID)
	m.tokens.update(c.ID, func(rec *reconnectSession) {
		rec.CanvasID = ""
	})

	m.broadcastRoom(canvasID, map[string]any{
		"type":      models.MessageUserLeft,
		"canvas_id": canvasID,
		"user":      c.info,
	}, nil)
	return nil
}

// leaveRoomLocked removes the client from the fan-out set only.
// Caller must hold m.mu.
func (m *Manager) leaveRoomLocked(c *Client) {
	if c.canvasID == "" {
		return
	}
	if room, ok := m.rooms[c.canvasID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(m.rooms, c.canvasID)
		}
	}
	c.canvasID = ""
}

// SwitchRoom moves the client between canvases: leave-then-join, with
// a brief deliberate window where the client is in neither roster.
func (m *Manager) SwitchRoom(ctx context.Context, c *Client, from, to string) (*registry.CanvasSnapshot, error) {
	m.mu.RLock()
	state, identity, info := c.state, c.identity, c.info
	if from == "" {
		from = c.canvasID
	}
	m.mu.RUnlock()

	if state != StateConnected {
		return nil, ErrNotConnected
	}
	if identity == nil {
		return nil, ErrNotAuthenticated
	}

	role, err := m.roles.Resolve(ctx, identity, to)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve role: %w", err)
	}

	m.registry.SwitchCanvas(identity.UserID, c.ID, from, to, info, role)

	m.mu.Lock()
	m.leaveRoomLocked(c)
	if m.rooms[to] == nil {
		m.rooms[to] = make(map[*Client]bool)
	}
	m.rooms[to][c] = true
	c.canvasID = to
	c.role = role
	m.mu.Unlock()

	m.tokens.update(c.ID, func(rec *reconnectSession) {
		rec.CanvasID = to
		rec.Role = role
	})

	if from != "" && from != to {
		m.broadcastRoom(from, map[string]any{
			"type":      models.MessageUserLeft,
			"canvas_id": from,
			"user":      info,
		}, nil)
	}
	m.broadcastRoom(to, map[string]any{
		"type":      models.MessageUserJoined,
		"canvas_id": to,
		"user":      info,
		"role":      role,
	}, c)

	return m.registry.GetSnapshot(to), nil
}

// Reconnect resumes a prior session onto the client's live
// connection using a single-use token: identity and room membership
// are restored without a fresh authenticate + join, and a new token
// is minted. An invalid, expired or membership-less token fails with
// ErrReconnectTokenInvalid and the client must fall back to the full
// connect + join sequence.
func (m *Manager) Reconnect(ctx context.Context, c *Client, token string) error {
	rec, err := m.tokens.redeem(token)
	if err != nil {
		m.setError(c)
		return err
	}
	if rec.UserID == "" || rec.CanvasID == "" {
		m.setError(c)
		return ErrReconnectTokenInvalid
	}

	m.mu.Lock()
	c.state = StateReconnecting
	c.identity = &models.Identity{UserID: rec.UserID, Name: rec.UserName}
	c.UserID = rec.UserID
	c.UserName = rec.UserName
	c.info = rec.Info
	c.role = rec.Role
	m.mu.Unlock()

	m.registry.AddPresence(rec.CanvasID, rec.UserID, c.ID, rec.Info, rec.Role)

	// Rotate: the redeemed token is gone, the session gets a fresh one.
	c.reconnectToken = m.tokens.mint(c.ID)
	m.tokens.update(c.ID, func(tok *reconnectSession) {
		tok.UserID = rec.UserID
		tok.UserName = rec.UserName
		tok.CanvasID = rec.CanvasID
		tok.Info = rec.Info
		tok.Role = rec.Role
	})

	m.mu.Lock()
	c.state = StateConnected
	m.leaveRoomLocked(c)
	if m.rooms[rec.CanvasID] == nil {
		m.rooms[rec.CanvasID] = make(map[*Client]bool)
	}
	m.rooms[rec.CanvasID][c] = true
	c.canvasID = rec.CanvasID
	m.mu.Unlock()

	m.broadcastRoom(rec.CanvasID, map[string]any{
		"type":      models.MessageUserJoined,
		"canvas_id": rec.CanvasID,
		"user":      rec.Info,
		"role":      rec.Role,
	}, c)

	log.Printf("🔄 Session %s resumed as %s (canvas %s)", rec.SessionID, c.ID, rec.CanvasID)
	return nil
}

// Disconnect is the full-disconnect path (transport closed without a
// graceful leave): presence is torn down in every canvas the user is
// in, but the reconnect token stays redeemable until its TTL.
func (m *Manager) Disconnect(c *Client) {
	m.mu.Lock()
	if c.closed {
		m.mu.Unlock()
		return
	}
	c.closed = true
	c.state = StateDisconnected
	delete(m.clients, c.ID)

	canvasID := c.canvasID
	m.leaveRoomLocked(c)
	close(c.send)
	m.mu.Unlock()

	if c.UserID != "" {
		affected := m.registry.CleanupUserState(c.UserID, c.ID)
		for _, id := range affected {
			m.broadcastRoom(id, map[string]any{
				"type":      models.MessageUserLeft,
				"canvas_id": id,
				"user":      c.info,
			}, nil)
		}
	} else if canvasID != "" {
		m.registry.RemovePresence(canvasID, c.UserID, c.ID)
	}
}

// Shutdown closes every connection and stops maintenance. Unlike a
// transport drop, this teardown is deliberate, so each session's
// reconnect token is revoked rather than left to expire.
func (m *Manager) Shutdown() {
	log.Println("🛑 Shutting down session manager...")
	m.stopOnce.Do(func() { close(m.done) })

	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	for _, c := range clients {
		m.tokens.invalidate(c.ID)
		if c.conn != nil {
			c.conn.Close()
		}
		m.Disconnect(c)
	}
	log.Println("✓ Session manager shutdown complete")
}

// ClientCount returns the number of live connections.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// setError parks the session in the error state after a failed
// authenticate or reconnect. A successful retry of either moves it
// back to connected; room operations are refused meanwhile.
func (m *Manager) setError(c *Client) {
	m.mu.Lock()
	c.state = StateError
	m.mu.Unlock()
}

// sendJSON queues one frame for a client, dropping it if the buffer
// is full rather than blocking the engine on a slow consumer.
func (m *Manager) sendJSON(c *Client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("⚠️  Failed to marshal frame for session %s: %v", c.ID, err)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("⚠️  Session %s buffer full, dropping frame", c.ID)
	}
}

// broadcastRoom fans a frame out to every client in a canvas room,
// optionally skipping the sender. Clients whose buffer is full are
// disconnected as slow/dead.
func (m *Manager) broadcastRoom(canvasID string, v any, sender *Client) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("⚠️  Failed to marshal broadcast for canvas %s: %v", canvasID, err)
		return
	}

	var slow []*Client
	m.mu.RLock()
	for c := range m.rooms[canvasID] {
		if sender != nil && c == sender {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range slow {
		log.Printf("⚠️  Session %s buffer full, closing connection", c.ID)
		if c.conn != nil {
			c.conn.Close()
		}
		m.Disconnect(c)
	}
}

// handleActivityEvent is the registry notifier: presence status
// decays (idle/away) and recoveries (active) are pushed to the room
// so clients can dim or re-light avatars.
func (m *Manager) handleActivityEvent(ev *models.ActivityEvent) {
	switch ev.Type {
	case models.ActivityIdle, models.ActivityAway, models.ActivityActive:
		m.broadcastRoom(ev.CanvasID, map[string]any{
			"type":      models.MessagePresence,
			"canvas_id": ev.CanvasID,
			"user_id":   ev.UserID,
			"status":    string(ev.Type),
		}, nil)
	}
}
