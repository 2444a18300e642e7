package registry

import (
	"errors"
	"sync"
	"time"

	"drawboard/internal/models"
)

/*
LEARNING: PER-CANVAS STATE ISOLATION

The registry owns one fully isolated state bundle per canvas id:
objects, cursors, presence, activity log, timers. Nothing outside this
package ever touches a bundle directly - the session layer only calls
registry operations. That ownership rule is what makes a single mutex
sufficient: all mutations are serialized through it, and an operation
on canvas A can never observe canvas B's data.
*/

// ErrObjectNotFound is returned by mutations that require an existing
// target object. Idempotent removals return nil instead.
var ErrObjectNotFound = errors.New("object not found")

// Config carries the registry's named thresholds.
type Config struct {
	IdleTimeout          time.Duration // active → idle after this much inactivity
	AwayTimeout          time.Duration // idle → away once total inactivity reaches this
	SweepInterval        time.Duration // how often empty canvases are scanned
	CanvasRetention      time.Duration // empty-canvas age before eviction
	CursorThrottleWindow time.Duration // min gap between cursor_move log events
	CursorThrottleSweep  time.Duration // throttle-entry age before discard
	ActivityLogCap       int           // bounded activity log length per canvas
	PersistWorkers       int
	PersistQueueSize     int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:          2 * time.Minute,
		AwayTimeout:          5 * time.Minute,
		SweepInterval:        10 * time.Minute,
		CanvasRetention:      30 * time.Minute,
		CursorThrottleWindow: 5 * time.Second,
		CursorThrottleSweep:  10 * time.Minute,
		ActivityLogCap:       100,
		PersistWorkers:       2,
		PersistQueueSize:     256,
	}
}

// canvasState is one canvas's isolated runtime bundle. Created lazily
// on first touch, destroyed only by the sweep.
type canvasState struct {
	objects  map[string]*models.CanvasObject
	cursors  map[string]*models.CursorState
	presence map[string]*models.PresenceEntry
	activity []*models.ActivityEvent
	timers   map[string]Timer // userID → pending idle/away timer

	version      uint64
	lastActivity time.Time
}

func newCanvasState(now time.Time) *canvasState {
	return &canvasState{
		objects:      make(map[string]*models.CanvasObject),
		cursors:      make(map[string]*models.CursorState),
		presence:     make(map[string]*models.PresenceEntry),
		timers:       make(map[string]Timer),
		lastActivity: now,
	}
}

// Registry routes all per-canvas operations and owns the
// registry-wide identity indexes. Construct one per process with New
// and inject it where needed - there is no package-level instance.
type Registry struct {
	mu       sync.Mutex
	canvases map[string]*canvasState

	// Identity indexes (registry-wide, not per canvas).
	// A client is in at most one canvas; a user may span several
	// through multiple clients, refcounted per canvas.
	clientCanvas map[string]string
	userCanvases map[string]map[string]int

	// Last time a cursor_move event was logged per (canvas, user).
	cursorLogAt map[string]time.Time

	store ObjectStore
	audit AuditLog
	clock Clock
	cfg   Config

	dispatcher *dispatcher
	notify     func(*models.ActivityEvent)

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a registry. Either collaborator may be nil, in which
// case the corresponding writes are skipped (useful in tests).
func New(store ObjectStore, audit AuditLog, clock Clock, cfg Config) *Registry {
	if clock == nil {
		clock = SystemClock()
	}
	if cfg.ActivityLogCap <= 0 {
		cfg.ActivityLogCap = DefaultConfig().ActivityLogCap
	}
	r := &Registry{
		canvases:     make(map[string]*canvasState),
		clientCanvas: make(map[string]string),
		userCanvases: make(map[string]map[string]int),
		cursorLogAt:  make(map[string]time.Time),
		store:        store,
		audit:        audit,
		clock:        clock,
		cfg:          cfg,
		done:         make(chan struct{}),
	}
	r.dispatcher = newDispatcher(store, audit, cfg.PersistWorkers, cfg.PersistQueueSize)
	return r
}

// SetNotifier installs a callback invoked (outside the registry lock)
// for every appended activity event. The session layer uses this to
// broadcast presence status changes.
func (r *Registry) SetNotifier(fn func(*models.ActivityEvent)) {
	r.notify = fn
}

// Start launches the persistence dispatcher and the sweep loop.
func (r *Registry) Start() {
	r.dispatcher.Start()
	go r.sweepLoop()
}

// Shutdown stops the sweep loop, cancels all pending presence timers
// and drains the dispatcher.
func (r *Registry) Shutdown() {
	r.stopOnce.Do(func() { close(r.done) })

	r.mu.Lock()
	for _, cs := range r.canvases {
		for userID, t := range cs.timers {
			t.Stop()
			delete(cs.timers, userID)
		}
	}
	r.mu.Unlock()

	r.dispatcher.Shutdown()
}

// getOrCreateLocked returns the canvas bundle, creating it lazily on
// first touch. Caller must hold r.mu.
func (r *Registry) getOrCreateLocked(canvasID string) *canvasState {
	cs, ok := r.canvases[canvasID]
	if !ok {
		cs = newCanvasState(r.clock.Now())
		r.canvases[canvasID] = cs
	}
	return cs
}

// publish forwards events to the notifier and the audit collaborator.
// Must be called after r.mu is released: the notifier may call back
// into the registry.
func (r *Registry) publish(events ...*models.ActivityEvent) {
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if ev.Audited() {
			r.dispatcher.submitAudit(ev)
		}
		if r.notify != nil {
			r.notify(ev)
		}
	}
}

// Stats is the aggregate service view exposed by the query API.
type Stats struct {
	ActiveCanvases int `json:"active_canvases"`
	TotalObjects   int `json:"total_objects"`
	ActiveUsers    int `json:"active_users"`
	ActiveClients  int `json:"active_clients"`
}

// GetStats returns aggregate counts across all canvases.
func (r *Registry) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		ActiveCanvases: len(r.canvases),
		ActiveUsers:    len(r.userCanvases),
		ActiveClients:  len(r.clientCanvas),
	}
	for _, cs := range r.canvases {
		s.TotalObjects += len(cs.objects)
	}
	return s
}
