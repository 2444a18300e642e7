package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"drawboard/internal/models"
	"drawboard/internal/registry"
	"drawboard/internal/session"

	"github.com/gorilla/mux"
)

// ObjectArchive is the durable view of canvas objects. Unlike the
// live registry it survives sweep eviction and process restarts.
type ObjectArchive interface {
	ListObjects(ctx context.Context, canvasID string) ([]*models.CanvasObject, error)
}

// AuditTrail is the durable activity record.
type AuditTrail interface {
	ListByCanvas(ctx context.Context, canvasID string, limit int) ([]*models.AuditRecord, error)
}

// Handler exposes the engine's query surface over HTTP. All live
// state reads go through registry operations, which return deep
// copies, so handlers never alias engine state.
type Handler struct {
	registry *registry.Registry
	sessions *session.Manager
	archive  ObjectArchive
	audit    AuditTrail
}

func NewHandler(reg *registry.Registry, sessions *session.Manager, archive ObjectArchive, audit AuditTrail) *Handler {
	return &Handler{
		registry: reg,
		sessions: sessions,
		archive:  archive,
		audit:    audit,
	}
}

// GetStats returns aggregate service statistics.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.registry.GetStats()

	writeJSON(w, http.StatusOK, map[string]any{
		"canvases":    stats.ActiveCanvases,
		"objects":     stats.TotalObjects,
		"users":       stats.ActiveUsers,
		"clients":     stats.ActiveClients,
		"connections": h.sessions.ClientCount(),
	})
}

// GetObjects lists a canvas's objects. Unknown canvas returns an
// empty list, not 404.
func (h *Handler) GetObjects(w http.ResponseWriter, r *http.Request) {
	canvasID := mux.Vars(r)["id"]

	writeJSON(w, http.StatusOK, map[string]any{
		"canvas_id": canvasID,
		"objects":   h.registry.GetObjects(canvasID),
	})
}

// GetPresence lists a canvas's live roster.
func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	canvasID := mux.Vars(r)["id"]

	writeJSON(w, http.StatusOK, map[string]any{
		"canvas_id": canvasID,
		"presence":  h.registry.ListPresence(canvasID),
	})
}

// GetCursors lists a canvas's live cursors.
func (h *Handler) GetCursors(w http.ResponseWriter, r *http.Request) {
	canvasID := mux.Vars(r)["id"]

	writeJSON(w, http.StatusOK, map[string]any{
		"canvas_id": canvasID,
		"cursors":   h.registry.ListCursors(canvasID),
	})
}

// GetActivity lists a canvas's recent activity, oldest first.
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	canvasID := mux.Vars(r)["id"]

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"canvas_id": canvasID,
		"activity":  h.registry.RecentActivity(canvasID, limit),
	})
}

// GetArchive lists the persisted objects for a canvas, including
// canvases already evicted from memory.
func (h *Handler) GetArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}
	canvasID := mux.Vars(r)["id"]

	objects, err := h.archive.ListObjects(r.Context(), canvasID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"canvas_id": canvasID,
		"objects":   objects,
	})
}

// GetAuditTrail lists the durable audit records, newest first.
func (h *Handler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "audit trail is not configured")
		return
	}
	canvasID := mux.Vars(r)["id"]

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	records, err := h.audit.ListByCanvas(r.Context(), canvasID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"canvas_id": canvasID,
		"audit":     records,
	})
}

// GetSnapshot returns the full deep-copied canvas state.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	canvasID := mux.Vars(r)["id"]

	writeJSON(w, http.StatusOK, h.registry.GetSnapshot(canvasID))
}

// HandleWebSocket is the collaboration socket endpoint.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.sessions.ServeWS(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
