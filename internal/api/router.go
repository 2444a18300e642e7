package api

import (
	"net/http"
	"time"

	"drawboard/internal/middleware"

	"github.com/gorilla/mux"
)

// SetupRoutes wires the HTTP surface: the websocket collaboration
// endpoint plus a read-only REST view of live canvas state.
func SetupRoutes(handler *Handler) *mux.Router {
	router := mux.NewRouter()

	// Learning: middleware ordering matters. Recovery wraps tracing so
	// a panic inside a traced handler still produces a clean 500.
	router.Use(middleware.ErrorRecoveryMiddleware)
	router.Use(middleware.TracingMiddleware)
	router.Use(middleware.CORSMiddleware)

	router.HandleFunc("/ws", handler.HandleWebSocket)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", healthCheck).Methods("GET", "OPTIONS")
	api.HandleFunc("/stats", handler.GetStats).Methods("GET", "OPTIONS")

	canvases := api.PathPrefix("/canvases/{id}").Subrouter()
	canvases.HandleFunc("/objects", handler.GetObjects).Methods("GET", "OPTIONS")
	canvases.HandleFunc("/presence", handler.GetPresence).Methods("GET", "OPTIONS")
	canvases.HandleFunc("/cursors", handler.GetCursors).Methods("GET", "OPTIONS")
	canvases.HandleFunc("/activity", handler.GetActivity).Methods("GET", "OPTIONS")
	canvases.HandleFunc("/snapshot", handler.GetSnapshot).Methods("GET", "OPTIONS")
	canvases.HandleFunc("/archive", handler.GetArchive).Methods("GET", "OPTIONS")
	canvases.HandleFunc("/audit", handler.GetAuditTrail).Methods("GET", "OPTIONS")

	return router
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
