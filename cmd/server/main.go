package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drawboard/internal/api"
	"drawboard/internal/auth"
	"drawboard/internal/config"
	"drawboard/internal/db"
	"drawboard/internal/registry"
	"drawboard/internal/repository"
	"drawboard/internal/session"
	"drawboard/internal/telemetry"
)

/*
LEARNING: GRACEFUL SHUTDOWN PATTERN WITH OBSERVABILITY

This main function demonstrates:
1. Service initialization and dependency injection
2. Concurrent server and background worker management
3. Distributed tracing with Jaeger
4. Graceful shutdown handling (listening for SIGINT/SIGTERM)
5. Proper resource cleanup order
*/

func main() {
	log.Println("🚀 Starting Drawboard collaboration server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Initialize Jaeger tracing
	// Learning: Do this FIRST so all operations are traced
	jaegerShutdown, err := telemetry.InitJaeger("drawboard", cfg.JaegerEndpoint)
	if err != nil {
		log.Printf("⚠️  Failed to initialize Jaeger: %v (continuing without tracing)", err)
		jaegerShutdown = func(ctx context.Context) error { return nil }
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jaegerShutdown(ctx); err != nil {
			log.Printf("⚠️  Failed to shutdown Jaeger: %v", err)
		}
	}()

	// Initialize GORM database
	database, err := db.NewGorm(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Initialize repositories
	objectRepo := repository.NewObjectRepository(database.DB)
	auditRepo := repository.NewAuditRepository(database.DB)

	// Initialize the canvas registry with its persistence dispatcher
	// Learning: this creates the worker pool but doesn't start it yet
	reg := registry.New(objectRepo, auditRepo, registry.SystemClock(), registry.Config{
		IdleTimeout:          cfg.IdleTimeout,
		AwayTimeout:          cfg.AwayTimeout,
		SweepInterval:        cfg.SweepInterval,
		CanvasRetention:      cfg.CanvasRetention,
		CursorThrottleWindow: cfg.CursorThrottleWindow,
		CursorThrottleSweep:  cfg.CursorThrottleSweep,
		ActivityLogCap:       cfg.ActivityLogCap,
		PersistWorkers:       cfg.PersistWorkers,
		PersistQueueSize:     cfg.PersistQueueSize,
	})

	// Start the persistence workers and the sweep loop
	reg.Start()

	// Initialize the WebSocket session manager
	verifier := auth.NewVerifier(cfg.AuthSecret)
	roles := auth.NewClaimsRoleResolver()
	sessionManager := session.NewManager(reg, verifier, roles, registry.SystemClock(), session.Config{
		HeartbeatInterval: cfg.HeartbeatInterval,
		HeartbeatTimeout:  cfg.HeartbeatTimeout,
		ReconnectTokenTTL: cfg.ReconnectTokenTTL,
	})
	sessionManager.Start()

	// Initialize handlers with dependency injection
	handler := api.NewHandler(reg, sessionManager, objectRepo, auditRepo)

	// Setup routes
	router := api.SetupRoutes(handler)

	// Configure HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	// Learning: This allows us to handle shutdown signals concurrently
	go func() {
		log.Printf("🌐 Server listening on http://%s", addr)
		log.Printf("📚 Endpoints:")
		log.Printf("   WS     /ws                             - Collaboration socket")
		log.Printf("   GET    /api/stats                      - Engine statistics")
		log.Printf("   GET    /api/canvases/:id/objects       - List canvas objects")
		log.Printf("   GET    /api/canvases/:id/presence      - Live roster")
		log.Printf("   GET    /api/canvases/:id/cursors       - Live cursors")
		log.Printf("   GET    /api/canvases/:id/activity      - Recent activity")
		log.Printf("   GET    /api/canvases/:id/snapshot      - Full canvas snapshot")
		log.Printf("   GET    /api/canvases/:id/archive       - Persisted objects")
		log.Printf("   GET    /api/canvases/:id/audit         - Durable audit trail")
		log.Println()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n🛑 Shutting down server...")

	// Shutdown HTTP server with timeout
	// Learning: Give the server 30 seconds to finish existing requests
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	// Shutdown WebSocket session manager
	// Learning: This closes all active WebSocket connections gracefully
	sessionManager.Shutdown()

	// Shutdown the registry last so in-flight mutations still drain
	// through the persistence workers
	reg.Shutdown()

	log.Println("✓ Server shutdown complete")
}
