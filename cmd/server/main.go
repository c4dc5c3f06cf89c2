/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Ensure the bootstrap MANAGER account exists
  4. Wire services and the HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port            HTTP server port (default: 8080)
  -db              SQLite database path (default: attendance.db)
                   Use ":memory:" for an in-memory database
  -jwt-secret      HMAC secret for session tokens (required outside dev)
  -bootstrap-id    Bootstrap MANAGER account id (default: IT_ADMIN)
  -bootstrap-pass  Bootstrap MANAGER initial password (first boot only)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/core"
	"github.com/warp/attendance-engine/roster"
	"github.com/warp/attendance-engine/store/sqlite"
	"github.com/warp/attendance-engine/workflow"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "attendance.db", "SQLite database path")
	jwtSecret := flag.String("jwt-secret", "dev-only-secret", "HMAC secret for session tokens")
	bootstrapID := flag.String("bootstrap-id", "IT_ADMIN", "bootstrap MANAGER account id")
	bootstrapPass := flag.String("bootstrap-pass", "change-me", "bootstrap MANAGER initial password")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire services
	rosterSvc := roster.NewService(store)
	ledger := attendance.NewLedger(store)
	wf := workflow.NewService(store, ledger, store)

	// Self-heal the bootstrap MANAGER account
	if err := rosterSvc.EnsureBootstrap(context.Background(), core.UserID(*bootstrapID), *bootstrapPass); err != nil {
		log.Fatalf("Failed to ensure bootstrap account: %v", err)
	}

	// Create router
	handler := api.NewHandler(rosterSvc, ledger, wf, []byte(*jwtSecret))
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
