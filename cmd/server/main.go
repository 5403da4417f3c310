/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave request engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize the zap logger
  3. Initialize SQLite store
  4. Wire the leave service (store doubles as attendance provider)
  5. Configure HTTP router
  6. Start server with graceful shutdown

CONFIGURATION:
  Flags override environment variables:
    -port      HTTP server port            (PORT, default 8080)
    -db        SQLite database path        (DATABASE_PATH, default leave.db)
               Use ":memory:" for an in-memory database
    -log-level debug|info|warn|error       (LOG_LEVEL, default info)
    -env       dev|prod                    (APP_ENV, default dev)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/logging"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "leave.db"), "SQLite database path")
	logLevel := flag.String("log-level", envStr("LOG_LEVEL", "info"), "log level")
	appEnv := flag.String("env", envStr("APP_ENV", "dev"), "environment (dev|prod)")
	flag.Parse()

	lg, err := logging.Init(*logLevel, *appEnv)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer lg.Closer()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		lg.Base.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// The store also serves attendance point snapshots.
	svc := leave.NewService(store, store, leave.WithLogger(lg.Base))

	handler := api.NewHandler(svc, lg.Base)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Base.Info("server starting",
			zap.Int("port", *port),
			zap.String("db", *dbPath),
			zap.String("env", *appEnv))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Base.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Base.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		lg.Base.Fatal("server forced to shutdown", zap.Error(err))
	}

	lg.Base.Info("server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}
