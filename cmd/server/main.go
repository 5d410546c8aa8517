package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/contact-manager/internal/api"
	"github.com/ignite/contact-manager/internal/config"
	"github.com/ignite/contact-manager/internal/pkg/logger"
	"github.com/ignite/contact-manager/internal/repository/dynamo"
	"github.com/ignite/contact-manager/internal/repository/memory"
	"github.com/ignite/contact-manager/internal/repository/postgres"
	"github.com/ignite/contact-manager/internal/service/contact"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

// buildRepository constructs the contact repository named by storage.type.
func buildRepository(ctx context.Context, cfg config.StorageConfig) (contact.Repository, error) {
	switch cfg.Type {
	case "dynamo":
		repo, err := dynamo.NewContactRepo(ctx, cfg.DynamoDBTable, cfg.AWSRegion, cfg.GetAWSProfile())
		if err != nil {
			return nil, fmt.Errorf("initializing dynamo repository: %w", err)
		}
		log.Printf("Storage: DynamoDB table %q (region %s)", cfg.DynamoDBTable, cfg.AWSRegion)
		return repo, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		repo := postgres.NewContactRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensuring postgres schema: %w", err)
		}
		log.Println("Storage: PostgreSQL")
		return repo, nil

	case "memory":
		log.Println("Storage: in-memory (data is lost on restart)")
		return memory.NewContactRepo(), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q (want dynamo, postgres, or memory)", cfg.Type)
	}
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if cfg.Log.RedactPII != nil {
		logger.SetRedactPII(*cfg.Log.RedactPII)
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	ctx := context.Background()
	repo, err := buildRepository(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	svc := contact.NewService(repo)

	var limiter *api.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter, err = api.NewRateLimiterFromURL(cfg.RateLimit.RedisURL, cfg.RateLimit.RequestsPerMinute)
		if err != nil {
			// The limiter is an optional guard, not a dependency.
			log.Printf("Rate limiter unavailable, continuing without it: %v", err)
			limiter = nil
		} else {
			defer limiter.Close()
			log.Printf("Rate limiting enabled: %d requests/minute per client", cfg.RateLimit.RequestsPerMinute)
		}
	}

	server := api.NewServer(cfg.Server, svc, limiter)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("Starting contacts API on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
