package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/launchlist/internal/api"
	"github.com/ignite/launchlist/internal/auth"
	"github.com/ignite/launchlist/internal/config"
	"github.com/ignite/launchlist/internal/mailer"
	"github.com/ignite/launchlist/internal/store"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Subscriber store (one client for the process lifetime)
	subscriberStore, err := store.New(ctx, store.Config{
		Type:      cfg.Storage.Type,
		TableName: cfg.Storage.DynamoDBTable,
		Region:    cfg.Storage.AWSRegion,
		Profile:   cfg.Storage.GetAWSProfile(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize subscriber store: %v", err)
	}
	log.Printf("Subscriber store initialized (type=%s)", cfg.Storage.Type)

	// Confirmation mailer, only when dispatch is configured
	var confirmationMailer mailer.Mailer
	if cfg.Mailer.Enabled {
		m, err := mailer.NewSESMailer(ctx, cfg.Mailer.AccessKey, cfg.Mailer.SecretKey, cfg.Mailer.Region, cfg.Mailer.FromEmail)
		if err != nil {
			log.Fatalf("Failed to initialize SES mailer: %v", err)
		}
		confirmationMailer = m
		log.Printf("SES mailer initialized (region=%s)", cfg.Mailer.Region)
	} else {
		log.Println("Notification dispatch disabled")
	}

	// Authorization gate
	var verifier *auth.Verifier
	if cfg.Auth.Enabled {
		verifier = auth.NewVerifier(cfg.Auth)
		log.Printf("Authorization gate enforced (issuer=%s)", cfg.Auth.Issuer)
	} else {
		log.Println("Authorization gate absent - all requests pass through")
	}

	// Redis-backed rate limiter
	var limiter *api.RateLimiter
	var redisClient *redis.Client
	if cfg.RateLimit.Enabled && cfg.RateLimit.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: Redis unreachable at %s, rate limiting disabled: %v", cfg.RateLimit.RedisAddr, err)
			redisClient.Close()
			redisClient = nil
		} else {
			limiter = api.NewRateLimiter(redisClient, cfg.RateLimit.PerMinute, cfg.RateLimit.Window())
			log.Printf("Rate limiter enabled (%d per %s)", cfg.RateLimit.PerMinute, cfg.RateLimit.Window())
		}
		pingCancel()
	}

	handlers := api.NewHandlers(subscriberStore, confirmationMailer, cfg)
	router := api.SetupRoutes(handlers, verifier, limiter, cfg.Server.AllowedOrigins)
	server := api.NewServer(router)

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}

	log.Println("Server stopped")
}
