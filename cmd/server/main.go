package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"diagram-assistant/internal/api"
	"diagram-assistant/internal/assistant"
	"diagram-assistant/internal/config"
	"diagram-assistant/internal/db"
	"diagram-assistant/internal/orchestrator"
	"diagram-assistant/internal/tools"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if cfg == nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err != nil {
		log.Printf("Warning: Failed to load OpenAI config: %v (assistant requests will fail)", err)
	}

	// Ensure data directory exists for file-backed diagrams
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	// Initialize diagram store
	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Printf("Diagram store ready path=%s", cfg.DBPath)

	// Build the tool registry; a definition without handler or schema stops startup
	executor, err := tools.NewExecutor(database)
	if err != nil {
		log.Fatalf("Failed to build tool registry: %v", err)
	}
	log.Printf("Tool registry ready tools=%d", len(executor.Definitions()))

	assistantClient := assistant.NewClient(cfg.OpenAI.APIKey,
		assistant.WithModel(cfg.Assistant.Model),
		assistant.WithBaseURL(cfg.OpenAI.BaseURL),
		assistant.WithRateLimit(cfg.Assistant.RequestsPerSecond, cfg.Assistant.Burst),
	)
	log.Printf("OpenAI client initialized model=%s", cfg.Assistant.Model)

	manager := orchestrator.NewManager(assistantClient, executor, orchestrator.Options{
		Name:             cfg.Assistant.Name,
		Tools:            orchestrator.Declarations(executor.Definitions()),
		PollInterval:     cfg.Assistant.PollInterval,
		Timeout:          cfg.Assistant.Timeout,
		RateLimitBackoff: cfg.Assistant.RateLimitBackoff,
		FallbackReply:    cfg.Assistant.FallbackReply,
	})
	log.Printf("Session manager initialized poll_interval=%v timeout=%v",
		cfg.Assistant.PollInterval, cfg.Assistant.Timeout)

	router := api.NewRouter(manager, database, cfg.Assistant.FallbackReply)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Handle graceful shutdown
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Terminate sessions first so pending requests reply and remote threads are removed
		if err := manager.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down sessions: %v", err)
		}
		router.WaitInflight()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		close(done)
	}()

	log.Printf("Server starting on port %s", cfg.Port)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed to start: %v", err)
	}

	<-done
	log.Println("Server stopped gracefully")
}
