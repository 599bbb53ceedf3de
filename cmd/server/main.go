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

	"github.com/redis/go-redis/v9"

	"modelhub-backend/internal/config"
	"modelhub-backend/internal/database"
	"modelhub-backend/internal/handlers"
	"modelhub-backend/internal/repository"
	"modelhub-backend/internal/router"
	"modelhub-backend/internal/services"
	"modelhub-backend/internal/websocket"
)

func main() {
	log.Println("🚀 Starting Model Hub Assistant...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Load Catalog ────
	catalogRepo := repository.NewCatalogRepo(cfg.CatalogFile)
	catalog, err := catalogRepo.Load()
	if err != nil {
		log.Fatalf("✗ Catalog load failed: %v", err)
	}
	catalogState := services.NewCatalogState(catalog)
	log.Printf("Loaded %d models", catalogState.Total())

	// ──── Step 3: Optional Redis for event fan-out ────
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClient.Close()
		log.Println("✓ Redis connected")
	}
	wsHub := websocket.NewHub(redisClient)
	defer wsHub.Close()
	log.Println("✓ WebSocket hub started")

	// ──── Step 4: Initialize LLM Provider ────
	ctx := context.Background()
	provider, err := services.NewLLMProvider(ctx, cfg.LLMProvider, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	if err != nil {
		log.Fatalf("✗ LLM provider initialization failed: %v", err)
	}
	if closer, ok := provider.(interface{ Close() }); ok {
		defer closer.Close()
	}
	log.Printf("✓ LLM provider %s initialized (%s)", cfg.LLMProvider, cfg.LLMModel)

	// ──── Initialize Services ────
	hubClient := services.NewHubClient(cfg.HubAPIURL, cfg.HubTimeout)
	syncer := services.NewSyncer(hubClient, catalogRepo, catalogState, cfg.HubPageSize).WithEvents(wsHub)
	if tokens, err := services.NewTokenCounter(cfg.LLMModel); err != nil {
		log.Printf("Prompt token counting disabled: %v", err)
	} else {
		syncer.WithTokenCounter(tokens)
		log.Printf("System prompt: %d tokens", tokens.Count(catalogState.SystemPrompt()))
	}

	chatService := services.NewChatService(
		provider,
		catalogState,
		services.RetryPolicy{MaxAttempts: cfg.ChatMaxAttempts, Delay: cfg.ChatRetryDelay},
		services.CompletionOptions{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature},
	).WithTurnTimeout(cfg.ChatTimeout)

	// ──── Step 5: Start Sync Scheduler ────
	scheduler := services.NewScheduler(syncer, cfg.SyncSchedule).
		WithSessionSweep(chatService, cfg.SessionSweepSchedule, cfg.SessionTTL)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("✗ Scheduler start failed: %v", err)
	}
	log.Printf("Auto-sync every 24 hours (%s)", cfg.SyncSchedule)
	if cfg.SyncOnStart {
		syncer.Trigger()
	}

	// ──── Initialize Handlers ────
	chatHandler := handlers.NewChatHandler(chatService, catalogState)
	catalogHandler := handlers.NewCatalogHandler(catalogState, syncer)
	staticHandler := handlers.NewStaticHandler(cfg.StaticDir)

	// ──── Step 6: Start HTTP Server ────
	r := router.New(chatHandler, catalogHandler, staticHandler, wsHub, cfg.CORSOrigin)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
		// WriteTimeout outlasts CHAT_TIMEOUT so a timed-out turn still gets its error out.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ServerWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		scheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Model Hub Assistant ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
