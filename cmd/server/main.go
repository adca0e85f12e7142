package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"carassist-backend/internal/api"
	"carassist-backend/internal/config"
	"carassist-backend/internal/handlers"
	"carassist-backend/internal/llm"
	"carassist-backend/internal/ratelimit"
	"carassist-backend/internal/services"
	"carassist-backend/internal/store/postgres"
)

func main() {
	log.Println("Starting CarAssist Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize Database Connection Pool
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(dbCtx); err != nil {
		log.Fatalf("FATAL: Unable to ping database: %v\n", err)
	}
	log.Println("Database connection pool established and pinged successfully.")

	// 3. Initialize Dependencies (Store, Provider, Services, Handlers)
	pgStore := postgres.NewPostgresStore(dbpool)
	log.Println("Postgres store initialized.")

	provider := llm.NewOpenAIProvider(llm.ProviderConfig{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		Model:          cfg.OpenAIModel,
		RequestTimeout: cfg.LLMRequestTimeout,
		MaxAttempts:    cfg.LLMMaxAttempts,
		InitialDelay:   cfg.LLMInitialDelay,
	})
	log.Println("LLM provider initialized.")

	limiter := ratelimit.New(cfg.RateLimitPerMinute)

	authService := services.NewAuthService(pgStore, cfg)
	chatService := services.NewChatService(pgStore)
	carService := services.NewCarService(pgStore)
	llmService := services.NewLLMService(provider, cfg)
	searchService := services.NewCarSearchService(pgStore)
	messageService := services.NewMessageService(pgStore, llmService, searchService, limiter, cfg)
	log.Println("Services initialized.")

	authHandler := handlers.NewAuthHandler(authService)
	chatHandler := handlers.NewChatHandlers(chatService)
	carHandler := handlers.NewCarHandlers(carService)
	messageHandler := handlers.NewMessageHandlers(messageService, cfg)
	log.Println("Handlers initialized.")

	// 4. Setup Router & Inject Dependencies
	router := api.NewRouter(api.RouterDependencies{
		AuthHandler:    authHandler,
		ChatHandler:    chatHandler,
		CarHandler:     carHandler,
		MessageHandler: messageHandler,
		Config:         cfg,
	})
	log.Println("HTTP router configured.")

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// No WriteTimeout: SSE streams stay open longer than any fixed
		// write deadline; the stream handler enforces its own limit.
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to listen for OS signals for graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
	}

	log.Println("Server shutdown complete.")
}
