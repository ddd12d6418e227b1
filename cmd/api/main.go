package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reelworks/keepsake/internal/api"
	"github.com/reelworks/keepsake/internal/compositor"
	"github.com/reelworks/keepsake/internal/config"
	"github.com/reelworks/keepsake/internal/db"
	"github.com/reelworks/keepsake/internal/pipeline"
	"github.com/reelworks/keepsake/internal/queue"
	"github.com/reelworks/keepsake/internal/services"
	"github.com/reelworks/keepsake/internal/splitter"
	"github.com/reelworks/keepsake/internal/storage"
	"github.com/reelworks/keepsake/internal/worker"
)

func main() {
	log.Println("Starting Keepsake API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Initialize storage
	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	log.Println("Initialized Supabase storage")

	// Create API handler
	handler := api.NewHandler(database, q)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCtx context.Context
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		workflow := services.NewWorkflowClient(cfg.WorkflowAPIURL, cfg.WorkflowAPIKey)
		frames := splitter.New(stor)
		composer := compositor.New()

		// Optional storyboard prompt enhancement — nil means catalog prompts
		var enhancer pipeline.PromptEnhancer
		if cfg.OpenAIKey != "" {
			enhancer = services.NewPromptService(cfg.OpenAIKey)
			log.Println("Storyboard prompt enhancement enabled")
		}

		// Optional Veo clip backend — nil means the workflow service animates frames
		var clips pipeline.ClipGenerator
		if cfg.VeoClipsEnabled {
			clips = services.NewVeoService(cfg.GeminiKey, cfg.VeoModel)
			log.Printf("Veo clip generation enabled (model: %s)", cfg.VeoModel)
		}

		stages := pipeline.New(workflow, stor, frames, composer, enhancer, clips, pipeline.Config{
			StoryboardWorkflowID: cfg.StoryboardWorkflowID,
			VideoWorkflowID:      cfg.VideoWorkflowID,
			MusicDir:             cfg.MusicDir,
			TempDir:              cfg.TempDir,
		})
		orch := pipeline.NewOrchestrator(database, stages)

		w := worker.New(database, q, orch)

		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
