package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duynm98/daily-story/internal/api"
	"github.com/duynm98/daily-story/internal/config"
	"github.com/duynm98/daily-story/internal/pipeline"
	"github.com/duynm98/daily-story/internal/queue"
	"github.com/duynm98/daily-story/internal/services"
	"github.com/duynm98/daily-story/internal/tasks"
	"github.com/duynm98/daily-story/internal/video"
	"github.com/duynm98/daily-story/internal/worker"
)

func main() {
	log.Println("Starting Daily Story API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to Redis (queue broker + result backend)
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	store := tasks.NewStore(q)

	// Create API handler
	handler := api.NewHandler(store)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCtx context.Context
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		// Text generation provider
		var completer services.Completer
		switch cfg.LLMProvider {
		case "gemini":
			completer = services.NewGeminiService(cfg.GeminiKey)
			log.Println("Text provider: Gemini")
		default:
			completer = services.NewOpenAIService(cfg.OpenAIKey, cfg.Temperature)
			log.Println("Text provider: OpenAI")
		}

		language := "English"
		if cfg.Language == "vietnamese" {
			language = "Vietnamese"
		}
		textSvc := services.NewTextGenerator(completer, language, cfg.MaxStoryWords)
		imageSvc := services.NewPexelsService(cfg.PexelsKey)
		speechSvc := services.NewEdgeTTSService()
		notifier := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramChatID)

		orchestrator := pipeline.NewOrchestrator(
			textSvc,
			imageSvc,
			speechSvc,
			notifier,
			video.NewRenderer(),
			video.NewAssembler(),
			video.NewCompositor(),
			pipeline.Options{
				OutputDir:        cfg.OutputDir,
				Language:         cfg.Language,
				VoiceRate:        cfg.VoiceRate,
				CleanupOnSuccess: cfg.CleanupOnSuccess,
				CleanupOnFailure: cfg.CleanupOnFailure,
			},
		)

		w := worker.New(q, orchestrator, cfg.MaxConcurrentJobs)

		workerCtx, workerCancel = context.WithCancel(context.Background())
		go func() {
			if err := w.Start(workerCtx); err != nil && err != context.Canceled {
				log.Printf("Worker stopped: %v", err)
			}
		}()
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

	if workerCancel != nil {
		workerCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
