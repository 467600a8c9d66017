package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/saldin/whatsapp-gateway/internal/api/handlers"
	"github.com/saldin/whatsapp-gateway/internal/api/middleware"
	"github.com/saldin/whatsapp-gateway/internal/bot"
	"github.com/saldin/whatsapp-gateway/internal/config"
	"github.com/saldin/whatsapp-gateway/internal/finance"
	"github.com/saldin/whatsapp-gateway/internal/intent"
	"github.com/saldin/whatsapp-gateway/internal/logger"
	"github.com/saldin/whatsapp-gateway/internal/mediastore"
	"github.com/saldin/whatsapp-gateway/internal/storage/postgres"
	"github.com/saldin/whatsapp-gateway/internal/whatsapp"
)

func main() {
	// Initialize logger
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if cfg.MediaBucket == "" {
		log.Warn().Msg("No media bucket configured - inbound media will not be archived")
	}

	// Open the database connection pool
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to reach database")
	}
	cancel()

	store := postgres.New(db)

	// Wire the message pipeline
	fin := finance.NewService(store, store, store, log)
	flow := bot.NewEditFlow(store, fin, cfg.EditSessionTTL, log)
	extractor := intent.NewGeminiExtractor(cfg.GeminiModel)
	client := whatsapp.NewClient(cfg.MetaToken, cfg.PhoneNumberID, cfg.GraphBaseURL, log)
	archive := mediastore.New(cfg.MediaBucket)

	processor := bot.NewProcessor(
		store,
		fin,
		flow,
		client,
		extractor,
		extractor,
		extractor,
		client,
		archive,
		cfg.StatementLimit,
		log,
	)

	webhookHandler := handlers.NewWebhookHandler(cfg.VerifyToken, store, processor, client, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			webhookHandler.Verify(w, r)
		case http.MethodPost:
			webhookHandler.Receive(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(mux),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting webhook server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
