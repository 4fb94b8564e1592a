// Leaseflow - lease clause negotiation & chat backend
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/leaseflow/leaseflow/internal/api"
	"github.com/leaseflow/leaseflow/internal/chatlog"
	"github.com/leaseflow/leaseflow/internal/config"
	"github.com/leaseflow/leaseflow/internal/identity"
	"github.com/leaseflow/leaseflow/internal/middleware"
	"github.com/leaseflow/leaseflow/internal/negotiation"
	"github.com/leaseflow/leaseflow/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "chat_shards", cfg.ChatShards, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	contractChat, err := chatlog.New(repo.DB(), chatlog.Hash("contract_messages", cfg.ChatShards))
	if err != nil {
		slog.Error("Failed to initialize contract chat log", "error", err)
		os.Exit(1)
	}
	generalChat, err := chatlog.New(repo.DB(), chatlog.Constant("messages"))
	if err != nil {
		slog.Error("Failed to initialize general chat log", "error", err)
		os.Exit(1)
	}

	// Initialize services.
	engine := negotiation.NewEngine(repo, repo, repo, negotiation.LogNotifier{})
	projection := negotiation.NewProjection(repo)

	// Initialize handlers.
	negotiationHandler := api.NewNegotiationHandler(engine, projection, repo)
	chatHandler := api.NewChatHandler(contractChat, generalChat)
	healthHandler := api.NewHealthHandler(repo, cfg)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	corsOrigins := []string{"*"}
	if cfg.FrontendURL != "" {
		corsOrigins = []string{cfg.FrontendURL}
	}
	r.Use(middleware.CORS(corsOrigins))
	r.Use(identity.Middleware())

	// Public routes.
	healthHandler.RegisterHealth(r)

	negotiationHandler.RegisterRoutes(r)
	chatHandler.RegisterRoutes(r)

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
