package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmercer/gamemaster/internal/config"
	"github.com/jmercer/gamemaster/internal/gm"
	"github.com/jmercer/gamemaster/internal/handlers"
	"github.com/jmercer/gamemaster/internal/logger"
	"github.com/jmercer/gamemaster/internal/middleware"
	"github.com/jmercer/gamemaster/internal/services"
	"github.com/jmercer/gamemaster/internal/session"
	"github.com/jmercer/gamemaster/internal/storage"
	"github.com/jmercer/gamemaster/pkg/entity"
	"github.com/jmercer/gamemaster/pkg/knowledge"
	"github.com/jmercer/gamemaster/pkg/state"
	"github.com/jmercer/gamemaster/pkg/tools"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	log.Info("Starting Game Master API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	var llmService services.LLMService
	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Error("Anthropic API key is required when using anthropic provider")
			os.Exit(1)
		}
		llmService = services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, log)
		log.Info("Using Anthropic LLM provider")
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Error("OpenAI API key is required when using openai provider")
			os.Exit(1)
		}
		llmService = services.NewOpenAIService(cfg.OpenAIAPIKey, cfg.ModelName, log)
		log.Info("Using OpenAI LLM provider")
	default:
		log.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider, "supported", []string{"anthropic", "openai"})
		os.Exit(1)
	}

	store, err := storage.NewRedisStorage(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to configure storage", "error", err)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := llmService.InitModel(ctx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}

	factory := func(playerID string) (*gm.GameMaster, error) {
		world := entity.NewMemoryStore(log)
		loaded, skipped, err := world.LoadDirs(cfg.DataDirs)
		if err != nil {
			return nil, fmt.Errorf("failed to load world data: %w", err)
		}
		log.Info("World data loaded", "player_id", playerID, "loaded", loaded, "skipped", len(skipped))
		for _, diag := range skipped {
			log.Warn("Skipped world record", "diagnostic", diag.String())
		}

		player, err := world.Get(playerID)
		if err != nil {
			return nil, fmt.Errorf("player %q not found in world data: %w", playerID, err)
		}

		gs := state.NewGameState(world, playerID, player.LocationID())
		return gm.New(world, knowledge.NewLedger(), gs, llmService,
			tools.NewDefaultRegistry(), log,
			gm.WithMaxToolCalls(cfg.MaxToolCalls),
			gm.WithResolver(tools.NewResolver(cfg.ResolveThreshold)),
		), nil
	}
	sessions := session.NewManager(factory, log)

	mux := http.NewServeMux()
	mux.Handle("/health", handlers.NewHealthHandler(store, llmService, log))
	mux.Handle("/v1/turn", handlers.NewTurnHandler(sessions, store, log))
	mux.Handle("/v1/history/", handlers.NewHistoryHandler(store, log))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(mux),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server stopped")
}
