package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/CatiaMachado997/EthicompanionV2/internal/agent"
	"github.com/CatiaMachado997/EthicompanionV2/internal/config"
	"github.com/CatiaMachado997/EthicompanionV2/internal/httpapi"
	"github.com/CatiaMachado997/EthicompanionV2/internal/llm"
	"github.com/CatiaMachado997/EthicompanionV2/internal/memory"
	"github.com/CatiaMachado997/EthicompanionV2/internal/observability"
	"github.com/CatiaMachado997/EthicompanionV2/internal/session"
	"github.com/CatiaMachado997/EthicompanionV2/internal/voice"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("dotenv: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	episodic, err := memory.NewEpisodicStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("episodic store init failed: %v", err)
	}

	db, err := memory.OpenSharedDB(cfg.MemoryPath)
	if err != nil {
		log.Fatalf("vector db init failed: %v", err)
	}
	semantic, err := memory.NewChromemStore(db, memory.NewEmbedder(cfg.OpenAIAPIKey), float32(cfg.MinSimilarity))
	if err != nil {
		log.Fatalf("semantic store init failed: %v", err)
	}
	if err := semantic.EnsureSchema(ctx); err != nil {
		log.Fatalf("semantic schema init failed: %v", err)
	}

	manager := memory.NewManager(episodic, semantic, metrics, memory.Options{
		StoreTimeout:    cfg.StoreTimeout,
		SemanticRetries: cfg.SemanticRetries,
	})
	defer manager.Close()

	var responder agent.Responder
	if strings.TrimSpace(cfg.AnthropicAPIKey) != "" {
		claude, err := llm.NewClaude(llm.Config{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.AnthropicModel,
			MaxTokens: int64(cfg.MaxTokens),
		}, agent.MockSearcher{})
		if err != nil {
			log.Fatalf("llm init failed: %v", err)
		}
		responder = claude
		log.Printf("responder: anthropic (%s)", cfg.AnthropicModel)
	} else {
		responder = agent.NewMockResponder()
		log.Printf("responder: mock (ANTHROPIC_API_KEY not set)")
	}

	chatAgent := agent.New(manager, responder, agent.Options{
		RecentLimit:   cfg.RecentLimit,
		SemanticLimit: cfg.SemanticLimit,
	})

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	api := httpapi.New(cfg, sessions, chatAgent, manager, voice.NewMockTranscriber(), metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 30*time.Second)
	manager.StartJanitor(runCtx, cfg.CleanupInterval, cfg.Retention)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
