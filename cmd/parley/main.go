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

	"github.com/gmarchetti/parley/internal/config"
	"github.com/gmarchetti/parley/internal/httpapi"
	"github.com/gmarchetti/parley/internal/observability"
	"github.com/gmarchetti/parley/internal/provider"
	"github.com/gmarchetti/parley/internal/relay"
	"github.com/gmarchetti/parley/internal/session"
	"github.com/gmarchetti/parley/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	st, err := store.NewStore(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer st.Close()

	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		log.Printf("store: postgres")
	case strings.TrimSpace(cfg.SQLitePath) != "":
		log.Printf("store: sqlite (%s)", cfg.SQLitePath)
	default:
		log.Printf("store: in-memory (set DATABASE_URL or SQLITE_PATH to persist)")
	}

	adapter, err := provider.NewAdapter(provider.Config{
		Mode:                cfg.ProviderMode,
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		CompletionModel:     cfg.CompletionModel,
		MaxCompletionTokens: cfg.MaxCompletionTokens,
		TTSModel:            cfg.TTSModel,
		TTSVoice:            cfg.TTSVoice,
		TTSFormat:           cfg.TTSFormat,
		STTModel:            cfg.STTModel,
	})
	if err != nil {
		log.Fatalf("provider adapter init failed: %v", err)
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.ProviderMode))
	if mode == "" || mode == "auto" {
		if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
			mode = "openai"
		} else {
			mode = "mock"
		}
	}
	if mode == "openai" {
		log.Printf("provider: openai (model %s)", cfg.CompletionModel)
	} else {
		log.Printf("provider: mock (no OPENAI_API_KEY set)")
	}

	sessions := session.NewManager()
	rl := relay.New(st, adapter, metrics, cfg.HistoryLimit, cfg.CompletionTimeout)

	api := httpapi.New(cfg, sessions, rl, st, adapter, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
