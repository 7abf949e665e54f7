// Command datalyst runs the AI data-analyst HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/smallnest/datalyst/agent"
	"github.com/smallnest/datalyst/config"
	"github.com/smallnest/datalyst/llm"
	"github.com/smallnest/datalyst/log"
	"github.com/smallnest/datalyst/server"
	"github.com/smallnest/datalyst/session"
	"github.com/smallnest/datalyst/session/memory"
	"github.com/smallnest/datalyst/session/postgres"
	"github.com/smallnest/datalyst/session/redis"
	"github.com/smallnest/datalyst/session/sqlite"
)

func main() {
	envFile := flag.String("env", ".env", "path to the .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Error("configuration error: %v", err)
		os.Exit(1)
	}
	log.SetDefaultLogger(log.NewServiceLogger(log.ParseLevel(cfg.LogLevel)))

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		log.Error("failed to set up history store: %v", err)
		os.Exit(1)
	}
	defer closeStore()

	router, err := buildRouter(cfg)
	if err != nil {
		log.Error("failed to set up models: %v", err)
		os.Exit(1)
	}

	analyst, err := agent.New(router, agent.Options{
		Temperature: cfg.Temperature,
		MaxRetries:  cfg.MaxRetries,
	})
	if err != nil {
		log.Error("failed to build analyst pipeline: %v", err)
		os.Exit(1)
	}

	srv := server.New(cfg, analyst, session.NewManager(store))

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Start(); err != nil {
			log.Error("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error: %v", err)
	}
	<-done
}

func buildStore(cfg *config.Config) (session.Store, func(), error) {
	noop := func() {}
	switch cfg.HistoryBackend {
	case config.BackendMemory:
		return memory.NewMemoryStore(), noop, nil
	case config.BackendSqlite:
		store, err := sqlite.NewSqliteStore(sqlite.SqliteOptions{Path: cfg.SqlitePath})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case config.BackendRedis:
		store := redis.NewRedisStore(redis.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RedisTTL,
		})
		return store, noop, nil
	case config.BackendPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := postgres.NewPostgresStore(ctx, postgres.PostgresOptions{ConnString: cfg.PostgresURL})
		if err != nil {
			return nil, nil, err
		}
		if err := store.InitSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend: %s", cfg.HistoryBackend)
	}
}

func buildRouter(cfg *config.Config) (*llm.Router, error) {
	var reasoning, visualization llm.ChatModel

	if cfg.Reasoning.APIKey != "" {
		model, err := buildModel(cfg.Reasoning)
		if err != nil {
			return nil, fmt.Errorf("reasoning model: %w", err)
		}
		reasoning = model
	}
	if cfg.Visualization.APIKey != "" {
		model, err := buildModel(cfg.Visualization)
		if err != nil {
			return nil, fmt.Errorf("visualization model: %w", err)
		}
		visualization = model
	}

	return llm.NewRouter(reasoning, visualization), nil
}

func buildModel(mc config.ModelConfig) (llm.ChatModel, error) {
	switch mc.Provider {
	case config.ProviderLangChain:
		opts := []lcopenai.Option{
			lcopenai.WithToken(mc.APIKey),
			lcopenai.WithModel(mc.Name),
		}
		if mc.BaseURL != "" {
			opts = append(opts, lcopenai.WithBaseURL(mc.BaseURL))
		}
		client, err := lcopenai.New(opts...)
		if err != nil {
			return nil, err
		}
		return llm.NewLangChainModel(client, mc.Name), nil
	default:
		return llm.NewOpenAIChat(mc.APIKey, mc.Name, llm.WithBaseURL(mc.BaseURL))
	}
}
