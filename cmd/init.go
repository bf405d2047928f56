package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/veracity-group/truthscan-cli/internal/audit"
	"github.com/veracity-group/truthscan-cli/internal/engine"
	"github.com/veracity-group/truthscan-cli/internal/lifecycle"
	"github.com/veracity-group/truthscan-cli/internal/resilience"
	"github.com/veracity-group/truthscan-cli/internal/store"
	anthropicpkg "github.com/veracity-group/truthscan-cli/pkg/anthropic"
	"github.com/veracity-group/truthscan-cli/pkg/gemini"
	"github.com/veracity-group/truthscan-cli/pkg/perplexity"
)

// appEnv holds the initialized store and services shared by the audit,
// verify, score, and serve commands.
type appEnv struct {
	Store      store.Store
	Registry   *engine.Registry
	Dispatcher *engine.Dispatcher
	Audit      *audit.Service
	Lifecycle  *lifecycle.Service
}

// Close releases resources held by the environment.
func (ae *appEnv) Close() {
	if ae.Store != nil {
		_ = ae.Store.Close()
	}
}

// initEnv opens the store, runs migrations, registers every provider
// adapter, and wires the services. Callers should defer env.Close().
// Providers without a configured key are still registered; their adapter
// degrades to the fallback outcome on every call.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	registry := buildRegistry()
	dispatcher := engine.NewDispatcher(registry, st, time.Duration(cfg.Audit.CallTimeoutSecs)*time.Second)

	return &appEnv{
		Store:      st,
		Registry:   registry,
		Dispatcher: dispatcher,
		Audit:      audit.NewService(st, dispatcher, audit.WeightsFromConfig(cfg.Audit.Weights)),
		Lifecycle:  lifecycle.NewService(st, dispatcher),
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("init: TRUTHSCAN_STORE_DATABASE_URL is required for the postgres driver")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("init: unknown store driver %q", cfg.Store.Driver)
	}
}

func buildRegistry() *engine.Registry {
	opts := engine.Options{
		FallbackDelay:   time.Duration(cfg.Audit.FallbackDelayMs) * time.Millisecond,
		RateLimitPerMin: cfg.Audit.RateLimitPerMin,
		Retry:           resilience.DefaultRetryConfig(),
	}

	var openaiClient engine.ChatCompleter
	if cfg.OpenAI.Key != "" {
		openaiClient = openai.NewClient(cfg.OpenAI.Key)
	} else {
		zap.L().Debug("TRUTHSCAN_OPENAI_KEY not set, chatgpt audits degrade to fallback")
	}

	var anthropicClient anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		anthropicClient = anthropicpkg.NewClient(cfg.Anthropic.Key)
	} else {
		zap.L().Debug("TRUTHSCAN_ANTHROPIC_KEY not set, claude audits degrade to fallback")
	}

	var geminiClient gemini.Client
	if cfg.Gemini.Key != "" {
		geminiClient = gemini.NewClient(cfg.Gemini.Key,
			gemini.WithBaseURL(cfg.Gemini.BaseURL),
			gemini.WithModel(cfg.Gemini.Model),
		)
	} else {
		zap.L().Debug("TRUTHSCAN_GEMINI_KEY not set, gemini audits degrade to fallback")
	}

	var perplexityClient perplexity.Client
	if cfg.Perplexity.Key != "" {
		perplexityClient = perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
	} else {
		zap.L().Debug("TRUTHSCAN_PERPLEXITY_KEY not set, perplexity audits degrade to fallback")
	}

	registry := engine.NewRegistry()
	registry.Register(engine.NewChatGPTAdapter(openaiClient, cfg.OpenAI.Model, opts))
	registry.Register(engine.NewClaudeAdapter(anthropicClient, cfg.Anthropic.Model, opts))
	registry.Register(engine.NewGeminiAdapter(geminiClient, opts))
	registry.Register(engine.NewPerplexityAdapter(perplexityClient, cfg.Perplexity.Model, opts))
	return registry
}
