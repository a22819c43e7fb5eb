package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/cache"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/executor"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/graph"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/matcher"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/memory"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/reasoner"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/recovery"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/repo"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/services"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/synth"
	"github.com/Chative-core-poc-v1/orchestrator/internal/core"
	"github.com/Chative-core-poc-v1/orchestrator/internal/metrics"
	transport "github.com/Chative-core-poc-v1/orchestrator/internal/transport/http"
	v1 "github.com/Chative-core-poc-v1/orchestrator/internal/transport/http/v1"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
	pkgredis "github.com/Chative-core-poc-v1/orchestrator/pkg/redis"
	"github.com/Chative-core-poc-v1/orchestrator/pkg/sqlite"
	"github.com/Chative-core-poc-v1/orchestrator/pkg/tokens"
)

const shutdownTimeout = 10 * time.Second

// AppConfig defines all configurable parameters of the orchestrator,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Env      core.Environment `envconfig:"APP_ENV" default:"development"`
	LogLevel string           `envconfig:"LOG_LEVEL"`
	HTTPAddr string           `envconfig:"HTTP_ADDR" default:":8080"`
	SeedDemo bool             `envconfig:"SEED_DEMO" default:"true"`

	// Infrastructure
	Redis  pkgredis.Config
	SQLite sqlite.Config

	// Text-reasoning provider; without a key the deterministic reasoner is used
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Orchestrator configs
	Classifier model.ClassifierModelConfig
	Synthesis  model.SynthesisModelConfig
	Prompt     model.SynthesisPromptConfig
	Routing    model.RoutingConfig
	Cache      model.CacheConfig
	Session    model.SessionConfig
	Context    model.ContextConfig
	Executor   model.ExecutorConfig
	Recovery   model.RecoveryConfig
	History    model.HistoryConfig
}

func main() {
	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load .env file: %v\n", err)
	}

	// Load structured config from env
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to process environment config: %v\n", err)
		os.Exit(1)
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Env, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logx.Fatal().Err(err).Msg("orchestrator stopped")
	}
}

func run(ctx context.Context, cfg AppConfig) error {
	db, err := sqlite.Open(ctx, cfg.SQLite.DSN, services.Migrations)
	if err != nil {
		return fmt.Errorf("open domain store: %w", err)
	}
	defer db.Close()
	if cfg.SeedDemo {
		if err := services.SeedDemo(ctx, db, time.Now()); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	registry, err := services.NewRegistry(services.NewSQLite(db)...)
	if err != nil {
		return fmt.Errorf("build service registry: %w", err)
	}

	recorder := metrics.NewPrometheusRecorder()
	counter := tokens.NewCounter()

	intentCache := cache.New(cfg.Cache.MaxSize, cfg.Cache.TTL, cache.WithObserver(recorder))
	sessions := memory.NewStore(cfg.Session, cfg.Context, memory.WithWindowOptions(
		memory.WithCounter(counter.Count),
		memory.WithResolver(memory.RegistryResolver{Registry: registry}),
	))
	exec := executor.New(registry, recovery.New(cfg.Recovery.MaxRetries),
		executor.WithCallTimeout(cfg.Executor.CallTimeout),
		executor.WithObserver(recorder),
	)

	rsn, err := newReasoner(ctx, cfg)
	if err != nil {
		return err
	}

	history, closeHistory, err := newHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeHistory()

	runner, err := graph.New(ctx, graph.Config{
		Deps: &nodes.Deps{
			Matcher:  matcher.New(matcher.WithThreshold(cfg.Routing.PatternThreshold)),
			Cache:    intentCache,
			Reasoner: rsn,
			Executor: exec,
			Synth:    synth.New(rsn),
			Sessions: sessions,
			History:  history,
			Routing:  cfg.Routing,
		},
		Observer: recorder,
	})
	if err != nil {
		return fmt.Errorf("build orchestration graph: %w", err)
	}

	e := transport.NewServer(v1.NewHandler(v1.Config{
		Runner:       runner,
		Services:     registry,
		Cache:        intentCache,
		History:      history,
		Sessions:     sessions,
		ReasonerMode: rsn.Mode(),
		Metrics:      recorder.Handler(),
	}))

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.Env.String()).Str("reasoner", rsn.Mode()).Msg("orchestrator listening")
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logx.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newReasoner(ctx context.Context, cfg AppConfig) (reasoner.Reasoner, error) {
	if cfg.APIKey == "" {
		logx.Warn().Msg("GEMINI_API_KEY not set, using the deterministic reasoner")
		return reasoner.Deterministic{}, nil
	}
	r, err := reasoner.NewGemini(ctx, reasoner.GeminiConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Classifier: cfg.Classifier,
		Synthesis:  cfg.Synthesis,
		Prompt:     cfg.Prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("build gemini reasoner: %w", err)
	}
	return r, nil
}

func newHistory(ctx context.Context, cfg AppConfig) (model.HistoryRepository, func(), error) {
	if !cfg.Redis.Enabled() {
		logx.Warn().Msg("REDIS_URL not set, session history is not persisted")
		return repo.NopHistoryRepository{}, func() {}, nil
	}

	ttl, err := time.ParseDuration(cfg.History.TTL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid HISTORY_TTL '%s': %w", cfg.History.TTL, err)
	}
	rdb, err := cfg.Redis.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("initialise redis client: %w", err)
	}
	logx.Info().Msg("connected to redis")

	return repo.NewRedisHistoryRepository(rdb, ttl, cfg.History.MaxTurns), func() { _ = rdb.Close() }, nil
}
