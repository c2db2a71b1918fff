package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	httpadapter "github.com/kirillkom/research-assistant/internal/adapters/http"
	"github.com/kirillkom/research-assistant/internal/config"
	"github.com/kirillkom/research-assistant/internal/core/ports"
	"github.com/kirillkom/research-assistant/internal/core/usecase"
	"github.com/kirillkom/research-assistant/internal/infrastructure/cache/redis"
	"github.com/kirillkom/research-assistant/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/research-assistant/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/research-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/research-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/research-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/research-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/research-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/research-assistant/internal/observability/metrics"
)

// Options selects the optional collaborators a binary needs.
type Options struct {
	// Queue connects to NATS for record change events.
	Queue bool
	// Metrics receives pipeline and cache observations when set.
	Metrics *metrics.HTTPServerMetrics
	// Upstream receives retry and breaker events when set.
	Upstream resilience.Observer
}

type App struct {
	Config config.Config

	Search    ports.SearchService
	History   ports.SearchHistoryReader
	Reindexer ports.RecordReindexer
	Queue     ports.RecordEventQueue
	Exporter  ports.ResultExporter

	Readiness []httpadapter.ReadinessCheck

	closers []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	profiles, err := cfg.LoadProfiles()
	if err != nil {
		return nil, fmt.Errorf("load search profiles: %w", err)
	}

	var searchObserver ports.SearchObserver
	var cacheObserver redis.CacheObserver
	if opts.Metrics != nil {
		searchObserver = opts.Metrics
		cacheObserver = opts.Metrics
	}

	var upstream resilience.Observer
	switch {
	case opts.Upstream != nil:
		upstream = opts.Upstream
	case opts.Metrics != nil:
		upstream = opts.Metrics
	}
	executor := resilience.NewExecutor(cfg.ResilienceConfig(), resilience.WithObserver(upstream))

	embedder, generator, modelName, err := newModelProvider(cfg, executor, app)
	if err != nil {
		return nil, err
	}

	if addr := strings.TrimSpace(cfg.EmbedCacheRedisAddr); addr != "" {
		cache, err := redis.NewStore(redis.Config{Addrs: strings.Split(addr, ",")})
		if err != nil {
			return nil, fmt.Errorf("init embedding cache: %w", err)
		}
		app.OnClose(cache.Close)
		app.Readiness = append(app.Readiness, httpadapter.ReadinessCheck{Name: "redis", Check: cache.Ping})
		ttl := time.Duration(cfg.EmbedCacheTTLSeconds) * time.Second
		embedder = redis.NewCachedEmbedder(embedder, cache, modelName, ttl, cacheObserver)
	}

	runner, err := neo4j.NewDriverRunner(neo4j.Config{
		URI:      cfg.Neo4jURI,
		User:     cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
	})
	if err != nil {
		return nil, fmt.Errorf("init neo4j: %w", err)
	}
	app.OnClose(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Close(closeCtx)
	})
	app.Readiness = append(app.Readiness, httpadapter.ReadinessCheck{Name: "neo4j", Check: runner.Ping})

	store, err := neo4j.NewStore(runner, neo4j.StoreOptions{
		ProjectIndex: cfg.Neo4jProjectIndex,
		CallIndex:    cfg.Neo4jCallIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("init record store: %w", err)
	}
	if cfg.Neo4jEnsureIndexes {
		if err := store.EnsureIndexes(ctx, cfg.EmbeddingDimensions, cfg.VectorSimilarity); err != nil {
			return nil, fmt.Errorf("ensure vector indexes: %w", err)
		}
	}

	var searchLog ports.SearchLogStore
	if cfg.SearchLogEnabled {
		db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		app.OnClose(func() { _ = db.Close() })
		repo := postgres.NewSearchLogRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure search log schema: %w", err)
		}
		searchLog = repo
		app.History = repo
		app.Readiness = append(app.Readiness, httpadapter.ReadinessCheck{Name: "postgres", Check: db.PingContext})
	}

	if opts.Queue {
		queue, err := nats.Connect(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.OnClose(queue.Close)
		app.Readiness = append(app.Readiness, httpadapter.ReadinessCheck{Name: "nats", Check: queue.Ping})
		app.Queue = queue
	}

	refiner := usecase.NewQueryRefiner(generator, searchObserver, usecase.RefinerOptions{
		MaxChars: cfg.SearchRefineMaxChars,
		MaxWords: cfg.SearchRefineMaxWords,
		Timeout:  seconds(cfg.RefineTimeoutSeconds),
	})
	retriever := usecase.NewHybridRetriever(store, searchObserver, seconds(cfg.StoreTimeoutSeconds))

	app.Search = usecase.NewSearchSynthesisUseCase(refiner, embedder, retriever, generator, profiles, searchLog, usecase.SynthesisOptions{
		MinQueryLength:  cfg.SearchMinQueryLength,
		EmbedTimeout:    seconds(cfg.EmbedTimeoutSeconds),
		GenerateTimeout: seconds(cfg.GenerateTimeoutSeconds),
	})
	app.Reindexer = usecase.NewReindexUseCase(store, embedder, cfg.ReindexPoolSize)
	app.Exporter = xlsx.NewExporter()

	slog.Info("bootstrap_complete",
		"llm_provider", cfg.LLMProvider,
		"embed_model", modelName,
		"profiles", len(profiles),
		"search_log", cfg.SearchLogEnabled,
		"embed_cache", cfg.EmbedCacheRedisAddr != "",
		"queue", opts.Queue,
	)
	ok = true
	return app, nil
}

func newModelProvider(cfg config.Config, executor *resilience.Executor, app *App) (ports.Embedder, ports.TextGenerator, string, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderOllama:
		client := ollama.New(ollama.Options{
			BaseURL:     cfg.OllamaURL,
			GenModel:    cfg.OllamaGenModel,
			EmbedModel:  cfg.OllamaEmbedModel,
			Temperature: cfg.LLMTemperature,
			Executor:    executor,
		})
		app.Readiness = append(app.Readiness, httpadapter.ReadinessCheck{Name: "ollama", Check: client.Ping})
		return ollama.NewEmbedder(client), ollama.NewGenerator(client), cfg.OllamaEmbedModel, nil
	case config.LLMProviderOpenAI:
		client := openai.New(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			ChatModel:   cfg.OpenAIGenModel,
			EmbedModel:  cfg.OpenAIEmbedModel,
			Dimensions:  cfg.EmbeddingDimensions,
			Temperature: float32(cfg.LLMTemperature),
			Executor:    executor,
		})
		app.Readiness = append(app.Readiness, httpadapter.ReadinessCheck{Name: "openai", Check: client.Ping})
		return openai.NewEmbedder(client), openai.NewGenerator(client), cfg.OpenAIEmbedModel, nil
	default:
		return nil, nil, "", fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// OnClose registers fn to run when the app is closed.
func (a *App) OnClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases collaborators in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
