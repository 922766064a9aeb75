package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cospa/internal/config"
	dbRedis "github.com/kailas-cloud/cospa/internal/db/redis"
	"github.com/kailas-cloud/cospa/internal/domain"
	domconv "github.com/kailas-cloud/cospa/internal/domain/conversation"
	"github.com/kailas-cloud/cospa/internal/domain/llm"
	logpkg "github.com/kailas-cloud/cospa/internal/logger"
	"github.com/kailas-cloud/cospa/internal/metrics"
	"github.com/kailas-cloud/cospa/internal/repository/embcache"
	"github.com/kailas-cloud/cospa/internal/repository/memory"
	"github.com/kailas-cloud/cospa/internal/repository/postgres"
	"github.com/kailas-cloud/cospa/internal/repository/qdrant"
	venuerepo "github.com/kailas-cloud/cospa/internal/repository/venue"
	"github.com/kailas-cloud/cospa/internal/tracing"
	anthropicGen "github.com/kailas-cloud/cospa/internal/transport/anthropic"
	chiTransport "github.com/kailas-cloud/cospa/internal/transport/chi"
	natsTransport "github.com/kailas-cloud/cospa/internal/transport/nats"
	openaiTransport "github.com/kailas-cloud/cospa/internal/transport/openai"
	chatuc "github.com/kailas-cloud/cospa/internal/usecase/chat"
	convuc "github.com/kailas-cloud/cospa/internal/usecase/conversation"
	embeddinguc "github.com/kailas-cloud/cospa/internal/usecase/embedding"
	favoriteuc "github.com/kailas-cloud/cospa/internal/usecase/favorite"
	healthuc "github.com/kailas-cloud/cospa/internal/usecase/health"
	reviewuc "github.com/kailas-cloud/cospa/internal/usecase/review"
	searchuc "github.com/kailas-cloud/cospa/internal/usecase/search"
	useruc "github.com/kailas-cloud/cospa/internal/usecase/user"
	"github.com/kailas-cloud/cospa/internal/version"
)

// conversationStore is what both the postgres and memory stores provide.
type conversationStore interface {
	convuc.Store
	useruc.Repository
	favoriteuc.Repository
	reviewuc.Repository
	Ping(ctx context.Context) error
}

// venueIndex is a queryable index that can report readiness.
type venueIndex interface {
	searchuc.VectorIndex
	healthuc.IndexChecker
}

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cospa API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("index_driver", cfg.Index.Driver),
		zap.String("generation_provider", cfg.Generation.Provider),
	)

	ctx := context.Background()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		Version:     version.Version,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Fatal("Failed to set up tracing", zap.Error(err))
	}

	metrics.Register()

	store, closeStore := buildConversationStore(ctx, cfg.Database, logger)
	defer closeStore()

	// Redis serves the FT index and the embedding cache
	var redisStore *dbRedis.Store
	if len(cfg.Cache.Addrs) > 0 && (cfg.Index.Driver == "redis" || cfg.Embedding.Cache) {
		redisStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer redisStore.Close()

		if err := redisStore.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	index := buildIndex(cfg.Index, redisStore, logger)
	embedder := buildEmbedder(cfg.Embedding, cfg.Cache, redisStore, logger)
	generator := buildGenerator(cfg.Generation, logger)

	// Turn events
	var publisher chatuc.EventPublisher = natsTransport.Noop{}
	var natsClient *natsTransport.Client
	if cfg.Events.URL != "" {
		natsClient, err = natsTransport.Connect(natsTransport.Config{
			URL:   cfg.Events.URL,
			Token: cfg.Events.Token,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()
		if err := natsClient.EnsureStream(ctx, cfg.Events.Stream, cfg.Events.Subject); err != nil {
			logger.Fatal("Failed to ensure turn stream", zap.Error(err))
		}
		publisher = natsTransport.NewPublisher(natsClient.JetStream(), cfg.Events.Subject)
		logger.Info("Publishing turn events", zap.String("stream", cfg.Events.Stream))
	}

	// Use cases
	searchSvc := searchuc.New(index, embedder, searchuc.Options{
		OverfetchWithLocation:    cfg.Search.OverfetchWithLocation,
		OverfetchWithoutLocation: cfg.Search.OverfetchWithoutLocation,
		MaxUserDistanceKm:        cfg.Search.MaxUserDistanceKm,
		ClusterRadiusKm:          cfg.Search.ClusterRadiusKm,
	}, metrics.RetrievalFailuresTotal, logger)

	quota := convuc.NewQuotaManager(domconv.Limits{
		MaxActiveConversations:     cfg.Quota.MaxActiveConversations,
		MaxMessagesPerConversation: cfg.Quota.MaxMessagesPerConversation,
	}, metrics.QuotaRejectionsTotal, logger)

	convSvc := convuc.New(store, quota)
	userSvc := useruc.New(store)
	favoriteSvc := favoriteuc.New(store, logger)
	reviewSvc := reviewuc.New(store, logger)
	chatSvc := chatuc.New(store, quota, searchSvc, generator, publisher, chatuc.Options{
		ResultCount: cfg.Search.ResultCount,
		Generation: llm.Options{
			Model:       cfg.Generation.Model,
			Temperature: cfg.Generation.Temperature,
			MaxTokens:   cfg.Generation.MaxTokens,
		},
	}, logger)

	healthSvc := healthuc.New(store, index, embeddingHealthChecker{embedder: embedder})
	if natsClient != nil {
		healthSvc.Register("events", healthuc.CheckerFunc(natsClient.Ping))
	}

	server := chiTransport.NewServer(chiTransport.Services{
		Chat:          chatSvc,
		Search:        searchSvc,
		Conversations: convSvc,
		Users:         userSvc,
		Favorites:     favoriteSvc,
		Reviews:       reviewSvc,
		Health:        healthSvc,
	}, quota.Limits(), logger)

	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:           cfg.Auth.APIKeys,
		AllowedOrigins:    cfg.Auth.AllowedOrigins,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		ReplyTimeout:      time.Duration(cfg.HTTP.ReplyTimeoutSec) * time.Second,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Error flushing traces", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func buildConversationStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (conversationStore, func()) {
	if cfg.Driver == "memory" {
		logger.Warn("Using in-memory conversation store, data is lost on restart")
		return memory.New(), func() {}
	}

	pg, err := postgres.New(ctx, postgres.Config{DSN: cfg.DSN, MaxConns: cfg.MaxConns})
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	if cfg.Migrate {
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate schema", zap.Error(err))
		}
		logger.Info("Schema migrated")
	}
	logger.Info("Connected to postgres")
	return pg, pg.Close
}

func buildIndex(cfg config.IndexConfig, redisStore *dbRedis.Store, logger *zap.Logger) venueIndex {
	if cfg.Driver == "qdrant" {
		repo, err := qdrant.New(qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
		})
		if err != nil {
			logger.Fatal("Failed to create qdrant index", zap.Error(err))
		}
		return repo
	}
	if redisStore == nil {
		logger.Fatal("Redis index selected without cache.addrs")
	}
	return venuerepo.New(redisStore, cfg.Name)
}

// buildEmbedder assembles the query decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg config.EmbeddingConfig, cacheCfg config.CacheConfig, redisStore *dbRedis.Store, logger *zap.Logger,
) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cfg.Cache && redisStore != nil {
		embedder = embcache.New(base, redisStore, cfg.Model,
			time.Duration(cacheCfg.EmbeddingTTLHour)*time.Hour, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, cfg.BatchSize, logger)

	// Instruction prefix (outermost, so the cache key includes it)
	if cfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}
	return embedder
}

func buildGenerator(cfg config.GenerationConfig, logger *zap.Logger) chatuc.Generator {
	defaults := llm.Options{Model: cfg.Model, Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
	if cfg.Provider == "anthropic" {
		gen, err := anthropicGen.NewGenerator(anthropicGen.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Logger:  logger,
		}, defaults)
		if err != nil {
			logger.Fatal("Failed to create anthropic generator", zap.Error(err))
		}
		return gen
	}
	return openaiTransport.NewGenerator(&openaiTransport.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Provider: "openai",
		Logger:   logger,
	}, defaults)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func (h embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
