// Command cospa-import loads a venue CSV into the configured vector index.
//
// Usage:
//
//	ENV=prod cospa-import -file venues.csv -workers 8 -batch-size 50 [-reset]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cospa/internal/config"
	"github.com/kailas-cloud/cospa/internal/db"
	dbRedis "github.com/kailas-cloud/cospa/internal/db/redis"
	logpkg "github.com/kailas-cloud/cospa/internal/logger"
	"github.com/kailas-cloud/cospa/internal/repository/qdrant"
	venuerepo "github.com/kailas-cloud/cospa/internal/repository/venue"
	openaiTransport "github.com/kailas-cloud/cospa/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/cospa/internal/usecase/embedding"
	"github.com/kailas-cloud/cospa/internal/usecase/ingest"
)

type flags struct {
	file      string
	workers   int
	batchSize int
	reset     bool
	delimiter string
}

func parseFlags() flags {
	f := flags{}
	flag.StringVar(&f.file, "file", "venues.csv", "venue CSV with a header row")
	flag.IntVar(&f.workers, "workers", 4, "number of parallel embed+upsert workers")
	flag.IntVar(&f.batchSize, "batch-size", 50, "venues per embedding batch")
	flag.BoolVar(&f.reset, "reset", false, "drop the index and its venues before loading")
	flag.StringVar(&f.delimiter, "delimiter", string(ingest.DefaultDelimiter), "CSV field separator")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, cfg, f, logger); err != nil {
		logger.Error("Import failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, f flags, logger *zap.Logger) error {
	file, err := os.Open(filepath.Clean(f.file))
	if err != nil {
		return fmt.Errorf("open %s: %w", f.file, err)
	}
	defer file.Close()

	delim := []rune(f.delimiter)
	if len(delim) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", f.delimiter)
	}
	venues, skipped, err := ingest.ReadCSV(file, ingest.CSVOptions{Delimiter: delim[0]})
	if err != nil {
		return fmt.Errorf("parse %s: %w", f.file, err)
	}
	logger.Info("Parsed venue file",
		zap.String("file", f.file),
		zap.Int("venues", len(venues)),
		zap.Int("skipped", skipped),
	)
	if len(venues) == 0 {
		return nil
	}

	embedder := embeddinguc.NewInstrumentedEmbedder(
		openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		}),
		cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.BatchSize, logger,
	)

	dims := cfg.Embedding.Dimensions
	if dims <= 0 {
		// Probe the model once to size the index
		sample, err := embedder.Embed(ctx, cfg.Embedding.DocumentInstruction+venues[0].SearchText())
		if err != nil {
			return fmt.Errorf("sample embedding dimensions: %w", err)
		}
		dims = len(sample.Embedding)
	}

	sink, closeSink, err := prepareIndex(ctx, cfg, dims, f.reset, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	svc := ingest.New(embedder, sink, ingest.Options{
		Workers:     f.workers,
		BatchSize:   f.batchSize,
		Instruction: cfg.Embedding.DocumentInstruction,
	}, logger)

	res, err := svc.Run(ctx, venues)
	logger.Info("Import finished",
		zap.Int64("processed", res.Processed),
		zap.Int64("failed", res.Failed),
		zap.Duration("duration", res.Duration),
	)
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d venues failed", res.Failed, len(venues))
	}
	return nil
}

// prepareIndex connects to the configured index and creates it when missing.
func prepareIndex(
	ctx context.Context, cfg config.Config, dims int, reset bool, logger *zap.Logger,
) (ingest.Sink, func(), error) {
	if cfg.Index.Driver == "qdrant" {
		repo, err := qdrant.New(qdrant.Config{
			URL:        cfg.Index.QdrantURL,
			APIKey:     cfg.Index.QdrantAPIKey,
			Collection: cfg.Index.QdrantCollection,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("qdrant: %w", err)
		}
		if reset {
			if err := repo.Reset(ctx); err != nil {
				return nil, nil, fmt.Errorf("reset collection: %w", err)
			}
			logger.Info("Qdrant collection dropped", zap.String("collection", cfg.Index.QdrantCollection))
		}
		if err := repo.EnsureCollection(ctx, dims); err != nil {
			return nil, nil, fmt.Errorf("ensure collection: %w", err)
		}
		logger.Info("Qdrant collection ready", zap.String("collection", cfg.Index.QdrantCollection), zap.Int("dims", dims))
		return repo, func() {}, nil
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("redis not ready: %w", err)
	}

	algo, err := db.ParseVectorAlgorithm(cfg.Index.Algorithm)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("index algorithm: %w", err)
	}

	repo := venuerepo.New(store, cfg.Index.Name)
	if reset {
		if err := repo.Reset(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("reset index: %w", err)
		}
		logger.Info("Redis index dropped", zap.String("index", cfg.Index.Name))
	}
	if err := repo.EnsureIndex(ctx, venuerepo.IndexOptions{
		Dimensions:  dims,
		Algorithm:   algo,
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	}); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("ensure index: %w", err)
	}
	logger.Info("Redis index ready", zap.String("index", cfg.Index.Name), zap.Int("dims", dims))
	return repo, store.Close, nil
}
