package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cospa/internal/domain/venue"
	"github.com/kailas-cloud/cospa/internal/logger"
)

const (
	defaultWorkers   = 4
	defaultBatchSize = 50
)

// Options tune the ingest worker pool.
type Options struct {
	Workers   int
	BatchSize int
	// Instruction is prepended to every document text before embedding.
	Instruction string
}

// Result summarizes an ingest run.
type Result struct {
	Processed int64
	Failed    int64
	Duration  time.Duration
}

// Service embeds venues and writes them to an index: batches -> N workers -> BatchEmbed -> Upsert.
type Service struct {
	embedder Embedder
	sink     Sink
	opts     Options
	logger   *zap.Logger
}

// New creates an ingest service.
func New(embedder Embedder, sink Sink, opts Options, log *zap.Logger) *Service {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{embedder: embedder, sink: sink, opts: opts, logger: log}
}

// Run ingests venues. A failed batch is logged and counted; it does not stop the run.
// Only context cancellation aborts early.
func (s *Service) Run(ctx context.Context, venues []venue.Candidate) (Result, error) {
	start := time.Now()
	batches := make(chan []venue.Candidate, s.opts.Workers*2)

	var (
		wg                sync.WaitGroup
		processed, failed atomic.Int64
	)
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for batch := range batches {
				if err := s.processBatch(ctx, batch); err != nil {
					logger.FromContextOr(ctx, s.logger).Warn("batch failed",
						zap.Int("worker", workerID),
						zap.Int("size", len(batch)),
						zap.Error(err),
					)
					failed.Add(int64(len(batch)))
					continue
				}
				processed.Add(int64(len(batch)))
			}
		}(i)
	}

	var cancelled error
produce:
	for i := 0; i < len(venues); i += s.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		end := min(i+s.opts.BatchSize, len(venues))
		select {
		case batches <- venues[i:end]:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break produce
		}
	}
	close(batches)
	wg.Wait()

	res := Result{Processed: processed.Load(), Failed: failed.Load(), Duration: time.Since(start)}
	if cancelled != nil {
		return res, fmt.Errorf("ingest cancelled: %w", cancelled)
	}
	return res, nil
}

func (s *Service) processBatch(ctx context.Context, batch []venue.Candidate) error {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = s.opts.Instruction + batch[i].SearchText()
	}

	emb, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(emb.Embeddings) != len(batch) {
		return fmt.Errorf("embed: got %d vectors for %d venues", len(emb.Embeddings), len(batch))
	}

	docs := make([]venue.Document, len(batch))
	for i := range batch {
		docs[i] = venue.Document{Candidate: batch[i], Vector: emb.Embeddings[i]}
	}
	if err := s.sink.Upsert(ctx, docs); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}
