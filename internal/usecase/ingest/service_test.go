package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/cospa/internal/domain"
)

// --- Tests ---

func TestRun_AllBatches(t *testing.T) {
	emb := &mockEmbedder{}
	sink := &mockSink{}
	svc := New(emb, sink, Options{Workers: 3, BatchSize: 4, Instruction: "doc: "}, nil)

	res, err := svc.Run(context.Background(), candidates(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Processed != 10 || res.Failed != 0 {
		t.Errorf("result = %+v, want 10 processed", res)
	}
	if len(sink.docs) != 10 {
		t.Fatalf("upserted %d docs, want 10", len(sink.docs))
	}
	for _, text := range emb.texts {
		if !strings.HasPrefix(text, "doc: Tên: Quán ") {
			t.Errorf("text %q lacks instruction prefix", text)
		}
	}
	seen := map[string]bool{}
	for _, d := range sink.docs {
		if len(d.Vector) != 2 {
			t.Errorf("doc %s has vector %v", d.Candidate.ID, d.Vector)
		}
		seen[d.Candidate.ID] = true
	}
	if len(seen) != 10 {
		t.Errorf("expected 10 distinct ids, got %d", len(seen))
	}
}

func TestRun_FailedBatchesAreCounted(t *testing.T) {
	tests := []struct {
		name string
		emb  *mockEmbedder
		sink *mockSink
	}{
		{
			name: "embedding error",
			emb: &mockEmbedder{fn: func([]string) (domain.BatchEmbeddingResult, error) {
				return domain.BatchEmbeddingResult{}, domain.ErrEmbeddingProviderError
			}},
			sink: &mockSink{},
		},
		{
			name: "vector count mismatch",
			emb: &mockEmbedder{fn: func(texts []string) (domain.BatchEmbeddingResult, error) {
				return domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts)-1)}, nil
			}},
			sink: &mockSink{},
		},
		{
			name: "upsert error",
			emb:  &mockEmbedder{},
			sink: &mockSink{err: errors.New("index down")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(tt.emb, tt.sink, Options{Workers: 2, BatchSize: 3}, nil)
			res, err := svc.Run(context.Background(), candidates(7))
			if err != nil {
				t.Fatalf("batch failures must not abort the run: %v", err)
			}
			if res.Failed != 7 || res.Processed != 0 {
				t.Errorf("result = %+v, want 7 failed", res)
			}
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := New(&mockEmbedder{}, &mockSink{}, Options{Workers: 1, BatchSize: 1}, nil)
	_, err := svc.Run(ctx, candidates(100))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_Empty(t *testing.T) {
	res, err := New(&mockEmbedder{}, &mockSink{}, Options{}, nil).Run(context.Background(), nil)
	if err != nil || res.Processed != 0 || res.Failed != 0 {
		t.Fatalf("unexpected result %+v, %v", res, err)
	}
}
