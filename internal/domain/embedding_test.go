package domain

import (
	"context"
	"errors"
	"math"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

type healthyEmbedder struct {
	stubEmbedder
	healthErr error
}

func (h *healthyEmbedder) HealthCheck(context.Context) error { return h.healthErr }

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "query: ")

	result, err := emb.Embed(context.Background(), "quán phở gần Hồ Gươm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "query: quán phở gần Hồ Gươm" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, "query: ")

	_, err := emb.Embed(context.Background(), "cafe")
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_EmptyInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.5}}}
	emb := NewInstructionEmbedder(inner, "")

	if _, err := emb.Embed(context.Background(), "spa"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "spa" {
		t.Errorf("expected 'spa', got %q", inner.got)
	}
}

func TestInstructionEmbedder_HealthCheck(t *testing.T) {
	down := errors.New("down")
	if err := NewInstructionEmbedder(&healthyEmbedder{healthErr: down}, "").HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Errorf("expected forwarded health error, got %v", err)
	}
	if err := NewInstructionEmbedder(&stubEmbedder{}, "").HealthCheck(context.Background()); err != nil {
		t.Errorf("embedder without health check should be healthy, got %v", err)
	}
}

func TestEmbeddingResult_Validate(t *testing.T) {
	tests := []struct {
		name    string
		vec     []float32
		wantErr bool
	}{
		{"ok", []float32{0.1, -0.2}, false},
		{"empty", nil, true},
		{"nan", []float32{0.1, float32(math.NaN())}, true},
		{"inf", []float32{float32(math.Inf(1))}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EmbeddingResult{Embedding: tt.vec}.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrRetrievalFailure) {
				t.Errorf("expected ErrRetrievalFailure, got %v", err)
			}
		})
	}
}

func TestBatchFallback_Success(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{
		Embedding:    []float32{0.1, 0.2},
		PromptTokens: 5,
		TotalTokens:  5,
	}}
	res, err := BatchFallback(context.Background(), inner, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(res.Embeddings))
	}
	if res.TotalTokens != 15 || res.PromptTokens != 15 {
		t.Errorf("expected 15/15 tokens, got %d/%d", res.PromptTokens, res.TotalTokens)
	}
}

func TestBatchFallback_Error(t *testing.T) {
	innerErr := errors.New("fail")
	_, err := BatchFallback(context.Background(), &stubEmbedder{err: innerErr}, []string{"a"})
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}
