package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/cospa/internal/domain"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// Config holds Qdrant connection parameters.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Repo is a venue vector index backed by the Qdrant REST API.
type Repo struct {
	endpoint   string
	apiKey     string
	collection string
	client     *http.Client
}

// New creates a Qdrant venue index repository.
func New(cfg Config) (*Repo, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	collection := strings.TrimSpace(cfg.Collection)
	if collection == "" {
		collection = "cospa_sites"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Repo{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type searchResponse struct {
	Result []struct {
		ID      json.RawMessage `json:"id"`
		Score   float64         `json:"score"`
		Payload map[string]any  `json:"payload"`
	} `json:"result"`
	Status any `json:"status"`
}

// Query returns up to limit hits ordered by descending cosine similarity.
func (r *Repo) Query(ctx context.Context, vector []float32, limit int) ([]venue.Hit, error) {
	body, status, err := r.do(ctx, http.MethodPost, r.path("points", "search"), searchRequest{
		Vector:      vector,
		Limit:       limit,
		WithPayload: true,
	})
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("qdrant collection %s: %w", r.collection, domain.ErrNotFound)
	}
	if status >= 300 {
		return nil, fmt.Errorf("qdrant search: status %d: %s", status, truncate(body))
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode qdrant search: %w", err)
	}

	hits := make([]venue.Hit, 0, len(out.Result))
	for _, p := range out.Result {
		hits = append(hits, venue.Hit{
			ID:      pointID(p.ID),
			Score:   p.Score,
			Payload: flattenPayload(p.Payload),
		})
	}
	return hits, nil
}

type point struct {
	ID      string            `json:"id"`
	Vector  []float32         `json:"vector"`
	Payload map[string]string `json:"payload"`
}

// Upsert writes venue points. Point ids are UUIDv5 of the venue id since Qdrant
// only accepts integers or UUIDs; the venue id itself travels in the payload.
func (r *Repo) Upsert(ctx context.Context, docs []venue.Document) error {
	points := make([]point, 0, len(docs))
	for i := range docs {
		d := &docs[i]
		if d.Candidate.ID == "" {
			return fmt.Errorf("venue %d has no id: %w", i, domain.ErrInvalidInput)
		}
		payload := d.Candidate.ToPayload()
		payload[venue.KeySearchText] = d.Candidate.SearchText()
		points = append(points, point{
			ID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte("cospa:venue:"+d.Candidate.ID)).String(),
			Vector:  d.Vector,
			Payload: payload,
		})
	}

	body, status, err := r.do(ctx, http.MethodPut, r.path("points")+"?wait=true", map[string]any{"points": points})
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("qdrant upsert: status %d: %s", status, truncate(body))
	}
	return nil
}

// EnsureCollection creates the collection with cosine distance when missing.
func (r *Repo) EnsureCollection(ctx context.Context, dimensions int) error {
	_, status, err := r.do(ctx, http.MethodGet, r.path(), nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("qdrant unexpected status %d while checking collection", status)
	}

	create := map[string]any{
		"vectors": map[string]any{"size": dimensions, "distance": "Cosine"},
	}
	body, status, err := r.do(ctx, http.MethodPut, r.path(), create)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusConflict {
		return fmt.Errorf("qdrant create collection: status %d: %s", status, truncate(body))
	}
	return nil
}

// Reset deletes the collection and its points. A missing collection is not an error.
func (r *Repo) Reset(ctx context.Context) error {
	body, status, err := r.do(ctx, http.MethodDelete, r.path(), nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNotFound {
		return fmt.Errorf("qdrant delete collection: status %d: %s", status, truncate(body))
	}
	return nil
}

// Ready reports whether the collection exists.
func (r *Repo) Ready(ctx context.Context) error {
	_, status, err := r.do(ctx, http.MethodGet, r.path(), nil)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("qdrant collection %s: %w", r.collection, domain.ErrNotFound)
	default:
		return fmt.Errorf("qdrant collection %s: status %d", r.collection, status)
	}
}

func (r *Repo) path(parts ...string) string {
	return "/collections/" + r.collection + strings.Join(append([]string{""}, parts...), "/")
}

func (r *Repo) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("encode qdrant request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.endpoint+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("build qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("api-key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read qdrant response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// pointID renders a Qdrant point id, which is either a JSON string or integer.
func pointID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

// flattenPayload converts JSON payload values into the flat string map shared with Redis.
// Nulls are dropped so that absent coordinates stay absent.
func flattenPayload(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case nil:
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		default:
			if b, err := json.Marshal(t); err == nil {
				out[k] = string(b)
			}
		}
	}
	return out
}

func truncate(b []byte) string {
	const maxLen = 256
	if len(b) > maxLen {
		return string(b[:maxLen]) + "..."
	}
	return string(b)
}
