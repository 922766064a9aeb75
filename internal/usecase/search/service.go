package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cospa/internal/domain"
	"github.com/kailas-cloud/cospa/internal/domain/geo"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
	"github.com/kailas-cloud/cospa/internal/logger"
)

// MaxResults caps the desired result count per query.
const MaxResults = 20

var tracer = otel.Tracer("github.com/kailas-cloud/cospa/internal/usecase/search")

// Options tune retrieval and clustering. Zero values use the defaults.
type Options struct {
	OverfetchWithLocation    int
	OverfetchWithoutLocation int
	MaxUserDistanceKm        float64
	ClusterRadiusKm          float64
}

// Service composes retrieval and geo clustering into a ranked venue search.
type Service struct {
	retriever *Retriever
	filter    ClusterFilter
	failures  prometheus.Counter
	logger    *zap.Logger
}

// New creates a search service. failures counts degraded searches and may be nil.
func New(index VectorIndex, embed Embedder, opts Options, failures prometheus.Counter, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		retriever: NewRetriever(index, embed, opts.OverfetchWithLocation, opts.OverfetchWithoutLocation),
		filter:    NewClusterFilter(opts.MaxUserDistanceKm, opts.ClusterRadiusKm),
		failures:  failures,
		logger:    log,
	}
}

// Search returns at most desired ranked venues for query, clustered around user when given.
// Retrieval failures are returned wrapped in domain.ErrRetrievalFailure.
func (s *Service) Search(
	ctx context.Context, query string, desired int, user *geo.Coordinate,
) ([]venue.RankedResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}
	if desired < 1 || desired > MaxResults {
		return nil, fmt.Errorf("limit must be in [1,%d]: %w", MaxResults, domain.ErrInvalidInput)
	}
	if user != nil && !user.Valid() {
		return nil, fmt.Errorf("user location %s out of range: %w", user, domain.ErrInvalidInput)
	}

	ctx, span := tracer.Start(ctx, "search.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("search.desired", desired), attribute.Bool("search.has_location", user != nil))

	candidates, err := s.retriever.Retrieve(ctx, query, desired, user != nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return nil, err
	}

	results := s.filter.Apply(venue.DropMissingCoordinates(candidates), desired, user)
	span.SetAttributes(attribute.Int("search.candidates", len(candidates)), attribute.Int("search.results", len(results)))
	return results, nil
}

// SearchOrEmpty is Search that degrades a retrieval failure into an empty result.
// The failure is logged and counted; other errors (invalid input) are still returned.
func (s *Service) SearchOrEmpty(
	ctx context.Context, query string, desired int, user *geo.Coordinate,
) ([]venue.RankedResult, error) {
	results, err := s.Search(ctx, query, desired, user)
	if err == nil {
		return results, nil
	}
	if !domain.IsRetrievalFailure(err) {
		return nil, err
	}

	if s.failures != nil {
		s.failures.Inc()
	}
	logger.FromContextOr(ctx, s.logger).Warn("Venue search degraded to empty result",
		zap.Int("desired", desired),
		zap.Bool("has_location", user != nil),
		zap.Error(err),
	)
	return []venue.RankedResult{}, nil
}
