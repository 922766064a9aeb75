package chi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/cospa/internal/logger"
	"github.com/kailas-cloud/cospa/internal/metrics"
	"github.com/kailas-cloud/cospa/internal/tracing"
)

// RouterConfig configures the middleware stack.
type RouterConfig struct {
	APIKeys           []string
	AllowedOrigins    []string
	RequestsPerMinute int
	ReplyTimeout      time.Duration
}

// NewRouter mounts every route on the chi router with the full middleware stack.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(tracing.Middleware())
	r.Use(wideEventMiddleware(s.logger))
	r.Use(corsHandler(cfg.AllowedOrigins))
	r.Use(BearerAuthMiddleware(cfg.APIKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.RequestsPerMinute > 0 {
			r.Use(rateLimit(cfg.RequestsPerMinute))
		}

		r.Group(func(r chi.Router) {
			if cfg.ReplyTimeout > 0 {
				r.Use(chiMiddleware.Timeout(cfg.ReplyTimeout))
			}
			r.Post("/chat", s.Chat)
			r.Post("/search", s.Search)
		})

		r.Post("/users/sync", s.SyncUser)
		r.Get("/users/{userID}/conversations", s.ListConversations)
		r.Post("/conversations", s.CreateConversation)
		r.Patch("/conversations/{id}", s.RenameConversation)
		r.Get("/conversations/{id}/messages", s.ConversationMessages)
		r.Delete("/conversations/{id}", s.DeleteConversation)

		if s.svc.Favorites != nil {
			r.Get("/users/{userID}/favorites", s.ListFavorites)
			r.Post("/users/{userID}/favorites", s.SaveFavorite)
			r.Delete("/users/{userID}/favorites/{venueID}", s.RemoveFavorite)
		}
		if s.svc.Reviews != nil {
			r.Get("/venues/{venueID}/reviews", s.ListReviews)
			r.Post("/venues/{venueID}/reviews", s.CreateReview)
			r.Delete("/reviews/{id}", s.DeleteReview)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Location", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// rateLimit limits per client IP over a one-minute window.
func rateLimit(perMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
		}),
	)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(ErrorResponse{
						Code:    CodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			if traceID := tracing.TraceID(r.Context()); traceID != "" {
				reqLogger = reqLogger.With(zap.String("trace_id", traceID))
			}
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
