// Package server provides the HTTP API for running invocations and reviewing drafts.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/quote-repost/internal/config"
	"github.com/jonathan/quote-repost/internal/db"
	"github.com/jonathan/quote-repost/internal/logging"
	"github.com/jonathan/quote-repost/internal/pipeline"
	"github.com/jonathan/quote-repost/internal/server/middleware"
	"github.com/jonathan/quote-repost/internal/server/ratelimit"
	"github.com/jonathan/quote-repost/internal/types"
)

// InvocationRunner runs one invocation to a terminal state
type InvocationRunner interface {
	Run(ctx context.Context, inv types.Invocation) (*pipeline.Outcome, error)
}

// Store reads invocation records and records review decisions
type Store interface {
	GetInvocation(ctx context.Context, runID uuid.UUID) (*db.InvocationRecord, error)
	LatestInvocation(ctx context.Context, sourceID string) (*db.InvocationRecord, error)
	ListInvocations(ctx context.Context, filters db.InvocationFilters) ([]db.InvocationRecord, error)
	SaveReview(ctx context.Context, review *db.ReviewRecord) error
}

// Requeuer hands an invocation to the worker queue
type Requeuer interface {
	Enqueue(ctx context.Context, inv types.Invocation) error
}

// Publisher posts an approved draft as a quote of the source post and returns the new post ID
type Publisher interface {
	Publish(ctx context.Context, text, quotedPostID string) (string, error)
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Config holds server configuration
type Config struct {
	ListenAddr string
	JWT        *config.JWTConfig
	RateLimit  *ratelimit.Config // nil loads RATE_LIMIT_* from the environment
	Logger     logging.Logger
	// Registerer and Gatherer default to the Prometheus default registry
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Dependencies are the collaborators behind the HTTP API.
// Runner and Store are required. Requeuer and Publisher are optional.
type Dependencies struct {
	Runner       InvocationRunner
	Store        Store
	Requeuer     Requeuer
	Publisher    Publisher
	HealthChecks map[string]HealthCheck
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	deps        Dependencies
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	logger      logging.Logger
	requests    *prometheus.CounterVec
}

// New creates a new server instance
func New(cfg Config, deps Dependencies) (*Server, error) {
	if deps.Runner == nil {
		return nil, errors.New("server: runner is required")
	}
	if deps.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if cfg.JWT == nil {
		return nil, errors.New("server: JWT config is required")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = config.DefaultListenAddr
	}
	rlConfig := cfg.RateLimit
	if rlConfig == nil {
		rlConfig = ratelimit.LoadConfig()
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		deps:        deps,
		rateLimiter: ratelimit.NewLimiter(rlConfig),
		jwtService:  NewJWTService(cfg.JWT),
		logger:      logging.OrDiscard(cfg.Logger),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_repost_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}
	if err := cfg.Registerer.Register(s.requests); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
		}
		s.requests = already.ExistingCollector.(*prometheus.CounterVec)
	}

	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	protected := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	mux.Handle("POST /invocations", protected(s.handleCreateInvocation))
	mux.Handle("POST /invocations/stream", protected(s.handleStreamInvocation))
	mux.Handle("GET /invocations", protected(s.handleListInvocations))
	mux.Handle("GET /invocations/{id}", protected(s.handleGetInvocation))
	mux.Handle("POST /reviews", protected(s.handleReview))

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Synchronous invocations wait on the LLM
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// JWT returns the token service, for issuing reviewer tokens
func (s *Server) JWT() *JWTService {
	return s.jwtService
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.httpServer.Addr).Info("Server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.rateLimiter.Stop()
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients over their per-endpoint budget
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging logs each request and counts it by route pattern and status
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.logger.WithFields(logging.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"remote_addr": r.RemoteAddr,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("HTTP request")
	})
}

// handleHealth runs every registered health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.deps.HealthChecks))
	status, code := "ok", http.StatusOK
	for name, check := range s.deps.HealthChecks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	s.jsonResponse(w, code, map[string]any{"status": status, "checks": checks})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Error encoding JSON response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorFromErr maps err to a status and writes it. Internal errors are logged, not echoed.
func (s *Server) errorFromErr(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		s.errorResponse(w, status, "Internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// extractClientID uses the IP from RemoteAddr. Forwarded headers are not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		seconds := max(int(math.Ceil(info.RetryAfter.Seconds())), 1)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.WithFields(logging.Fields{
		"client": s.extractClientID(r),
		"path":   r.URL.Path,
		"limit":  info.Limit,
	}).Warn("Rate limit exceeded")

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
