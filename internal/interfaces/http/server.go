// Package http serves the valuation engine as a local JSON API.
package http

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/mmvalue/internal/cache"
	"github.com/sawpanic/mmvalue/internal/config"
	"github.com/sawpanic/mmvalue/internal/config/tuning"
	"github.com/sawpanic/mmvalue/internal/config/weights"
	"github.com/sawpanic/mmvalue/internal/metrics"
	"github.com/sawpanic/mmvalue/internal/microstructure"
	"github.com/sawpanic/mmvalue/internal/net/ratelimit"
	"github.com/sawpanic/mmvalue/internal/valuation/composite"
	"github.com/sawpanic/mmvalue/internal/valuation/service"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Dependencies are the engine components behind the API. Memo and
// CacheState may be nil; everything else is required.
type Dependencies struct {
	Valuator   *composite.Valuator
	Depth      *microstructure.EffectiveDepthCalculator
	Weights    *weights.Loader
	Analysis   *service.Orchestrator
	Bounds     *tuning.Bounds
	Memo       *cache.Memo
	Metrics    *metrics.Registry
	CacheState func() string
	Version    string
}

// Server is the JSON API server
type Server struct {
	router  *mux.Router
	server  *http.Server
	config  config.ServerConfig
	deps    Dependencies
	limiter *ratelimit.Limiter
	health  *HealthHandler
}

// NewServer wires the routes; it does not bind the listener
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRegistry(nil)
	}

	s := &Server{
		router:  mux.NewRouter(),
		config:  cfg.Server,
		deps:    deps,
		limiter: ratelimit.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		health:  NewHealthHandler(deps.Version, cfg.Cache.Backend, deps.CacheState),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.corsMiddleware)

	s.router.Handle("/metrics", s.deps.Metrics.Handler()).Methods(http.MethodGet)
	s.router.Handle("/health", s.health).Methods(http.MethodGet)

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.Use(s.timeoutMiddleware)
	api.Use(s.jsonContentTypeMiddleware)

	api.HandleFunc("/weights/{preset}", s.handleWeights).Methods(http.MethodGet)
	api.HandleFunc("/valuation/composite", s.handleComposite).Methods(http.MethodPost)
	api.HandleFunc("/depth/effective", s.handleEffectiveDepth).Methods(http.MethodPost)
	api.HandleFunc("/depth/entity", s.handleEntityDepth).Methods(http.MethodPost)
	api.HandleFunc("/depth/snapshot", s.handleDepthSnapshot).Methods(http.MethodPost)
	api.HandleFunc("/depth/snapshot/{venue}/{symbol}", s.handleResetSpread).Methods(http.MethodDelete)
	api.HandleFunc("/analysis", s.handleAnalysis).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(s.notFound)
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestIDMiddleware tags each request with a short unique ID
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLoggingMiddleware logs every request and observes its latency
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.deps.Metrics.ObserveRequest(route, strconv.Itoa(wrapper.statusCode), duration)

		log.Info().
			Str("request_id", requestID(r)).
			Str("method", r.Method).
			Str("route", route).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Str("remote", r.RemoteAddr).
			Msg("REQ")
	})
}

// rateLimitMiddleware applies the per-client token bucket
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientKey(r)
		if !s.limiter.Allow(client) {
			if d := s.limiter.RetryAfter(client); d > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(d/time.Second)))
			}
			w.Header().Set("Content-Type", "application/json")
			s.writeError(w, r, http.StatusTooManyRequests, "rate_limited",
				"Too many requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// timeoutMiddleware bounds request processing
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// corsMiddleware allows localhost origins only
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start listens until Shutdown; it evicts idle rate-limit clients meanwhile
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.limiter.Sweep(10 * time.Minute); n > 0 {
					log.Debug().Int("clients", n).Msg("Evicted idle rate-limit clients")
				}
			case <-stop:
				return
			}
		}
	}()

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Address returns the configured listen address
func (s *Server) Address() string {
	return s.server.Addr
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return "unknown"
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// responseWrapper captures HTTP status codes for logging
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
