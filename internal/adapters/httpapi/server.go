package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/cors"

	"stockIndicators/internal/domain"
	"stockIndicators/internal/indicators"
	"stockIndicators/internal/ports"
)

const defaultTimeout = 10 * time.Second

// SeriesService is the part of the indicator service exposed over HTTP.
type SeriesService interface {
	Names() []string
	Output(ctx context.Context, name string) (indicators.Output, error)
	Presentation(name string) (indicators.Presentation, error)
	SetPresentation(name string, p indicators.Presentation) error
	Prices() []domain.PricePoint
}

// Config holds the server configuration.
type Config struct {
	Addr    string
	Service SeriesService // required
	Metrics http.Handler  // mounted at /metrics when set
	Logger  ports.Logger  // required
	Timeout time.Duration
}

// Server serves derived series to chart front-ends and exposes metrics.
type Server struct {
	srv     *http.Server
	router  chi.Router
	service SeriesService
	logger  ports.Logger
}

// New builds the router and HTTP server.
func New(cfg Config) (*Server, error) {
	if cfg.Service == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("service and logger are required for HTTP API: %w", ports.ErrConfigurationError)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	s := &Server{service: cfg.Service, logger: cfg.Logger}
	s.router = s.setupRouter(cfg)
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Timeout,
	}
	return s, nil
}

func (s *Server) setupRouter(cfg Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)
	r.Use(chimw.RequestID)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.Timeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/prices", s.handlePrices)
		r.Get("/series", s.handleListSeries)
		r.Route("/series/{name}", func(r chi.Router) {
			r.Get("/", s.handleSeries)
			r.Get("/presentation", s.handleGetPresentation)
			r.Put("/presentation", s.handlePutPresentation)
		})
	})
	return r
}

// requestLogger logs every request through ports.Logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug(r.Context(), "HTTP request", map[string]interface{}{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"elapsed":   time.Since(start).String(),
			"requestID": chimw.GetReqID(r.Context()),
		})
	})
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start(ctx context.Context) {
	go func() {
		s.logger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": s.srv.Addr})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, err, "HTTP server error")
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
