// Package server exposes the origin resolver over HTTP so that clients which
// cannot reach origins themselves can ask for an ads.txt by domain.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/service"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/domainservice"
)

// Response messages
const (
	MsgMethodNotAllowed = "Method not allowed"
	MsgDomainRequired   = "Domain parameter is required"
	MsgInvalidDomain    = "Invalid domain"
	MsgNotFound         = "No ads.txt found for this domain"
	MsgURLRequired      = "URL parameter is required"
	MsgInternal         = "Internal server error"
)

// Metrics is the part of the metrics collector the service uses
type Metrics interface {
	Handler() http.Handler
	ObserveRetrieval(domain, outcome, source string, elapsed time.Duration)
}

// Config holds the service dependencies. Analyzer and Metrics are optional.
type Config struct {
	Resolver service.OriginResolver
	Analyzer service.URLAnalyzer
	Metrics  Metrics
	Logger   zerolog.Logger
}

// Server is the resolver HTTP service
type Server struct {
	config Config
	router chi.Router
	logger zerolog.Logger
}

// ResolveResponse is the body of /resolve
type ResolveResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates the service and its routes
func New(config Config) *Server {
	s := &Server{config: config, logger: config.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.Recoverer, cors)

	r.HandleFunc("/resolve", s.handleResolve)
	r.HandleFunc("/api/fetch-ads-txt", s.handleResolve)
	r.HandleFunc("/api/analyze", s.handleAnalyze)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if config.Metrics != nil {
		r.Handle("/metrics", config.Metrics.Handler())
	}

	s.router = r
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	raw := r.URL.Query().Get("domain")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgDomainRequired})
		return
	}

	domain := domainservice.Sanitize(raw)
	if domain == "" || !strings.Contains(domain, ".") {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgInvalidDomain})
		return
	}

	start := time.Now()
	result, err := s.config.Resolver.Resolve(r.Context(), domain)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		s.observe(domain, "found", result.Source, elapsed)
		writeJSON(w, http.StatusOK, ResolveResponse{Success: true, URL: result.FinalURL, Content: result.Content})
	case errors.Is(err, entity.ErrNotFound):
		s.observe(domain, "not_found", "", elapsed)
		writeJSON(w, http.StatusNotFound, ResolveResponse{Success: false, Error: MsgNotFound})
	case r.Context().Err() != nil:
		// client went away
		s.observe(domain, "canceled", "", elapsed)
	default:
		s.logger.Error().Err(err).Str("domain", domain).Msg("resolve failed")
		writeJSON(w, http.StatusInternalServerError, ResolveResponse{Success: false, Error: MsgInternal})
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if s.config.Analyzer == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
		return
	}

	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgURLRequired})
		return
	}

	analysis, err := s.config.Analyzer.Analyze(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgInvalidDomain})
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) observe(domain, outcome, source string, elapsed time.Duration) {
	s.logger.Info().Str("domain", domain).Str("outcome", outcome).Dur("elapsed", elapsed).Msg("resolve")
	if s.config.Metrics != nil {
		s.config.Metrics.ObserveRetrieval(domain, outcome, source, elapsed)
	}
}

// allowGet answers preflight requests and rejects anything but GET
func allowGet(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodGet:
		return true
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return false
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: MsgMethodNotAllowed})
		return false
	}
}

// cors allows any origin to call the service
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
