// Package api exposes the HTTP interface for the archiver service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stackdown/stackdown/internal/archive"
	"github.com/stackdown/stackdown/internal/config"
	"github.com/stackdown/stackdown/internal/metrics"
	"github.com/stackdown/stackdown/internal/pipeline"
	"github.com/stackdown/stackdown/internal/search"
)

// Server wires HTTP handlers to the pipeline, search engine, and store.
type Server struct {
	router   chi.Router
	pipeline *pipeline.Pipeline
	engine   *search.Engine
	store    archive.DocumentStore
	cfg      config.Config
	logger   *zap.Logger
	scraping atomic.Bool
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	p *pipeline.Pipeline,
	engine *search.Engine,
	store archive.DocumentStore,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		pipeline: p,
		engine:   engine,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/scrape", s.triggerScrape)
		r.Get("/scrape/status", s.scrapeStatus)
		r.Get("/search", s.search)
		r.Get("/files/{hash}", s.getFile)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// triggerScrape starts the full configured download asynchronously. While a
// run is already in flight the call is an idempotent no-op.
func (s *Server) triggerScrape(w http.ResponseWriter, _ *http.Request) {
	if !s.scraping.CompareAndSwap(false, true) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "already running"})
		return
	}

	categories, err := config.LoadCategories(s.cfg.Scrape.CategoriesFile)
	if err != nil {
		s.scraping.Store(false)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	go func() {
		defer s.scraping.Store(false)
		if err := s.pipeline.DownloadAll(context.Background(), categories, s.cfg.Scrape.MaxPerAuthor); err != nil {
			s.logger.Error("scrape run failed", zap.Error(err))
		}
	}()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) scrapeStatus(w http.ResponseWriter, _ *http.Request) {
	status := "idle"
	if s.scraping.Load() {
		status = "running"
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	keywords := strings.Fields(r.URL.Query().Get("q"))
	if len(keywords) == 0 {
		s.writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	topK := s.cfg.Search.TopK
	if raw := r.URL.Query().Get("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil || k <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid parameter k")
			return
		}
		topK = k
	}

	results, scanned, err := s.engine.Search(keywords, topK)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"scanned": scanned,
	})
}

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	body, err := s.store.Read(hash)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Error("write document response failed", zap.Error(err))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal server error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
