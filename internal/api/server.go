// Package api exposes the HTTP interface for the acquisition service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gardenshed/seedscout/internal/metrics"
	"github.com/gardenshed/seedscout/internal/pipeline"
	"github.com/gardenshed/seedscout/internal/plant"
)

const requestTimeout = 60 * time.Second

// Server wires HTTP handlers to the acquisition pipeline.
type Server struct {
	router   chi.Router
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(p *pipeline.Pipeline, logger *zap.Logger) *Server {
	s := &Server{pipeline: p, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1/plants", func(r chi.Router) {
		r.Post("/search", s.search)
		r.Post("/scrape-url", s.scrapeURL)
		r.Post("/search-images", s.searchImages)
		r.Post("/download-image", s.downloadImage)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Query string `json:"query"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	res, err := s.pipeline.Lookup(r.Context(), req.Query)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type scrapeURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) scrapeURL(w http.ResponseWriter, r *http.Request) {
	var req scrapeURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	res, err := s.pipeline.ScrapeURL(r.Context(), req.URL)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type searchImagesRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Server) searchImages(w http.ResponseWriter, r *http.Request) {
	var req searchImagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	candidates, err := s.pipeline.SearchImages(r.Context(), req.Query, req.Limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if candidates == nil {
		candidates = []plant.ImageCandidate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": candidates})
}

type downloadImageRequest struct {
	PlantID string `json:"plant_id"`
	URL     string `json:"url"`
}

func (s *Server) downloadImage(w http.ResponseWriter, r *http.Request) {
	var req downloadImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.PlantID == "" || req.URL == "" {
		writeError(w, http.StatusBadRequest, "plant_id and url required")
		return
	}
	path, err := s.pipeline.DownloadImage(r.Context(), req.PlantID, req.URL)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

// writeFailure maps pipeline errors onto HTTP statuses. Bot blocks get
// their own status so the client can prompt for manual entry.
func writeFailure(w http.ResponseWriter, err error) {
	var blocked *plant.BotBlockedError
	var unsupported *plant.UnsupportedURLError
	var httpStatus *plant.HTTPStatusError
	switch {
	case errors.As(err, &blocked):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error": err.Error(),
			"host":  blocked.Host,
		})
	case errors.As(err, &unsupported):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     err.Error(),
			"supported": unsupported.Supported,
		})
	case errors.Is(err, plant.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, plant.ErrEmptyExtraction):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, plant.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &httpStatus):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
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
			elapsed := time.Since(start)
			metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, elapsed)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", elapsed.Milliseconds()),
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
					writeError(w, http.StatusInternalServerError, "internal server error")
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
