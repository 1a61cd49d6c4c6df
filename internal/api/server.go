// Package api exposes the HTTP control surface for the harvester service.
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

	"github.com/shelterscout/petharvester/internal/controller"
	"github.com/shelterscout/petharvester/internal/harvest"
	"github.com/shelterscout/petharvester/internal/metrics"
)

// Server wires HTTP handlers to the controller and record store.
type Server struct {
	router     chi.Router
	controller *controller.Controller
	records    harvest.RecordStore
	secret     harvest.SecretProvider
	logger     *zap.Logger

	// baseCtx parents the controller loop so it outlives the /start
	// request that launched it.
	baseCtx context.Context
}

// NewServer constructs a Server with middleware and routes. baseCtx
// bounds the lifetime of loops started through the API.
func NewServer(
	baseCtx context.Context,
	ctrl *controller.Controller,
	records harvest.RecordStore,
	secret harvest.SecretProvider,
	logger *zap.Logger,
) *Server {
	s := &Server{
		controller: ctrl,
		records:    records,
		secret:     secret,
		logger:     logger,
		baseCtx:    baseCtx,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/", s.root)
	r.Get("/health", s.health)
	r.Get("/status", s.status)
	r.Get("/rate", s.rate)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.requireKey)
		r.Post("/start", s.start)
		r.Post("/stop", s.stop)
		r.Get("/pets", s.listPets)
		r.Get("/pets.csv", s.downloadTable)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "petharvester",
		"running": s.controller.Running(),
		"endpoints": []string{
			"GET /health",
			"GET /status",
			"GET /rate",
			"GET /metrics",
			"POST /start",
			"POST /stop",
			"GET /pets",
			"GET /pets.csv",
		},
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"running": s.controller.Running(),
	})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) rate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items_per_minute": s.controller.Rate(),
		"window_minutes":   controller.DefaultRateWindow.Minutes(),
	})
}

func (s *Server) start(w http.ResponseWriter, _ *http.Request) {
	if err := s.controller.Start(s.baseCtx); err != nil {
		if errors.Is(err, controller.ErrAlreadyRunning) {
			writeJSON(w, http.StatusConflict, map[string]string{"status": "already_running"})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("harvesting started via API")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) stop(w http.ResponseWriter, _ *http.Request) {
	if !s.controller.Stop() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "not_running"})
		return
	}
	s.logger.Info("harvesting stop requested via API")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

func (s *Server) listPets(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.ReadAll(r.Context())
	if err != nil {
		s.logger.Error("read table failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read records")
		return
	}
	pets := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		pet := make(map[string]string, len(rec.Fields)+1)
		pet[harvest.KeyColumn] = rec.Key
		for name, value := range rec.Fields {
			pet[name] = value
		}
		pets = append(pets, pet)
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(pets), "pets": pets})
}

func (s *Server) downloadTable(w http.ResponseWriter, r *http.Request) {
	data, err := s.records.Export(r.Context())
	if err != nil {
		s.logger.Error("export table failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to export records")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="pets.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("write table download failed", zap.Error(err))
	}
}

// requireKey admits requests carrying the shared token in the "key" query
// parameter or the X-API-Key header.
func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := s.secret.Token()
		if err != nil {
			s.logger.Error("endpoint key unavailable", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "authorization unavailable")
			return
		}
		key := r.URL.Query().Get("key")
		if key == "" {
			key = r.Header.Get("X-API-Key")
		}
		if key != token {
			writeError(w, http.StatusUnauthorized, "invalid or missing key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
