// Package api exposes the statistic drivers over HTTP as JSON endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"permcluster/domain/core"
	"permcluster/internal"
	"permcluster/internal/config"
	"permcluster/ports"
)

// Service wires the HTTP surface to the statistic drivers and an optional
// result repository.
type Service struct {
	cfg  *config.Config
	log  *internal.Logger
	repo ports.ResultRepository
}

// NewService builds a Service. repo may be nil; results are then not
// persisted and result lookup returns 404.
func NewService(cfg *config.Config, log *internal.Logger, repo ports.ResultRepository) *Service {
	return &Service{cfg: cfg, log: log, repo: repo}
}

// Router assembles the chi routing tree.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/tests/ttest", s.handleTTest)
		r.Post("/tests/corr", s.handleCorr)
		r.Get("/results/{runID}", s.handleGetResult)
	})
	return r
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Service) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + s.cfg.Server.Port,
		Handler: s.Router(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleGetResult(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		respondError(w, http.StatusNotFound, "result storage not configured")
		return
	}
	id, err := core.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.repo.Get(r.Context(), id)
	if err != nil {
		s.log.Warn("result lookup failed: %v", err)
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func statusFor(err error) int {
	switch {
	case core.IsConfigError(err), core.IsDataError(err):
		return http.StatusBadRequest
	case core.IsUsageError(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
