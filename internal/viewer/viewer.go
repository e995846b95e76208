// Package viewer serves published reports read-only over HTTP.
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"reports/internal/domain"
	"reports/internal/export"
	"reports/internal/service"
)

// Server routes:
//
//	GET /api/reports            published report summaries
//	GET /api/reports/{path...}  layout JSON of one report
//	GET /api/outline/{path...}  headings of one report
//	GET /api/export/pdf/{path...}   PDF render plan
//	GET /api/export/docx/{path...}  DOCX paragraph plan
type Server struct {
	store  domain.ReportStore
	logger *log.Logger
	router chi.Router
}

func New(store domain.ReportStore, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{store: store, logger: logger.WithPrefix("viewer")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/reports", s.handleList)
		r.Get("/reports/*", s.withReport(func(w http.ResponseWriter, rep *domain.Report) {
			writeJSON(w, http.StatusOK, rep)
		}))
		r.Get("/outline/*", s.withReport(func(w http.ResponseWriter, rep *domain.Report) {
			writeJSON(w, http.StatusOK, export.Outline(rep.Layout))
		}))
		r.Get("/export/pdf/*", s.withReport(func(w http.ResponseWriter, rep *domain.Report) {
			writeJSON(w, http.StatusOK, export.PlanPDF(rep.Layout))
		}))
		r.Get("/export/docx/*", s.withReport(func(w http.ResponseWriter, rep *domain.Report) {
			writeJSON(w, http.StatusOK, export.PlanDOCX(rep.Layout))
		}))
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	s.router = r
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListReports(r.Context())
	if err != nil {
		s.logger.Error("list reports", "err", err)
		writeError(w, http.StatusInternalServerError, "could not list reports")
		return
	}
	if list == nil {
		list = []domain.ReportSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

// withReport resolves the wildcard path to a stored report.
func (s *Server) withReport(fn func(http.ResponseWriter, *domain.Report)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := service.CleanPath(chi.URLParam(r, "*"))
		if err != nil {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		rep, err := s.store.LoadReport(r.Context(), path)
		if errors.Is(err, domain.ErrReportNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("report not found: %s", path))
			return
		}
		if err != nil {
			s.logger.Error("load report", "path", path, "err", err)
			writeError(w, http.StatusInternalServerError, "could not load report")
			return
		}
		fn(w, rep)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start),
			"id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
