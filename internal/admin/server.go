// Package admin exposes the daemon's HTTP surface: health, metrics, and
// scheduled-job control.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/scheduler"
)

// Server wires HTTP handlers to the scheduler.
type Server struct {
	router chi.Router
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewServer constructs a Server with routes attached.
func NewServer(sched *scheduler.Scheduler, logger *zap.Logger) *Server {
	s := &Server{sched: sched, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1/jobs", func(r chi.Router) {
		r.Get("/", s.listJobs)
		r.Route("/{job_id}", func(r chi.Router) {
			r.Get("/", s.jobStatus)
			r.Post("/run", s.runJob)
			r.Post("/pause", s.pauseJob)
			r.Post("/resume", s.resumeJob)
		})
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

func (s *Server) listJobs(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": s.sched.ListJobs()})
}

func (s *Server) jobStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.sched.JobStatus(chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) runJob(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.RunNow(chi.URLParam(r, "job_id")); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}

func (s *Server) pauseJob(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.PauseJob(chi.URLParam(r, "job_id")); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) resumeJob(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.ResumeJob(chi.URLParam(r, "job_id")); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("write response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
