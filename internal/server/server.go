// Package server exposes the QA pipeline over HTTP: batch submission, job
// and report lookup, the review queue, and aggregate stats.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meridian-health/provider-qa/internal/model"
	"github.com/meridian-health/provider-qa/internal/orchestrator"
	"github.com/meridian-health/provider-qa/internal/qa"
	"github.com/meridian-health/provider-qa/internal/store"
)

const defaultQueueLimit = 50

// Server wires the orchestrator and store into an HTTP handler. Batches run
// in the background; the mutex keeps the pipeline at one writer at a time.
type Server struct {
	orch  *orchestrator.Orchestrator
	store store.Store

	mu sync.Mutex
}

// New creates a Server over an orchestrator and its backing store.
func New(orch *orchestrator.Orchestrator, st store.Store) *Server {
	return &Server{orch: orch, store: st}
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/batch", s.handleBatch)
	r.Get("/jobs/{jobID}", s.handleJob)
	r.Get("/jobs/{jobID}/report", s.handleReport)
	r.Get("/workflow/queue", s.handleQueue)
	r.Get("/providers/{providerID}", s.handleProvider)
	r.Get("/stats", s.handleStats)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type batchRequest struct {
	Providers []model.ProviderRecord `json:"providers"`
	JobID     string                 `json:"job_id,omitempty"`
}

type batchResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	BatchSize int    `json:"batch_size"`
}

// handleBatch accepts a provider batch and processes it asynchronously. The
// job id is returned immediately so callers can poll /jobs/{id}.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Providers) == 0 {
		writeError(w, http.StatusBadRequest, "providers is required")
		return
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = "JOB_" + time.Now().UTC().Format("20060102_150405") + "_" + uuid.NewString()[:8]
	}

	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, err := s.orch.ProcessBatch(context.Background(), req.Providers, jobID); err != nil {
			zap.L().Error("background batch failed",
				zap.String("job_id", jobID), zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, batchResponse{
		JobID:     jobID,
		Status:    "processing",
		BatchSize: len(req.Providers),
	})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := s.orch.GetJobStatus(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := s.orch.GetJobStatus(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	report, err := s.orch.GenerateSummaryReport(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

type queueResponse struct {
	Queue []model.QueueItem `json:"queue"`
	Count int               `json:"count"`
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	limit := defaultQueueLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	items, err := s.orch.GetWorkflowQueue(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []model.QueueItem{}
	}

	writeJSON(w, http.StatusOK, queueResponse{Queue: items, Count: len(items)})
}

func (s *Server) handleProvider(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	row, err := s.store.GetProvider(r.Context(), providerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if row == nil {
		writeError(w, http.StatusNotFound, "provider not found")
		return
	}

	writeJSON(w, http.StatusOK, row)
}

type statsResponse struct {
	model.Stats
	KPI qa.KPIReport `json:"kpi"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Stats: *stats,
		KPI:   s.orch.Metrics().Report(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
