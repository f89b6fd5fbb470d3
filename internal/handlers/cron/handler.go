// Package cron exposes the background jobs over an authenticated HTTP trigger
// surface, so an external scheduler can fire them and operators can re-run a
// job for a specific day.
package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/submgr/billing/internal/domain/ports"
	"github.com/submgr/billing/pkg/observability"
	"github.com/submgr/billing/pkg/shutdown"
	"github.com/submgr/billing/pkg/timeutil"
)

// JobFunc runs one background job for the given day
type JobFunc func(ctx context.Context, today time.Time) error

// Handler authenticates trigger requests and dispatches them to jobs
type Handler struct {
	jobs    map[string]JobFunc
	secret  string
	tracker *shutdown.JobTracker
	logger  ports.Logger
}

// NewHandler creates a trigger handler. The secret guards every job endpoint.
func NewHandler(secret string, tracker *shutdown.JobTracker, logger ports.Logger) *Handler {
	return &Handler{
		jobs:    make(map[string]JobFunc),
		secret:  secret,
		tracker: tracker,
		logger:  logger,
	}
}

// RegisterJob binds a job name to its run function
func (h *Handler) RegisterJob(name string, fn JobFunc) {
	h.jobs[name] = fn
}

// Run executes a registered job outside HTTP, for scheduled runs. The job is
// tracked so graceful shutdown waits for it.
func (h *Handler) Run(name string, today time.Time) {
	fn, ok := h.jobs[name]
	if !ok {
		h.logger.Error("unknown job", ports.String("job", name))
		return
	}

	ran := h.tracker.Run(func() {
		h.runJob(context.Background(), name, fn, today)
	})
	if !ran {
		h.logger.Warn("job skipped, shutdown in progress", ports.String("job", name))
	}
}

func (h *Handler) runJob(ctx context.Context, name string, fn JobFunc, today time.Time) error {
	runID := uuid.NewString()
	started := time.Now()

	h.logger.Info("job started",
		ports.String("job", name),
		ports.String("run_id", runID),
		ports.Date("as_of", today))

	err := fn(ctx, today)
	observability.ObserveJobRun(name, started, err)

	if err != nil {
		h.logger.Error("job failed",
			ports.String("job", name),
			ports.String("run_id", runID),
			ports.Err(err))
		return err
	}

	h.logger.Info("job finished",
		ports.String("job", name),
		ports.String("run_id", runID),
		ports.String("elapsed", time.Since(started).String()))
	return nil
}

// triggerRequest is the optional body of a trigger call
type triggerRequest struct {
	AsOfDate *string `json:"as_of_date"` // ISO date, defaults to today
}

type triggerResponse struct {
	Success     bool   `json:"success"`
	Job         string `json:"job"`
	AsOfDate    string `json:"as_of_date"`
	Error       string `json:"error,omitempty"`
	ProcessedAt string `json:"processed_at"`
}

// Mux returns the HTTP mux with one POST endpoint per registered job plus a
// health endpoint
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	for name := range h.jobs {
		name := name
		mux.HandleFunc("/cron/"+name, func(w http.ResponseWriter, r *http.Request) {
			h.trigger(w, r, name)
		})
	}
	mux.HandleFunc("/cron/health", h.healthCheck)
	return mux
}

func (h *Handler) trigger(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	if !h.authenticate(r) {
		h.logger.Warn("unauthorized trigger request",
			ports.String("job", name),
			ports.String("remote_addr", r.RemoteAddr))
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req triggerRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
	}

	today := timeutil.Today()
	if req.AsOfDate != nil {
		parsed, err := timeutil.ParseDate("2006-01-02", *req.AsOfDate)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid as_of_date: %v", err))
			return
		}
		today = parsed
	}

	fn := h.jobs[name]
	var runErr error
	ran := h.tracker.Run(func() {
		runErr = h.runJob(r.Context(), name, fn, today)
	})
	if !ran {
		h.respondError(w, http.StatusServiceUnavailable, "shutting down")
		return
	}

	resp := triggerResponse{
		Success:     runErr == nil,
		Job:         name,
		AsOfDate:    today.Format("2006-01-02"),
		ProcessedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if runErr != nil {
		resp.Error = runErr.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if !resp.Success {
		w.WriteHeader(http.StatusInternalServerError)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("response encoding failed", ports.Err(err))
	}
}

// authenticate verifies the trigger request is authorized
func (h *Handler) authenticate(r *http.Request) bool {
	if secret := r.Header.Get("X-Cron-Secret"); secret != "" && secret == h.secret {
		return true
	}
	if auth := r.Header.Get("Authorization"); auth == "Bearer "+h.secret {
		return true
	}
	return false
}

func (h *Handler) respondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
