package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/modelarena/modelarena/internal/comparison"
	"github.com/modelarena/modelarena/internal/database"
	"github.com/modelarena/modelarena/internal/experiment"
	"github.com/modelarena/modelarena/internal/monitoring"
	"github.com/modelarena/modelarena/internal/provider"
	"github.com/modelarena/modelarena/internal/registry"
	"github.com/modelarena/modelarena/internal/workflow"
)

// Server holds dependencies for API handlers.
type Server struct {
	registry    *registry.Registry
	repo        database.Repo
	engine      *workflow.Engine
	comparator  *comparison.Comparator
	experiments *experiment.Manager
	tracker     *monitoring.Tracker
}

// NewServer creates a new API server.
func NewServer(reg *registry.Registry, repo database.Repo) *Server {
	return &Server{
		registry:    reg,
		repo:        repo,
		engine:      workflow.New(reg, repo),
		comparator:  comparison.New(reg, repo),
		experiments: experiment.New(reg, repo),
		tracker:     monitoring.New(repo),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/models", s.handleListModels)
	mux.HandleFunc("GET /api/models/{id}", s.handleModelInfo)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/generate/stream", s.handleGenerateStream)
	mux.HandleFunc("POST /api/workflow", s.handleWorkflow)
	mux.HandleFunc("GET /api/workflows", s.handleListWorkflows)
	mux.HandleFunc("POST /api/compare", s.handleCompare)
	mux.HandleFunc("GET /api/comparisons", s.handleListComparisons)
	mux.HandleFunc("POST /api/experiment", s.handleCreateExperiment)
	mux.HandleFunc("GET /api/experiments", s.handleListExperiments)
	mux.HandleFunc("POST /api/experiment/{id}/test", s.handleExperimentTest)
	mux.HandleFunc("POST /api/experiment/{id}/record", s.handleExperimentRecord)
	mux.HandleFunc("GET /api/experiment/{id}/stats", s.handleExperimentStats)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/costs", s.handleCosts)
	mux.HandleFunc("GET /api/costs/daily", s.handleDailyCosts)
	mux.HandleFunc("GET /api/budget", s.handleBudget)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "modelarena",
		"models":    s.registry.IDs(),
		"templates": workflow.TemplateNames(),
	})
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	ids := s.registry.IDs()
	writeJSON(w, http.StatusOK, map[string]any{
		"models": ids,
		"count":  len(ids),
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.registry.Info(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type generateRequest struct {
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

func (r *generateRequest) options() provider.Options {
	opts := provider.DefaultOptions()
	if r.Temperature != nil {
		opts.Temperature = *r.Temperature
	}
	if r.MaxTokens != nil {
		opts.MaxTokens = *r.MaxTokens
	}
	return opts
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" || req.Model == "" {
		writeError(w, http.StatusBadRequest, "prompt and model are required")
		return
	}

	model, err := s.registry.Get(req.Model)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	result, err := model.Generate(r.Context(), req.Prompt, req.options())
	s.logGeneration(r.Context(), req.Model, req.Prompt, result, err)
	if err != nil {
		log.Printf("generate via %s failed: %v", req.Model, err)
		writeError(w, http.StatusBadGateway, "generation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"model":           req.Model,
		"response":        result.Response,
		"tokens":          result.Tokens,
		"cost":            result.Cost,
		"latency_seconds": result.LatencySeconds,
	})
}

func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" || req.Model == "" {
		writeError(w, http.StatusBadRequest, "prompt and model are required")
		return
	}

	model, err := s.registry.Get(req.Model)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	chunks, errs := model.GenerateStream(r.Context(), req.Prompt, req.options())

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for chunk := range chunks {
		fmt.Fprint(w, chunk.Text)
		flusher.Flush()
	}
	if err := <-errs; err != nil {
		// Headers are already sent; the truncated body is the only signal.
		log.Printf("stream via %s failed: %v", req.Model, err)
	}
}

type workflowRequest struct {
	Template string `json:"template"`
	Input    string `json:"input"`
	Model    string `json:"model"`
}

func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Template == "" || req.Input == "" || req.Model == "" {
		writeError(w, http.StatusBadRequest, "template, input, and model are required")
		return
	}
	if _, err := s.registry.Get(req.Model); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	run, err := s.engine.ExecuteTemplate(r.Context(), req.Template, req.Model, req.Input)
	if err != nil {
		if errors.Is(err, workflow.ErrUnknownTemplate) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("workflow %s failed: %v", req.Template, err)
		if run == nil {
			// Steps ran but the run could not be persisted.
			writeError(w, http.StatusInternalServerError, "workflow failed")
			return
		}
		// The truncated run is still useful to the caller.
		writeJSON(w, http.StatusBadGateway, run)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	runs, err := s.repo.ListWorkflowRuns(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if runs == nil {
		runs = []database.WorkflowRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

type compareRequest struct {
	Models []string `json:"models"`
	Prompt string   `json:"prompt"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" || len(req.Models) < 2 {
		writeError(w, http.StatusBadRequest, "prompt and at least 2 models are required")
		return
	}

	cmp, err := s.comparator.Compare(r.Context(), req.Models, req.Prompt)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownModel) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "comparison failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"comparison": cmp,
		"summary":    comparison.Summarize(cmp),
	})
}

func (s *Server) handleListComparisons(w http.ResponseWriter, r *http.Request) {
	cmps, err := s.repo.ListComparisons(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if cmps == nil {
		cmps = []database.Comparison{}
	}
	writeJSON(w, http.StatusOK, cmps)
}

type experimentRequest struct {
	Name   string `json:"name"`
	ModelA string `json:"model_a"`
	ModelB string `json:"model_b"`
}

func (s *Server) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	var req experimentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.ModelA == "" || req.ModelB == "" {
		writeError(w, http.StatusBadRequest, "name, model_a, and model_b are required")
		return
	}

	e, err := s.experiments.Create(r.Context(), req.Name, req.ModelA, req.ModelB)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownModel) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "create experiment failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"experiment_id": e.ID})
}

func (s *Server) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	exps, err := s.experiments.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if exps == nil {
		exps = []database.Experiment{}
	}
	writeJSON(w, http.StatusOK, exps)
}

type experimentTestRequest struct {
	UserID string `json:"user_id"`
	Prompt string `json:"prompt,omitempty"`
}

func (s *Server) handleExperimentTest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req experimentTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	// Without a prompt this is pure routing: report the variant only.
	if req.Prompt == "" {
		e, err := s.repo.GetExperiment(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		if e == nil {
			writeError(w, http.StatusNotFound, "experiment not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"variant": experiment.AssignVariant(id, req.UserID),
		})
		return
	}

	variant, result, err := s.experiments.GenerateForUser(r.Context(), id, req.UserID, req.Prompt)
	if err != nil {
		if errors.Is(err, experiment.ErrUnknownExperiment) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("experiment %s test failed: %v", id, err)
		writeError(w, http.StatusBadGateway, "generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"variant":         variant,
		"response":        result.Response,
		"tokens":          result.Tokens,
		"cost":            result.Cost,
		"latency_seconds": result.LatencySeconds,
	})
}

type experimentRecordRequest struct {
	Variant string `json:"variant"`
	Success bool   `json:"success"`
	Rating  *int   `json:"rating,omitempty"`
}

func (s *Server) handleExperimentRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req experimentRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.experiments.RecordResult(r.Context(), id, req.Variant, req.Success, req.Rating)
	switch {
	case errors.Is(err, experiment.ErrInvalidVariant):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, experiment.ErrUnknownExperiment):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "record failed")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
	}
}

func (s *Server) handleExperimentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.experiments.GetStats(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, experiment.ErrUnknownExperiment) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if model := r.URL.Query().Get("model"); model != "" {
		m, err := s.tracker.ModelMetrics(r.Context(), model)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		writeJSON(w, http.StatusOK, m)
		return
	}

	all, err := s.tracker.AllMetrics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if all == nil {
		all = []database.ModelMetrics{}
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleCosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if model := r.URL.Query().Get("model"); model != "" {
		c, err := s.tracker.ModelCosts(ctx, model)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		writeJSON(w, http.StatusOK, c)
		return
	}

	all, err := s.tracker.AllCosts(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if all == nil {
		all = []database.ModelCosts{}
	}
	total, err := s.tracker.TotalCost(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models":     all,
		"total_cost": total,
	})
}

func (s *Server) handleDailyCosts(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive number")
			return
		}
		days = n
	}

	daily, err := s.tracker.DailyCosts(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if daily == nil {
		daily = []database.DailyCost{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"days":  days,
		"daily": daily,
	})
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("threshold")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "threshold is required")
		return
	}
	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil || threshold < 0 {
		writeError(w, http.StatusBadRequest, "threshold must be a non-negative number")
		return
	}

	status, err := s.tracker.CheckBudgetAlert(r.Context(), threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// logGeneration records a direct generation call, successful or not.
func (s *Server) logGeneration(ctx context.Context, modelID, prompt string, result *provider.Result, genErr error) {
	rec := &database.GenerationRecord{
		ID:        uuid.NewString(),
		ModelID:   modelID,
		Prompt:    prompt,
		Success:   genErr == nil,
		CreatedAt: time.Now().UTC(),
	}
	if result != nil {
		resp := result.Response
		rec.Response = &resp
		rec.Tokens = result.Tokens
		rec.Cost = result.Cost
		rec.LatencySeconds = result.LatencySeconds
	}
	if err := s.repo.InsertGeneration(ctx, rec); err != nil {
		log.Printf("log generation for %s: %v", modelID, err)
	}
}

func queryLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 10
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
