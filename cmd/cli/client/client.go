// Package client wraps HTTP calls to the ModelArena API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/modelarena/modelarena/internal/comparison"
	"github.com/modelarena/modelarena/internal/database"
	"github.com/modelarena/modelarena/internal/experiment"
	"github.com/modelarena/modelarena/internal/registry"
)

// Client talks to a running ModelArena server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting the given base URL (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
}

// GenerateResult is the response from POST /api/generate.
type GenerateResult struct {
	Model          string  `json:"model"`
	Response       string  `json:"response"`
	Tokens         int     `json:"tokens"`
	Cost           float64 `json:"cost"`
	LatencySeconds float64 `json:"latency_seconds"`
}

// ComparisonResponse pairs the full record with its display summary.
type ComparisonResponse struct {
	Comparison database.Comparison `json:"comparison"`
	Summary    comparison.Summary  `json:"summary"`
}

// CostsResponse is the unscoped GET /api/costs payload.
type CostsResponse struct {
	Models    []database.ModelCosts `json:"models"`
	TotalCost float64               `json:"total_cost"`
}

// BudgetStatus is the GET /api/budget payload.
type BudgetStatus struct {
	TotalCost float64 `json:"total_cost"`
	Threshold float64 `json:"threshold"`
	Alert     bool    `json:"alert"`
}

// ExperimentTestResult is the POST /api/experiment/{id}/test payload.
type ExperimentTestResult struct {
	Variant        string  `json:"variant"`
	Response       string  `json:"response,omitempty"`
	Tokens         int     `json:"tokens,omitempty"`
	Cost           float64 `json:"cost,omitempty"`
	LatencySeconds float64 `json:"latency_seconds,omitempty"`
}

// ListModels fetches GET /api/models.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var body struct {
		Models []string `json:"models"`
	}
	if err := c.doGet(ctx, c.baseURL+"/api/models", &body); err != nil {
		return nil, err
	}
	return body.Models, nil
}

// ModelInfo fetches GET /api/models/{id}.
func (c *Client) ModelInfo(ctx context.Context, id string) (*registry.Info, error) {
	var info registry.Info
	if err := c.doGet(ctx, c.baseURL+"/api/models/"+url.PathEscape(id), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Generate submits POST /api/generate.
func (c *Client) Generate(ctx context.Context, model, prompt string) (*GenerateResult, error) {
	var result GenerateResult
	err := c.doPost(ctx, c.baseURL+"/api/generate", map[string]string{
		"model":  model,
		"prompt": prompt,
	}, http.StatusOK, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GenerateStream submits POST /api/generate/stream and copies the chunked
// response body to w as it arrives.
func (c *Client) GenerateStream(ctx context.Context, model, prompt string, w io.Writer) error {
	payload, _ := json.Marshal(map[string]string{"model": model, "prompt": prompt})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate/stream", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.readError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// RunWorkflow submits POST /api/workflow.
func (c *Client) RunWorkflow(ctx context.Context, template, model, input string) (*database.WorkflowRun, error) {
	var run database.WorkflowRun
	err := c.doPost(ctx, c.baseURL+"/api/workflow", map[string]string{
		"template": template,
		"model":    model,
		"input":    input,
	}, http.StatusOK, &run)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListWorkflows fetches GET /api/workflows.
func (c *Client) ListWorkflows(ctx context.Context, limit int) ([]database.WorkflowRun, error) {
	var runs []database.WorkflowRun
	if err := c.doGet(ctx, c.withLimit("/api/workflows", limit), &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// Compare submits POST /api/compare.
func (c *Client) Compare(ctx context.Context, models []string, prompt string) (*ComparisonResponse, error) {
	var result ComparisonResponse
	err := c.doPost(ctx, c.baseURL+"/api/compare", map[string]any{
		"models": models,
		"prompt": prompt,
	}, http.StatusOK, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListComparisons fetches GET /api/comparisons.
func (c *Client) ListComparisons(ctx context.Context, limit int) ([]database.Comparison, error) {
	var cmps []database.Comparison
	if err := c.doGet(ctx, c.withLimit("/api/comparisons", limit), &cmps); err != nil {
		return nil, err
	}
	return cmps, nil
}

// CreateExperiment submits POST /api/experiment and returns the new id.
func (c *Client) CreateExperiment(ctx context.Context, name, modelA, modelB string) (string, error) {
	var result struct {
		ExperimentID string `json:"experiment_id"`
	}
	err := c.doPost(ctx, c.baseURL+"/api/experiment", map[string]string{
		"name":    name,
		"model_a": modelA,
		"model_b": modelB,
	}, http.StatusCreated, &result)
	if err != nil {
		return "", err
	}
	return result.ExperimentID, nil
}

// ListExperiments fetches GET /api/experiments.
func (c *Client) ListExperiments(ctx context.Context) ([]database.Experiment, error) {
	var exps []database.Experiment
	if err := c.doGet(ctx, c.baseURL+"/api/experiments", &exps); err != nil {
		return nil, err
	}
	return exps, nil
}

// TestExperiment submits POST /api/experiment/{id}/test. Prompt may be empty
// to only resolve the variant.
func (c *Client) TestExperiment(ctx context.Context, id, userID, prompt string) (*ExperimentTestResult, error) {
	var result ExperimentTestResult
	payload := map[string]string{"user_id": userID}
	if prompt != "" {
		payload["prompt"] = prompt
	}
	err := c.doPost(ctx, c.baseURL+"/api/experiment/"+id+"/test", payload, http.StatusOK, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RecordTrial submits POST /api/experiment/{id}/record.
func (c *Client) RecordTrial(ctx context.Context, id, variant string, success bool, rating *int) error {
	payload := map[string]any{"variant": variant, "success": success}
	if rating != nil {
		payload["rating"] = *rating
	}
	return c.doPost(ctx, c.baseURL+"/api/experiment/"+id+"/record", payload, http.StatusOK, nil)
}

// GetStats fetches GET /api/experiment/{id}/stats.
func (c *Client) GetStats(ctx context.Context, id string) (*experiment.Stats, error) {
	var stats experiment.Stats
	if err := c.doGet(ctx, c.baseURL+"/api/experiment/"+id+"/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ModelMetrics fetches GET /api/metrics?model= for one model.
func (c *Client) ModelMetrics(ctx context.Context, model string) (*database.ModelMetrics, error) {
	var m database.ModelMetrics
	u := c.baseURL + "/api/metrics?model=" + url.QueryEscape(model)
	if err := c.doGet(ctx, u, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// AllMetrics fetches GET /api/metrics for every model.
func (c *Client) AllMetrics(ctx context.Context) ([]database.ModelMetrics, error) {
	var all []database.ModelMetrics
	if err := c.doGet(ctx, c.baseURL+"/api/metrics", &all); err != nil {
		return nil, err
	}
	return all, nil
}

// Costs fetches GET /api/costs (all models plus the grand total).
func (c *Client) Costs(ctx context.Context) (*CostsResponse, error) {
	var resp CostsResponse
	if err := c.doGet(ctx, c.baseURL+"/api/costs", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DailyCosts fetches GET /api/costs/daily for the last N days.
func (c *Client) DailyCosts(ctx context.Context, days int) ([]database.DailyCost, error) {
	var resp struct {
		Daily []database.DailyCost `json:"daily"`
	}
	u := c.baseURL + "/api/costs/daily"
	if days > 0 {
		u += fmt.Sprintf("?days=%d", days)
	}
	if err := c.doGet(ctx, u, &resp); err != nil {
		return nil, err
	}
	return resp.Daily, nil
}

// Budget fetches GET /api/budget?threshold=.
func (c *Client) Budget(ctx context.Context, threshold float64) (*BudgetStatus, error) {
	var status BudgetStatus
	u := fmt.Sprintf("%s/api/budget?threshold=%g", c.baseURL, threshold)
	if err := c.doGet(ctx, u, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) withLimit(path string, limit int) string {
	u := c.baseURL + path
	if limit > 0 {
		u += fmt.Sprintf("?limit=%d", limit)
	}
	return u
}

func (c *Client) doGet(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.readError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) doPost(ctx context.Context, rawURL string, payload any, wantStatus int, out any) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return c.readError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) readError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("API error %d: %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
}
