package database

import (
	"time"
)

// GenerationRecord is one row per generation call, successful or not.
// Append-only; failed calls carry a nil Response and zero cost.
type GenerationRecord struct {
	ID             string    `json:"id"`
	ModelID        string    `json:"model_id"`
	Prompt         string    `json:"prompt"`
	Response       *string   `json:"response,omitempty"`
	Tokens         int       `json:"tokens"`
	Cost           float64   `json:"cost"`
	LatencySeconds float64   `json:"latency_seconds"`
	Success        bool      `json:"success"`
	CreatedAt      time.Time `json:"created_at"`
}

// StepResult is the outcome of one completed workflow step.
type StepResult struct {
	Step           int     `json:"step"`
	ModelID        string  `json:"model_id"`
	Operation      string  `json:"operation,omitempty"`
	Prompt         string  `json:"prompt"`
	Response       string  `json:"response"`
	Tokens         int     `json:"tokens"`
	Cost           float64 `json:"cost"`
	LatencySeconds float64 `json:"latency_seconds"`
}

// WorkflowRun is the persisted record of one workflow execution. When a
// step fails the run is truncated to the completed steps and Success is
// false.
type WorkflowRun struct {
	ID          string       `json:"id"`
	WorkflowID  string       `json:"workflow_id"`
	Steps       []StepResult `json:"steps"`
	FinalOutput string       `json:"final_output"`
	TotalTokens int          `json:"total_tokens"`
	TotalCost   float64      `json:"total_cost"`
	Success     bool         `json:"success"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ComparisonResult is one model's leg of a comparison.
type ComparisonResult struct {
	ModelID        string  `json:"model_id"`
	Response       *string `json:"response,omitempty"`
	Tokens         int     `json:"tokens"`
	Cost           float64 `json:"cost"`
	LatencySeconds float64 `json:"latency_seconds"`
	Success        bool    `json:"success"`
}

// Comparison is the persisted record of running one prompt against
// several models. Winner is nil when no model succeeded.
type Comparison struct {
	ID        string             `json:"id"`
	Prompt    string             `json:"prompt"`
	Results   []ComparisonResult `json:"results"`
	Winner    *string            `json:"winner,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// Experiment is an A/B test over two model variants with incrementally
// maintained aggregate counters. Trial rows are the source of truth; the
// counters must always agree with them.
type Experiment struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	VariantAModel string    `json:"variant_a_model"`
	VariantBModel string    `json:"variant_b_model"`
	ATotal        int       `json:"a_total"`
	ASuccess      int       `json:"a_success"`
	ARatingSum    int       `json:"a_rating_sum"`
	ARatingCount  int       `json:"a_rating_count"`
	BTotal        int       `json:"b_total"`
	BSuccess      int       `json:"b_success"`
	BRatingSum    int       `json:"b_rating_sum"`
	BRatingCount  int       `json:"b_rating_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Trial is one recorded experiment outcome. Append-only.
type Trial struct {
	ID           int64     `json:"id"`
	ExperimentID string    `json:"experiment_id"`
	Variant      string    `json:"variant"`
	Success      bool      `json:"success"`
	Rating       *int      `json:"rating,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ModelMetrics aggregates generation records for one model.
// SuccessRate is a percentage; zero when the model has no requests.
type ModelMetrics struct {
	ModelID           string  `json:"model_id"`
	TotalRequests     int     `json:"total_requests"`
	AvgLatencySeconds float64 `json:"avg_latency_seconds"`
	AvgTokens         float64 `json:"avg_tokens"`
	SuccessRate       float64 `json:"success_rate"`
}

// DailyCost is one UTC calendar day's spend rollup across all models.
type DailyCost struct {
	Day           string  `json:"day"`
	TotalRequests int     `json:"total_requests"`
	TotalCost     float64 `json:"total_cost"`
	TotalTokens   int64   `json:"total_tokens"`
}

// ModelCosts aggregates spend and token totals for one model.
type ModelCosts struct {
	ModelID       string  `json:"model_id"`
	TotalRequests int     `json:"total_requests"`
	TotalCost     float64 `json:"total_cost"`
	TotalTokens   int64   `json:"total_tokens"`
}
