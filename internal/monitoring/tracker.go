// Package monitoring exposes read-only usage and spend aggregates over the
// logged generation records.
package monitoring

import (
	"context"
	"fmt"

	"github.com/modelarena/modelarena/internal/database"
)

// Tracker answers metrics and cost queries. Every call re-queries the store;
// nothing is cached.
type Tracker struct {
	repo database.Repo
}

// New creates a Tracker.
func New(repo database.Repo) *Tracker {
	return &Tracker{repo: repo}
}

// ModelMetrics returns request count, average latency, and success rate (as
// a percentage) for one model. A model with no logged calls reports zeroes.
func (t *Tracker) ModelMetrics(ctx context.Context, modelID string) (*database.ModelMetrics, error) {
	return t.repo.ModelMetrics(ctx, modelID)
}

// AllMetrics returns per-model metrics for every model that has logged calls.
func (t *Tracker) AllMetrics(ctx context.Context) ([]database.ModelMetrics, error) {
	return t.repo.AllMetrics(ctx)
}

// ModelCosts returns cumulative spend and token usage for one model.
func (t *Tracker) ModelCosts(ctx context.Context, modelID string) (*database.ModelCosts, error) {
	return t.repo.ModelCosts(ctx, modelID)
}

// AllCosts returns per-model spend for every model that has logged calls.
func (t *Tracker) AllCosts(ctx context.Context) ([]database.ModelCosts, error) {
	return t.repo.AllCosts(ctx)
}

// DailyCosts returns per-day spend rollups for the last N days, oldest
// first. Days without any logged calls are omitted.
func (t *Tracker) DailyCosts(ctx context.Context, days int) ([]database.DailyCost, error) {
	return t.repo.DailyCosts(ctx, days)
}

// TotalCost returns cumulative spend across all models.
func (t *Tracker) TotalCost(ctx context.Context) (float64, error) {
	return t.repo.TotalCost(ctx)
}

// BudgetStatus reports spend against a threshold. Alert fires only when
// spend strictly exceeds the threshold, so landing exactly on the budget
// does not trip it.
type BudgetStatus struct {
	TotalCost float64 `json:"total_cost"`
	Threshold float64 `json:"threshold"`
	Alert     bool    `json:"alert"`
}

// CheckBudgetAlert compares cumulative spend across all models against a
// threshold.
func (t *Tracker) CheckBudgetAlert(ctx context.Context, threshold float64) (*BudgetStatus, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("threshold must be non-negative, got %v", threshold)
	}
	total, err := t.repo.TotalCost(ctx)
	if err != nil {
		return nil, err
	}
	return &BudgetStatus{
		TotalCost: total,
		Threshold: threshold,
		Alert:     total > threshold,
	}, nil
}
