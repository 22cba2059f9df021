// Package comparison runs one prompt against several registered models and
// picks a winner with a fixed deterministic rule: lowest cost among the
// successful legs, ties broken by lowest latency.
package comparison

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/modelarena/modelarena/internal/database"
	"github.com/modelarena/modelarena/internal/provider"
	"github.com/modelarena/modelarena/internal/registry"
)

// Comparator runs side-by-side generations through the registry and persists
// each comparison.
type Comparator struct {
	registry *registry.Registry
	repo     database.Repo
}

// New creates a Comparator.
func New(reg *registry.Registry, repo database.Repo) *Comparator {
	return &Comparator{registry: reg, repo: repo}
}

// Compare invokes each model in order with the same prompt. Model ids are
// validated before any provider call so a typo cannot burn tokens on the
// models listed before it. Legs run one at a time; a failed leg is recorded
// with success=false and the remaining legs still run.
func (c *Comparator) Compare(ctx context.Context, modelIDs []string, prompt string) (*database.Comparison, error) {
	if len(modelIDs) < 2 {
		return nil, fmt.Errorf("comparison needs at least 2 models, got %d", len(modelIDs))
	}

	models := make([]provider.Model, 0, len(modelIDs))
	for _, id := range modelIDs {
		m, err := c.registry.Get(id)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}

	cmp := &database.Comparison{
		ID:        uuid.NewString(),
		Prompt:    prompt,
		CreatedAt: time.Now().UTC(),
	}

	for _, m := range models {
		start := time.Now()
		result, err := m.Generate(ctx, prompt, provider.DefaultOptions())
		elapsed := time.Since(start).Seconds()

		leg := database.ComparisonResult{ModelID: m.ID()}
		if err != nil {
			log.Printf("comparison %s: model %s failed: %v", cmp.ID, m.ID(), err)
			leg.LatencySeconds = elapsed
			c.logGeneration(ctx, m.ID(), prompt, nil, 0, 0, elapsed, false)
		} else {
			resp := result.Response
			leg.Response = &resp
			leg.Tokens = result.Tokens
			leg.Cost = result.Cost
			leg.LatencySeconds = elapsed
			leg.Success = true
			c.logGeneration(ctx, m.ID(), prompt, &resp, result.Tokens, result.Cost, elapsed, true)
		}
		cmp.Results = append(cmp.Results, leg)
	}

	cmp.Winner = pickWinner(cmp.Results)

	if err := c.repo.InsertComparison(ctx, cmp); err != nil {
		return nil, fmt.Errorf("persist comparison: %w", err)
	}
	return cmp, nil
}

// pickWinner selects the cheapest successful leg, breaking cost ties by
// lower latency. Returns nil when no leg succeeded.
func pickWinner(results []database.ComparisonResult) *string {
	var winner *database.ComparisonResult
	for i := range results {
		r := &results[i]
		if !r.Success {
			continue
		}
		if winner == nil || r.Cost < winner.Cost ||
			(r.Cost == winner.Cost && r.LatencySeconds < winner.LatencySeconds) {
			winner = r
		}
	}
	if winner == nil {
		return nil
	}
	id := winner.ModelID
	return &id
}

// Summary condenses a comparison for display: which leg was cheapest, which
// was fastest, how many succeeded, and the averages over the successful legs.
type Summary struct {
	Winner            *string `json:"winner"`
	Cheapest          *string `json:"cheapest"`
	Fastest           *string `json:"fastest"`
	Succeeded         int     `json:"succeeded"`
	Total             int     `json:"total"`
	AvgLatencySeconds float64 `json:"avg_latency_seconds"`
	AvgTokens         float64 `json:"avg_tokens"`
	AvgCost           float64 `json:"avg_cost"`
}

// Summarize computes a Summary from a comparison's legs.
func Summarize(cmp *database.Comparison) Summary {
	s := Summary{Winner: cmp.Winner, Total: len(cmp.Results)}
	var cheapest, fastest *database.ComparisonResult
	for i := range cmp.Results {
		r := &cmp.Results[i]
		if !r.Success {
			continue
		}
		s.Succeeded++
		s.AvgLatencySeconds += r.LatencySeconds
		s.AvgTokens += float64(r.Tokens)
		s.AvgCost += r.Cost
		if cheapest == nil || r.Cost < cheapest.Cost {
			cheapest = r
		}
		if fastest == nil || r.LatencySeconds < fastest.LatencySeconds {
			fastest = r
		}
	}
	if s.Succeeded > 0 {
		n := float64(s.Succeeded)
		s.AvgLatencySeconds /= n
		s.AvgTokens /= n
		s.AvgCost /= n
	}
	if cheapest != nil {
		id := cheapest.ModelID
		s.Cheapest = &id
	}
	if fastest != nil {
		id := fastest.ModelID
		s.Fastest = &id
	}
	return s
}

func (c *Comparator) logGeneration(ctx context.Context, modelID, prompt string, response *string, tokens int, cost, latency float64, success bool) {
	rec := &database.GenerationRecord{
		ID:             uuid.NewString(),
		ModelID:        modelID,
		Prompt:         prompt,
		Response:       response,
		Tokens:         tokens,
		Cost:           cost,
		LatencySeconds: latency,
		Success:        success,
	}
	if err := c.repo.InsertGeneration(ctx, rec); err != nil {
		log.Printf("log generation for %s: %v", modelID, err)
	}
}
