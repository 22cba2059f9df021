package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// InsertWorkflowRun persists one workflow execution. The step results
// are serialized as a JSON column.
func (r *Repository) InsertWorkflowRun(ctx context.Context, run *WorkflowRun) error {
	if run.TotalTokens < 0 || run.TotalCost < 0 {
		return fmt.Errorf("insert workflow run: negative tokens or cost")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	steps, err := json.Marshal(run.Steps)
	if err != nil {
		return fmt.Errorf("encode workflow steps: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO workflow_runs
		    (id, workflow_id, steps, final_output, total_tokens, total_cost, success, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		run.ID, run.WorkflowID, string(steps), run.FinalOutput,
		run.TotalTokens, run.TotalCost, run.Success, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow run: %w", err)
	}
	return nil
}

// ListWorkflowRuns returns the most recent workflow runs, newest first.
func (r *Repository) ListWorkflowRuns(ctx context.Context, limit int) ([]WorkflowRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, workflow_id, steps, final_output, total_tokens, total_cost, success, created_at
		 FROM workflow_runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query workflow runs: %w", err)
	}
	defer rows.Close()

	var out []WorkflowRun
	for rows.Next() {
		var (
			run   WorkflowRun
			steps string
		)
		if err := rows.Scan(&run.ID, &run.WorkflowID, &steps, &run.FinalOutput,
			&run.TotalTokens, &run.TotalCost, &run.Success, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan workflow run: %w", err)
		}
		if err := json.Unmarshal([]byte(steps), &run.Steps); err != nil {
			return nil, fmt.Errorf("decode workflow steps: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// InsertComparison persists one comparison record, including failed legs.
func (r *Repository) InsertComparison(ctx context.Context, c *Comparison) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	results, err := json.Marshal(c.Results)
	if err != nil {
		return fmt.Errorf("encode comparison results: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO comparisons (id, prompt, results, winner, created_at)
		 VALUES (?,?,?,?,?)`,
		c.ID, c.Prompt, string(results), c.Winner, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert comparison: %w", err)
	}
	return nil
}

// ListComparisons returns the most recent comparisons, newest first.
func (r *Repository) ListComparisons(ctx context.Context, limit int) ([]Comparison, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, prompt, results, winner, created_at
		 FROM comparisons ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query comparisons: %w", err)
	}
	defer rows.Close()

	var out []Comparison
	for rows.Next() {
		var (
			c       Comparison
			results string
		)
		if err := rows.Scan(&c.ID, &c.Prompt, &results, &c.Winner, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comparison: %w", err)
		}
		if err := json.Unmarshal([]byte(results), &c.Results); err != nil {
			return nil, fmt.Errorf("decode comparison results: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
