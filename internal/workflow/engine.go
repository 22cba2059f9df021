// Package workflow chains generation calls so each step's output feeds the
// next step's prompt. Steps run strictly in order. A failed step ends the
// run immediately; the persisted record keeps only the completed steps.
package workflow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/modelarena/modelarena/internal/database"
	"github.com/modelarena/modelarena/internal/provider"
	"github.com/modelarena/modelarena/internal/registry"
)

// Engine executes workflow step chains against the model registry and
// persists both per-step generations and the overall run.
type Engine struct {
	registry *registry.Registry
	repo     database.Repo
}

// New creates a workflow Engine.
func New(reg *registry.Registry, repo database.Repo) *Engine {
	return &Engine{registry: reg, repo: repo}
}

// Execute runs the steps in order, carrying each response into the next
// prompt. The run is persisted even when a step fails; in that case the
// returned run holds only the completed steps, Success is false, and the
// step's error is returned alongside the truncated run.
func (e *Engine) Execute(ctx context.Context, workflowID string, steps []Step, initialInput string) (*database.WorkflowRun, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("workflow %s has no steps", workflowID)
	}

	run := &database.WorkflowRun{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		CreatedAt:  time.Now().UTC(),
	}

	carry := initialInput
	for i, step := range steps {
		model, err := e.registry.Get(step.ModelID)
		if err != nil {
			return e.finishFailed(ctx, run, fmt.Errorf("step %d (%s): %w", i+1, step.Operation, err))
		}

		prompt := renderPrompt(step.PromptTemplate, carry, initialInput)
		log.Printf("[%s] step %d/%d %s via %s", workflowID, i+1, len(steps), step.Operation, step.ModelID)

		result, err := model.Generate(ctx, prompt, provider.DefaultOptions())
		if err != nil {
			e.logGeneration(ctx, step.ModelID, prompt, nil, 0, 0, 0, false)
			return e.finishFailed(ctx, run, fmt.Errorf("step %d (%s): %w", i+1, step.Operation, err))
		}
		e.logGeneration(ctx, step.ModelID, prompt, &result.Response, result.Tokens, result.Cost, result.LatencySeconds, true)

		run.Steps = append(run.Steps, database.StepResult{
			Step:           i + 1,
			ModelID:        step.ModelID,
			Operation:      step.Operation,
			Prompt:         prompt,
			Response:       result.Response,
			Tokens:         result.Tokens,
			Cost:           result.Cost,
			LatencySeconds: result.LatencySeconds,
		})
		run.TotalTokens += result.Tokens
		run.TotalCost += result.Cost
		carry = result.Response
	}

	run.Success = true
	run.FinalOutput = carry
	if err := e.repo.InsertWorkflowRun(ctx, run); err != nil {
		return nil, fmt.Errorf("persist workflow run: %w", err)
	}
	return run, nil
}

// ExecuteTemplate resolves a built-in template by name and runs it.
func (e *Engine) ExecuteTemplate(ctx context.Context, name, modelID, initialInput string) (*database.WorkflowRun, error) {
	steps, err := Template(name, modelID)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, name, steps, initialInput)
}

// finishFailed persists the truncated run and surfaces the step error. The
// final output falls back to the last completed step's response, or empty
// when the first step failed.
func (e *Engine) finishFailed(ctx context.Context, run *database.WorkflowRun, stepErr error) (*database.WorkflowRun, error) {
	run.Success = false
	if n := len(run.Steps); n > 0 {
		run.FinalOutput = run.Steps[n-1].Response
	}
	if err := e.repo.InsertWorkflowRun(ctx, run); err != nil {
		log.Printf("persist failed workflow run %s: %v", run.ID, err)
	}
	return run, stepErr
}

func (e *Engine) logGeneration(ctx context.Context, modelID, prompt string, response *string, tokens int, cost, latency float64, success bool) {
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
	if err := e.repo.InsertGeneration(ctx, rec); err != nil {
		log.Printf("log generation for %s: %v", modelID, err)
	}
}

func renderPrompt(template, carry, initial string) string {
	s := strings.ReplaceAll(template, "{input}", carry)
	return strings.ReplaceAll(s, "{initial}", initial)
}
