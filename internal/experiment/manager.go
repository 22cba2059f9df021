// Package experiment manages A/B experiments between two model variants:
// creation, deterministic traffic routing, trial recording, and aggregate
// statistics with a winner heuristic.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/modelarena/modelarena/internal/database"
	"github.com/modelarena/modelarena/internal/provider"
	"github.com/modelarena/modelarena/internal/registry"
)

var (
	// ErrUnknownExperiment is returned when an experiment id does not exist.
	ErrUnknownExperiment = errors.New("unknown experiment")

	// ErrInvalidVariant is returned when a variant is not "A" or "B".
	ErrInvalidVariant = errors.New("invalid variant")
)

// Manager creates experiments and records trial outcomes.
type Manager struct {
	registry *registry.Registry
	repo     database.Repo
}

// New creates a Manager.
func New(reg *registry.Registry, repo database.Repo) *Manager {
	return &Manager{registry: reg, repo: repo}
}

// Create registers a new experiment between two model variants. Both model
// ids must be registered.
func (m *Manager) Create(ctx context.Context, name, modelA, modelB string) (*database.Experiment, error) {
	if name == "" {
		return nil, fmt.Errorf("experiment name is required")
	}
	for _, id := range []string{modelA, modelB} {
		if _, err := m.registry.Get(id); err != nil {
			return nil, err
		}
	}

	e := &database.Experiment{
		ID:            uuid.NewString(),
		Name:          name,
		VariantAModel: modelA,
		VariantBModel: modelB,
		CreatedAt:     time.Now().UTC(),
	}
	if err := m.repo.CreateExperiment(ctx, e); err != nil {
		return nil, fmt.Errorf("persist experiment: %w", err)
	}
	return e, nil
}

// RecordResult appends a trial and bumps the variant's counters. Rating is
// optional; when present it feeds the variant's average rating.
func (m *Manager) RecordResult(ctx context.Context, experimentID, variant string, success bool, rating *int) error {
	if variant != "A" && variant != "B" {
		return fmt.Errorf("%w: %q", ErrInvalidVariant, variant)
	}
	e, err := m.repo.GetExperiment(ctx, experimentID)
	if err != nil {
		return fmt.Errorf("look up experiment: %w", err)
	}
	if e == nil {
		return fmt.Errorf("%w: %s", ErrUnknownExperiment, experimentID)
	}

	trial := &database.Trial{
		ExperimentID: experimentID,
		Variant:      variant,
		Success:      success,
		Rating:       rating,
	}
	return m.repo.RecordTrial(ctx, trial)
}

// Stats holds aggregate experiment statistics. Conversion rates are
// percentages; a variant with no trials reports 0.
type Stats struct {
	ExperimentID    string  `json:"experiment_id"`
	Name            string  `json:"name"`
	VariantAModel   string  `json:"variant_a_model"`
	VariantBModel   string  `json:"variant_b_model"`
	ATotal          int     `json:"a_total"`
	BTotal          int     `json:"b_total"`
	AConversionRate float64 `json:"a_conversion_rate"`
	BConversionRate float64 `json:"b_conversion_rate"`
	AAvgRating      float64 `json:"a_avg_rating"`
	BAvgRating      float64 `json:"b_avg_rating"`
	Winner          *string `json:"winner"`
}

// GetStats computes conversion rates, average ratings, and the winner.
func (m *Manager) GetStats(ctx context.Context, experimentID string) (*Stats, error) {
	e, err := m.repo.GetExperiment(ctx, experimentID)
	if err != nil {
		return nil, fmt.Errorf("look up experiment: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExperiment, experimentID)
	}

	s := &Stats{
		ExperimentID:    e.ID,
		Name:            e.Name,
		VariantAModel:   e.VariantAModel,
		VariantBModel:   e.VariantBModel,
		ATotal:          e.ATotal,
		BTotal:          e.BTotal,
		AConversionRate: rate(e.ASuccess, e.ATotal),
		BConversionRate: rate(e.BSuccess, e.BTotal),
		AAvgRating:      average(e.ARatingSum, e.ARatingCount),
		BAvgRating:      average(e.BRatingSum, e.BRatingCount),
	}
	s.Winner = pickWinner(s, e)
	return s, nil
}

// GenerateForUser routes the user to their variant, runs the prompt through
// that variant's model, and logs the call. The returned variant lets the
// caller attribute the output when recording the trial outcome later.
func (m *Manager) GenerateForUser(ctx context.Context, experimentID, userID, prompt string) (string, *provider.Result, error) {
	e, err := m.repo.GetExperiment(ctx, experimentID)
	if err != nil {
		return "", nil, fmt.Errorf("look up experiment: %w", err)
	}
	if e == nil {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownExperiment, experimentID)
	}

	variant := AssignVariant(experimentID, userID)
	modelID := e.VariantAModel
	if variant == "B" {
		modelID = e.VariantBModel
	}
	model, err := m.registry.Get(modelID)
	if err != nil {
		return variant, nil, err
	}

	result, err := model.Generate(ctx, prompt, provider.DefaultOptions())
	if err != nil {
		m.logGeneration(ctx, modelID, prompt, nil, 0, 0, 0, false)
		return variant, nil, err
	}
	m.logGeneration(ctx, modelID, prompt, &result.Response, result.Tokens, result.Cost, result.LatencySeconds, true)
	return variant, result, nil
}

// List returns all experiments, newest first.
func (m *Manager) List(ctx context.Context) ([]database.Experiment, error) {
	return m.repo.ListExperiments(ctx)
}

// pickWinner applies the documented rule: higher conversion rate wins, ties
// broken by higher average rating. With no trials on either side, or a full
// tie, there is no winner.
func pickWinner(s *Stats, e *database.Experiment) *string {
	if s.ATotal == 0 && s.BTotal == 0 {
		return nil
	}
	switch {
	case s.AConversionRate > s.BConversionRate:
		return &e.VariantAModel
	case s.BConversionRate > s.AConversionRate:
		return &e.VariantBModel
	case s.AAvgRating > s.BAvgRating:
		return &e.VariantAModel
	case s.BAvgRating > s.AAvgRating:
		return &e.VariantBModel
	}
	return nil
}

func rate(successes, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(successes) / float64(total)
}

func average(sum, count int) float64 {
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

func (m *Manager) logGeneration(ctx context.Context, modelID, prompt string, response *string, tokens int, cost, latency float64, success bool) {
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
	if err := m.repo.InsertGeneration(ctx, rec); err != nil {
		log.Printf("log generation for %s: %v", modelID, err)
	}
}
