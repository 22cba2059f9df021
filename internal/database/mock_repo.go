package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MockRepo is an in-memory implementation of Repo for testing.
type MockRepo struct {
	mu          sync.Mutex
	generations []GenerationRecord
	runs        []WorkflowRun
	comparisons []Comparison
	experiments map[string]*Experiment
	trials      []Trial
	nextTrialID int64

	// FailWith, when set, is returned by every write operation.
	FailWith error
}

// NewMockRepo creates a new MockRepo.
func NewMockRepo() *MockRepo {
	return &MockRepo{experiments: make(map[string]*Experiment)}
}

// Generations returns a copy of the recorded generation rows (for test
// assertions).
func (m *MockRepo) Generations() []GenerationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerationRecord, len(m.generations))
	copy(out, m.generations)
	return out
}

// WorkflowRuns returns a copy of the persisted workflow runs.
func (m *MockRepo) WorkflowRuns() []WorkflowRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WorkflowRun, len(m.runs))
	copy(out, m.runs)
	return out
}

// Comparisons returns a copy of the persisted comparisons.
func (m *MockRepo) Comparisons() []Comparison {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Comparison, len(m.comparisons))
	copy(out, m.comparisons)
	return out
}

func (m *MockRepo) InsertGeneration(_ context.Context, rec *GenerationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if rec.Tokens < 0 || rec.Cost < 0 {
		return fmt.Errorf("insert generation: negative tokens or cost")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.generations = append(m.generations, *rec)
	return nil
}

func (m *MockRepo) InsertWorkflowRun(_ context.Context, run *WorkflowRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	m.runs = append(m.runs, *run)
	return nil
}

func (m *MockRepo) ListWorkflowRuns(_ context.Context, limit int) ([]WorkflowRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.runs) {
		limit = len(m.runs)
	}
	out := make([]WorkflowRun, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *MockRepo) InsertComparison(_ context.Context, c *Comparison) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m.comparisons = append(m.comparisons, *c)
	return nil
}

func (m *MockRepo) ListComparisons(_ context.Context, limit int) ([]Comparison, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.comparisons) {
		limit = len(m.comparisons)
	}
	out := make([]Comparison, 0, limit)
	for i := len(m.comparisons) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.comparisons[i])
	}
	return out, nil
}

func (m *MockRepo) CreateExperiment(_ context.Context, e *Experiment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	m.experiments[e.ID] = &cp
	return nil
}

func (m *MockRepo) GetExperiment(_ context.Context, id string) (*Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.experiments[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *MockRepo) ListExperiments(_ context.Context) ([]Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Experiment, 0, len(m.experiments))
	for _, e := range m.experiments {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockRepo) RecordTrial(_ context.Context, trial *Trial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if trial.Variant != "A" && trial.Variant != "B" {
		return fmt.Errorf("record trial: variant must be A or B, got %q", trial.Variant)
	}
	e, ok := m.experiments[trial.ExperimentID]
	if !ok {
		return fmt.Errorf("record trial: experiment %s not found", trial.ExperimentID)
	}
	if trial.Variant == "A" {
		e.ATotal++
		if trial.Success {
			e.ASuccess++
		}
		if trial.Rating != nil {
			e.ARatingSum += *trial.Rating
			e.ARatingCount++
		}
	} else {
		e.BTotal++
		if trial.Success {
			e.BSuccess++
		}
		if trial.Rating != nil {
			e.BRatingSum += *trial.Rating
			e.BRatingCount++
		}
	}
	m.nextTrialID++
	t := *trial
	t.ID = m.nextTrialID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.trials = append(m.trials, t)
	return nil
}

func (m *MockRepo) ListTrials(_ context.Context, experimentID string) ([]Trial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Trial
	for _, t := range m.trials {
		if t.ExperimentID == experimentID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockRepo) ModelMetrics(_ context.Context, modelID string) (*ModelMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metricsLocked(modelID), nil
}

func (m *MockRepo) metricsLocked(modelID string) *ModelMetrics {
	out := &ModelMetrics{ModelID: modelID}
	var latencySum float64
	var tokenSum int
	var successes int
	for _, g := range m.generations {
		if g.ModelID != modelID {
			continue
		}
		out.TotalRequests++
		latencySum += g.LatencySeconds
		tokenSum += g.Tokens
		if g.Success {
			successes++
		}
	}
	if out.TotalRequests > 0 {
		out.AvgLatencySeconds = latencySum / float64(out.TotalRequests)
		out.AvgTokens = float64(tokenSum) / float64(out.TotalRequests)
		out.SuccessRate = float64(successes) / float64(out.TotalRequests) * 100
	}
	return out
}

func (m *MockRepo) AllMetrics(_ context.Context) ([]ModelMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ModelMetrics
	for _, id := range m.modelIDsLocked() {
		out = append(out, *m.metricsLocked(id))
	}
	return out, nil
}

func (m *MockRepo) ModelCosts(_ context.Context, modelID string) (*ModelCosts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.costsLocked(modelID), nil
}

func (m *MockRepo) costsLocked(modelID string) *ModelCosts {
	out := &ModelCosts{ModelID: modelID}
	for _, g := range m.generations {
		if g.ModelID != modelID {
			continue
		}
		out.TotalRequests++
		out.TotalCost += g.Cost
		out.TotalTokens += int64(g.Tokens)
	}
	return out
}

func (m *MockRepo) AllCosts(_ context.Context) ([]ModelCosts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ModelCosts
	for _, id := range m.modelIDsLocked() {
		out = append(out, *m.costsLocked(id))
	}
	return out, nil
}

func (m *MockRepo) DailyCosts(_ context.Context, days int) ([]DailyCost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	byDay := make(map[string]*DailyCost)
	for _, g := range m.generations {
		if g.CreatedAt.Before(cutoff) {
			continue
		}
		day := g.CreatedAt.UTC().Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &DailyCost{Day: day}
			byDay[day] = d
		}
		d.TotalRequests++
		d.TotalCost += g.Cost
		d.TotalTokens += int64(g.Tokens)
	}
	out := make([]DailyCost, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (m *MockRepo) TotalCost(_ context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, g := range m.generations {
		total += g.Cost
	}
	return total, nil
}

func (m *MockRepo) modelIDsLocked() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, g := range m.generations {
		if !seen[g.ModelID] {
			seen[g.ModelID] = true
			ids = append(ids, g.ModelID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (m *MockRepo) Close() error { return nil }

// Compile-time check that *MockRepo implements Repo.
var _ Repo = (*MockRepo)(nil)
