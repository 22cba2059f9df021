package provider

import (
	"context"
	"sync"
)

// MockModel is an in-memory Model implementation for testing. It returns
// a canned response and records the prompts it was called with.
type MockModel struct {
	ModelID      string
	ProviderName string
	Rates        Pricing
	Response     string
	FailWith     error
	Latency      float64
	FixedCost    float64 // when > 0, overrides the computed cost

	mu      sync.Mutex
	prompts []string
}

func (m *MockModel) ID() string { return m.ModelID }

func (m *MockModel) Provider() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockModel) Pricing() Pricing { return m.Rates }

func (m *MockModel) CountTokens(text string) int { return len(text) / 4 }

func (m *MockModel) CalculateCost(inputTokens, outputTokens int) float64 {
	return calculateCost(m.Rates, inputTokens, outputTokens)
}

func (m *MockModel) Generate(ctx context.Context, prompt string, opts Options) (*Result, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.FailWith != nil {
		return nil, m.FailWith
	}
	in := m.CountTokens(prompt)
	out := m.CountTokens(m.Response)
	cost := m.CalculateCost(in, out)
	if m.FixedCost > 0 {
		cost = m.FixedCost
	}
	return &Result{
		Response:       m.Response,
		InputTokens:    in,
		OutputTokens:   out,
		Tokens:         in + out,
		Cost:           cost,
		LatencySeconds: m.Latency,
	}, nil
}

func (m *MockModel) GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk, 1)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		if m.FailWith != nil {
			errs <- m.FailWith
			return
		}
		chunks <- StreamChunk{Text: m.Response}
	}()
	return chunks, errs
}

// Prompts returns the prompts passed to Generate, in call order.
func (m *MockModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Compile-time check that *MockModel implements Model.
var _ Model = (*MockModel)(nil)
