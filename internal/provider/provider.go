// Package provider defines the model capability interface and its concrete
// implementations for the supported generation providers.
package provider

import "context"

// Options holds per-call generation parameters.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// DefaultOptions returns the generation defaults applied when a caller
// leaves Options zero-valued.
func DefaultOptions() Options {
	return Options{Temperature: 1.0, MaxTokens: 1000}
}

// withDefaults fills in zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Temperature == 0 {
		o.Temperature = d.Temperature
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = d.MaxTokens
	}
	return o
}

// Pricing holds a provider's per-1K-token rates in USD.
type Pricing struct {
	InputPer1K  float64 `json:"input_per_1k"`
	OutputPer1K float64 `json:"output_per_1k"`
}

// Result holds the outcome of a single generation call.
type Result struct {
	Response       string  `json:"response"`
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	Tokens         int     `json:"tokens"`
	Cost           float64 `json:"cost"`
	LatencySeconds float64 `json:"latency_seconds"`
}

// StreamChunk is one text fragment from a streaming generation. The stream
// is finite and not restartable; a new call re-executes the request.
type StreamChunk struct {
	Text string
}

// Model is the capability interface for one provider+model pairing.
// Implementations measure latency around their own upstream call and
// return every upstream failure as a *Error.
type Model interface {
	ID() string
	Provider() string
	Pricing() Pricing
	Generate(ctx context.Context, prompt string, opts Options) (*Result, error)
	GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan StreamChunk, <-chan error)
	CountTokens(text string) int
	CalculateCost(inputTokens, outputTokens int) float64
}

// calculateCost applies per-1K rates to token counts. Deterministic and
// never negative.
func calculateCost(p Pricing, inputTokens, outputTokens int) float64 {
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}
	return float64(inputTokens)/1000*p.InputPer1K + float64(outputTokens)/1000*p.OutputPer1K
}
