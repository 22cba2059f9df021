package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIModel wraps the OpenAI chat completion API.
type OpenAIModel struct {
	modelID string
	client  *openai.Client
	pricing Pricing
}

// NewOpenAIModel creates an OpenAI capability for the given model id.
func NewOpenAIModel(modelID, apiKey string) (*OpenAIModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	return &OpenAIModel{
		modelID: modelID,
		client:  openai.NewClient(apiKey),
		// gpt-4o-mini-tier rates per 1K tokens.
		pricing: Pricing{InputPer1K: 0.00015, OutputPer1K: 0.0006},
	}, nil
}

func (o *OpenAIModel) ID() string       { return o.modelID }
func (o *OpenAIModel) Provider() string { return "openai" }
func (o *OpenAIModel) Pricing() Pricing { return o.pricing }

func (o *OpenAIModel) CountTokens(text string) int { return estimateTokens(text) }

func (o *OpenAIModel) CalculateCost(inputTokens, outputTokens int) float64 {
	return calculateCost(o.pricing, inputTokens, outputTokens)
}

func (o *OpenAIModel) chatRequest(prompt string, opts Options) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: o.modelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}
}

// Generate sends one non-streaming chat completion request.
func (o *OpenAIModel) Generate(ctx context.Context, prompt string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, o.chatRequest(prompt, opts))
	latency := time.Since(start).Seconds()
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Provider: "openai", Message: "response contained no choices"}
	}

	text := resp.Choices[0].Message.Content
	inTokens := resp.Usage.PromptTokens
	outTokens := resp.Usage.CompletionTokens
	if inTokens == 0 && outTokens == 0 {
		inTokens = o.CountTokens(prompt)
		outTokens = o.CountTokens(text)
	}

	return &Result{
		Response:       text,
		InputTokens:    inTokens,
		OutputTokens:   outTokens,
		Tokens:         inTokens + outTokens,
		Cost:           o.CalculateCost(inTokens, outTokens),
		LatencySeconds: latency,
	}, nil
}

// GenerateStream sends a streaming chat completion request.
func (o *OpenAIModel) GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk, 8)
	errs := make(chan error, 1)
	opts = opts.withDefaults()

	go func() {
		defer close(chunks)
		defer close(errs)

		stream, err := o.client.CreateChatCompletionStream(ctx, o.chatRequest(prompt, opts))
		if err != nil {
			errs <- wrapOpenAIError(err)
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errs <- wrapOpenAIError(err)
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case chunks <- StreamChunk{Text: resp.Choices[0].Delta.Content}:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return chunks, errs
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Provider: "openai", StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	return &Error{Provider: "openai", Message: "request failed", Err: err}
}
