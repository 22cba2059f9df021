package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	bedrocktypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// BedrockModel calls AWS Bedrock via the Converse API.
type BedrockModel struct {
	modelID string
	client  *bedrockruntime.Client
	pricing Pricing
}

// NewBedrockModel creates a Bedrock capability using the default AWS
// credential chain for the given region.
func NewBedrockModel(ctx context.Context, modelID, region string) (*BedrockModel, error) {
	if region == "" {
		return nil, fmt.Errorf("bedrock: AWS region is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load AWS config: %w", err)
	}
	return &BedrockModel{
		modelID: modelID,
		client:  bedrockruntime.NewFromConfig(cfg),
		// Haiku-tier rates per 1K tokens.
		pricing: Pricing{InputPer1K: 0.00025, OutputPer1K: 0.00125},
	}, nil
}

func (b *BedrockModel) ID() string       { return b.modelID }
func (b *BedrockModel) Provider() string { return "bedrock" }
func (b *BedrockModel) Pricing() Pricing { return b.pricing }

func (b *BedrockModel) CountTokens(text string) int { return estimateTokens(text) }

func (b *BedrockModel) CalculateCost(inputTokens, outputTokens int) float64 {
	return calculateCost(b.pricing, inputTokens, outputTokens)
}

func (b *BedrockModel) converseInput(prompt string, opts Options) *bedrockruntime.ConverseInput {
	return &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.modelID),
		Messages: []bedrocktypes.Message{
			{
				Role: bedrocktypes.ConversationRoleUser,
				Content: []bedrocktypes.ContentBlock{
					&bedrocktypes.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: &bedrocktypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(opts.MaxTokens)),
			Temperature: aws.Float32(float32(opts.Temperature)),
		},
	}
}

// Generate sends one non-streaming Converse request.
func (b *BedrockModel) Generate(ctx context.Context, prompt string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	start := time.Now()
	resp, err := b.client.Converse(ctx, b.converseInput(prompt, opts))
	latency := time.Since(start).Seconds()
	if err != nil {
		return nil, &Error{Provider: "bedrock", Message: "converse failed", Err: err}
	}

	msg, ok := resp.Output.(*bedrocktypes.ConverseOutputMemberMessage)
	if !ok {
		return nil, &Error{Provider: "bedrock", Message: "unexpected output type"}
	}
	var text strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*bedrocktypes.ContentBlockMemberText); ok {
			text.WriteString(t.Value)
		}
	}

	inTokens := b.CountTokens(prompt)
	outTokens := b.CountTokens(text.String())
	if resp.Usage != nil {
		inTokens = int(aws.ToInt32(resp.Usage.InputTokens))
		outTokens = int(aws.ToInt32(resp.Usage.OutputTokens))
	}

	return &Result{
		Response:       text.String(),
		InputTokens:    inTokens,
		OutputTokens:   outTokens,
		Tokens:         inTokens + outTokens,
		Cost:           b.CalculateCost(inTokens, outTokens),
		LatencySeconds: latency,
	}, nil
}

// GenerateStream sends a ConverseStream request and yields text deltas.
func (b *BedrockModel) GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk, 8)
	errs := make(chan error, 1)
	opts = opts.withDefaults()

	go func() {
		defer close(chunks)
		defer close(errs)

		in := b.converseInput(prompt, opts)
		resp, err := b.client.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
			ModelId:         in.ModelId,
			Messages:        in.Messages,
			InferenceConfig: in.InferenceConfig,
		})
		if err != nil {
			errs <- &Error{Provider: "bedrock", Message: "converse stream failed", Err: err}
			return
		}
		stream := resp.GetStream()
		defer stream.Close()

		for event := range stream.Events() {
			delta, ok := event.(*bedrocktypes.ConverseStreamOutputMemberContentBlockDelta)
			if !ok {
				continue
			}
			t, ok := delta.Value.Delta.(*bedrocktypes.ContentBlockDeltaMemberText)
			if !ok || t.Value == "" {
				continue
			}
			select {
			case chunks <- StreamChunk{Text: t.Value}:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if err := stream.Err(); err != nil {
			errs <- &Error{Provider: "bedrock", Message: "read stream", Err: err}
		}
	}()

	return chunks, errs
}
