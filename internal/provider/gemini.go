package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiModel calls the Google Gemini REST API.
type GeminiModel struct {
	modelID    string
	apiKey     string
	baseURL    string
	pricing    Pricing
	httpClient *http.Client
	maxRetries int
}

// NewGeminiModel creates a Gemini capability for the given model id.
// The API key must be non-empty; absence is a configuration error.
func NewGeminiModel(modelID, apiKey string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	return &GeminiModel{
		modelID: modelID,
		apiKey:  apiKey,
		baseURL: geminiBaseURL,
		// Flash-tier rates per 1K tokens.
		pricing:    Pricing{InputPer1K: 0.000075, OutputPer1K: 0.0003},
		httpClient: &http.Client{Timeout: 60 * time.Second},
		maxRetries: 3,
	}, nil
}

func (g *GeminiModel) ID() string       { return g.modelID }
func (g *GeminiModel) Provider() string { return "google" }
func (g *GeminiModel) Pricing() Pricing { return g.pricing }

func (g *GeminiModel) CountTokens(text string) int { return estimateTokens(text) }

func (g *GeminiModel) CalculateCost(inputTokens, outputTokens int) float64 {
	return calculateCost(g.pricing, inputTokens, outputTokens)
}

// geminiRequest is the subset of the generateContent request body we send.
type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// geminiResponse is the subset of the generateContent response we need.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Generate sends one non-streaming generation request. Requests are
// retried on 5xx responses and transport errors; 4xx responses fail
// immediately.
func (g *GeminiModel) Generate(ctx context.Context, prompt string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	body, err := json.Marshal(g.buildRequest(prompt, opts))
	if err != nil {
		return nil, fmt.Errorf("gemini: encode request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.modelID, g.apiKey)

	start := time.Now()
	data, err := g.doPost(ctx, url, body)
	if err != nil {
		return nil, err
	}
	latency := time.Since(start).Seconds()

	var resp geminiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &Error{Provider: "google", Message: "decode response", Err: err}
	}
	if len(resp.Candidates) == 0 {
		return nil, &Error{Provider: "google", Message: "response contained no candidates"}
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	inTokens := g.CountTokens(prompt)
	outTokens := g.CountTokens(text.String())
	if resp.UsageMetadata != nil {
		inTokens = resp.UsageMetadata.PromptTokenCount
		outTokens = resp.UsageMetadata.CandidatesTokenCount
	}

	return &Result{
		Response:       text.String(),
		InputTokens:    inTokens,
		OutputTokens:   outTokens,
		Tokens:         inTokens + outTokens,
		Cost:           g.CalculateCost(inTokens, outTokens),
		LatencySeconds: latency,
	}, nil
}

// GenerateStream sends a streaming generation request using the SSE
// variant of the API and yields text chunks as they arrive.
func (g *GeminiModel) GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk, 8)
	errs := make(chan error, 1)
	opts = opts.withDefaults()

	go func() {
		defer close(chunks)
		defer close(errs)

		body, err := json.Marshal(g.buildRequest(prompt, opts))
		if err != nil {
			errs <- fmt.Errorf("gemini: encode request: %w", err)
			return
		}
		url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", g.baseURL, g.modelID, g.apiKey)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			errs <- &Error{Provider: "google", Message: "build request", Err: err}
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.httpClient.Do(req)
		if err != nil {
			errs <- &Error{Provider: "google", Message: "stream request failed", Err: err}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(resp.Body)
			errs <- &Error{Provider: "google", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" || payload == "[DONE]" {
				continue
			}
			var chunk geminiResponse
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue
			}
			for _, c := range chunk.Candidates {
				for _, p := range c.Content.Parts {
					if p.Text == "" {
						continue
					}
					select {
					case chunks <- StreamChunk{Text: p.Text}:
					case <-ctx.Done():
						errs <- ctx.Err()
						return
					}
				}
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- &Error{Provider: "google", Message: "read stream", Err: err}
		}
	}()

	return chunks, errs
}

func (g *GeminiModel) buildRequest(prompt string, opts Options) geminiRequest {
	return geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		},
	}
}

// doPost issues the request with retries and returns the response body.
func (g *GeminiModel) doPost(ctx context.Context, url string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, &Error{Provider: "google", Message: "build request", Err: err}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.httpClient.Do(req)
		if err != nil {
			lastErr = &Error{Provider: "google", Message: "request failed", Err: err}
			if ctx.Err() != nil {
				return nil, lastErr
			}
			time.Sleep(time.Duration(attempt+1) * time.Second)
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, &Error{Provider: "google", Message: "read response", Err: readErr}
		}
		if resp.StatusCode == http.StatusOK {
			return data, nil
		}

		lastErr = &Error{Provider: "google", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		// Only 5xx responses are worth retrying.
		if resp.StatusCode < 500 {
			return nil, lastErr
		}
		time.Sleep(time.Duration(attempt+1) * time.Second)
	}
	return nil, lastErr
}
