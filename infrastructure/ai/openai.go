// Package ai implements the injected AI capability: an OpenAI-compatible
// completion provider, a composite service that adds circuit breaking and
// long-term memory on top of it, and a no-op driver for deployments that
// run without a model.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 60 * time.Second

	// Completion bodies from misbehaving gateways can be huge; cap what we
	// echo back into error messages.
	errorBodyLimit = 512
)

// Provider is one completion backend. The composite Service drives it; the
// rest of the suite only ever sees ports.AIService.
type Provider interface {
	// Complete runs one prompt and returns the raw model output.
	Complete(ctx context.Context, prompt string, opts ports.CompletionOptions) (string, error)

	// IsAvailable reports whether the provider is configured well enough
	// to attempt a call. It must not perform network I/O.
	IsAvailable() bool
}

// OpenAIConfig configures an OpenAI-compatible endpoint. Any gateway that
// speaks the /chat/completions dialect works: the hosted API, Ollama,
// vLLM, LiteLLM proxies.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAIProvider talks to an OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *zap.Logger
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a provider for the configured endpoint.
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &OpenAIProvider{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logger,
	}
}

// IsAvailable reports whether the provider has enough configuration to make
// a call. The hosted endpoint rejects anonymous requests, so an empty key
// there means the provider was never configured; self-hosted gateways skip
// auth entirely.
func (p *OpenAIProvider) IsAvailable() bool {
	if p.model == "" {
		return false
	}
	return p.apiKey != "" || p.baseURL != defaultBaseURL
}

// openAIRequest is the chat completions request body. Zero-valued options
// are omitted so the model defaults apply.
type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    *float64              `json:"temperature,omitempty"`
	MaxTokens      *int                  `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends one prompt as a single-turn chat and returns the first
// choice's content.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string, opts ports.CompletionOptions) (string, error) {
	reqBody := openAIRequest{
		Model: p.model,
		Messages: []openAIMessage{
			{Role: "user", Content: prompt},
		},
	}
	if opts.Temperature > 0 {
		reqBody.Temperature = &opts.Temperature
	}
	if opts.MaxTokens > 0 {
		maxTokens := opts.MaxTokens
		reqBody.MaxTokens = &maxTokens
	}
	if opts.Format == "json" {
		reqBody.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	url := p.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > errorBodyLimit {
			snippet = snippet[:errorBodyLimit]
		}
		return "", fmt.Errorf("completion endpoint returned status %d: %s", resp.StatusCode, snippet)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	p.logger.Debug("Completion finished",
		zap.String("model", p.model),
		zap.String("finishReason", parsed.Choices[0].FinishReason),
		zap.Int("totalTokens", parsed.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))

	return parsed.Choices[0].Message.Content, nil
}
