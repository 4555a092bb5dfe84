// Package llm provides the chat and embedding clients used by graph
// enrichment, period summarization and GraphRAG queries. A single Client
// fronts three providers (OpenAI-compatible, Ollama, Gemini); rate-limited
// calls are retried and budget failures fall back to the local Ollama
// endpoint so long pipelines finish instead of dying mid-run.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/amai-lab/linkgraph/internal/config"
)

// Provider selects the chat backend
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
	ProviderGemini Provider = "gemini"
)

const (
	// rateLimitRetries is how many times a 429 is retried before the
	// request falls through to the local provider
	rateLimitRetries = 3
	rateLimitDelay   = time.Second
)

// Client is a multi-provider chat client. OpenAI-compatible and Ollama
// providers share the same SDK; Ollama is reached through its /v1
// compatibility endpoint.
type Client struct {
	provider Provider
	model    string

	openaiClient *openai.Client
	geminiClient *GeminiClient

	cfg    *config.Config
	logger *slog.Logger

	mu             sync.Mutex
	fallbackClient *openai.Client
	budgetExceeded bool
}

// NewClient creates a chat client for the configured provider. When the
// provider is openai but no API key can be resolved (LLM_API_KEY env,
// keychain, OPENAI_API_KEY env, credentials file), the client silently
// runs against Ollama instead.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	logger := slog.Default().With("component", "llm")

	provider := Provider(cfg.LLM.Provider)
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		key, err := config.NewCredentialManager().GetLLMAPIKey()
		if err != nil {
			return nil, fmt.Errorf("resolving llm api key: %w", err)
		}
		if key == "" {
			logger.Warn("no OpenAI-compatible API key found, using ollama",
				"ollama_url", cfg.LLM.OllamaBaseURL)
			return newOllamaClient(cfg, logger), nil
		}

		clientCfg := openai.DefaultConfig(key)
		if cfg.LLM.BaseURL != "" {
			clientCfg.BaseURL = cfg.LLM.BaseURL
		}
		logger.Info("llm client initialized",
			"provider", provider,
			"model", cfg.LLM.Model,
			"base_url", clientCfg.BaseURL)
		return &Client{
			provider:     ProviderOpenAI,
			model:        cfg.LLM.Model,
			openaiClient: openai.NewClientWithConfig(clientCfg),
			cfg:          cfg,
			logger:       logger,
		}, nil

	case ProviderOllama:
		return newOllamaClient(cfg, logger), nil

	case ProviderGemini:
		key, err := config.NewCredentialManager().GetLLMAPIKey()
		if err != nil {
			return nil, fmt.Errorf("resolving llm api key: %w", err)
		}
		gemini, err := NewGeminiClient(ctx, key, cfg.LLM.GeminiModel)
		if err != nil {
			return nil, err
		}
		logger.Info("llm client initialized", "provider", provider, "model", cfg.LLM.GeminiModel)
		return &Client{
			provider:     ProviderGemini,
			model:        cfg.LLM.GeminiModel,
			geminiClient: gemini,
			cfg:          cfg,
			logger:       logger,
		}, nil

	default:
		return nil, fmt.Errorf("unknown llm provider %q (want openai, ollama or gemini)", cfg.LLM.Provider)
	}
}

// newOllamaClient builds a client against Ollama's OpenAI compatibility
// endpoint. Ollama ignores the API key but the SDK requires one.
func newOllamaClient(cfg *config.Config, logger *slog.Logger) *Client {
	clientCfg := openai.DefaultConfig("ollama")
	clientCfg.BaseURL = strings.TrimRight(cfg.LLM.OllamaBaseURL, "/") + "/v1"

	logger.Info("llm client initialized",
		"provider", ProviderOllama,
		"model", cfg.LLM.OllamaModel,
		"base_url", clientCfg.BaseURL)

	return &Client{
		provider:     ProviderOllama,
		model:        cfg.LLM.OllamaModel,
		openaiClient: openai.NewClientWithConfig(clientCfg),
		cfg:          cfg,
		logger:       logger,
	}
}

// Provider returns the active provider
func (c *Client) Provider() Provider {
	return c.provider
}

// Model returns the model completions are sent to
func (c *Client) Model() string {
	return c.model
}

// Complete sends a prompt and returns the plain-text response
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, systemPrompt, userPrompt, false)
}

// CompleteJSON sends a prompt with JSON output mode enabled and returns
// the raw JSON text. Some gateways require the prompt itself to mention
// JSON when this mode is on; the callers' prompts all do.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, systemPrompt, userPrompt, true)
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string, jsonMode bool) (string, error) {
	if c.provider == ProviderGemini {
		if jsonMode {
			return c.geminiClient.CompleteJSON(ctx, systemPrompt, userPrompt)
		}
		return c.geminiClient.Complete(ctx, systemPrompt, userPrompt)
	}

	c.mu.Lock()
	exhausted := c.budgetExceeded
	c.mu.Unlock()
	if exhausted {
		return c.completeOpenAI(ctx, c.fallback(), c.cfg.LLM.OllamaModel, systemPrompt, userPrompt, jsonMode)
	}

	var lastErr error
	for attempt := 0; attempt <= rateLimitRetries; attempt++ {
		out, err := c.completeOpenAI(ctx, c.openaiClient, c.model, systemPrompt, userPrompt, jsonMode)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if isRateLimitErr(err) && attempt < rateLimitRetries {
			c.logger.Warn("rate limited, retrying", "attempt", attempt+1, "delay", rateLimitDelay)
			select {
			case <-time.After(rateLimitDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			continue
		}

		// Ollama has no budget to exhaust, so only the hosted provider
		// ever falls back
		if c.provider == ProviderOpenAI && (isBudgetErr(err) || isRateLimitErr(err)) {
			if isBudgetErr(err) {
				c.mu.Lock()
				c.budgetExceeded = true
				c.mu.Unlock()
			}
			c.logger.Warn("falling back to ollama", "reason", err)
			return c.completeOpenAI(ctx, c.fallback(), c.cfg.LLM.OllamaModel, systemPrompt, userPrompt, jsonMode)
		}
		return "", err
	}
	return "", lastErr
}

// fallback lazily builds the Ollama client used after budget exhaustion
func (c *Client) fallback() *openai.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fallbackClient == nil {
		clientCfg := openai.DefaultConfig("ollama")
		clientCfg.BaseURL = strings.TrimRight(c.cfg.LLM.OllamaBaseURL, "/") + "/v1"
		c.fallbackClient = openai.NewClientWithConfig(clientCfg)
	}
	return c.fallbackClient
}

func (c *Client) completeOpenAI(ctx context.Context, client *openai.Client, model, systemPrompt, userPrompt string, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("chat completion",
		"model", model,
		"prompt_length", len(userPrompt),
		"response_length", len(content),
		"tokens_used", resp.Usage.TotalTokens)
	return content, nil
}

// isRateLimitErr reports whether an error is a 429 worth retrying
func isRateLimitErr(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := apiStatusCode(err); ok {
		return code == 429
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

// isBudgetErr reports whether an error means the hosted quota or budget
// is gone, so retrying is pointless and the run should move to Ollama
func isBudgetErr(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := apiStatusCode(err); ok {
		return code == 400 || code == 402
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "budget") ||
		strings.Contains(msg, "exceeded")
}

func apiStatusCode(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}
