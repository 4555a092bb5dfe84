package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/amai-lab/linkgraph/internal/config"
)

// Embedder produces vector embeddings through an OpenAI-compatible
// embeddings API. With no API key configured it talks to Ollama's /v1
// endpoint, mirroring the chat client's fallback.
type Embedder struct {
	client     openai.Client
	model      string
	dimensions int
	logger     *slog.Logger
}

// NewEmbedder creates an embeddings client from the LLM configuration.
// The vector index and pgvector schema are both created against
// cfg.LLM.EmbeddingDimensions, so responses are normalized to exactly
// that length.
func NewEmbedder(cfg *config.Config) (*Embedder, error) {
	logger := slog.Default().With("component", "embedder")

	key, err := config.NewCredentialManager().GetLLMAPIKey()
	if err != nil {
		return nil, fmt.Errorf("resolving llm api key: %w", err)
	}

	model := cfg.LLM.EmbeddingModel
	opts := []option.RequestOption{}
	switch {
	case key != "":
		opts = append(opts, option.WithAPIKey(key))
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.LLM.BaseURL))
		}
	default:
		// Ollama ignores the key but the SDK wants one set
		model = cfg.LLM.OllamaEmbedModel
		opts = append(opts,
			option.WithAPIKey("ollama"),
			option.WithBaseURL(strings.TrimRight(cfg.LLM.OllamaBaseURL, "/")+"/v1"))
		logger.Warn("no API key for embeddings, using ollama",
			"model", model, "ollama_url", cfg.LLM.OllamaBaseURL)
	}

	dims := cfg.LLM.EmbeddingDimensions
	if dims <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", dims)
	}

	logger.Info("embedder initialized", "model", model, "dimensions", dims)
	return &Embedder{
		client:     openai.NewClient(opts...),
		model:      model,
		dimensions: dims,
		logger:     logger,
	}, nil
}

// Dimensions returns the vector length every embedding is normalized to
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Embed returns one vector per input text, in input order. Blank inputs
// embed to zero vectors without an API call.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var idxMap []int
	var nonEmpty []string
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			out[i] = make([]float32, e.dimensions)
			continue
		}
		idxMap = append(idxMap, i)
		nonEmpty = append(nonEmpty, t)
	}
	if len(nonEmpty) == 0 {
		return out, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: nonEmpty},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(nonEmpty) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(resp.Data), len(nonEmpty))
	}

	for _, emb := range resp.Data {
		i := int(emb.Index)
		if i < 0 || i >= len(nonEmpty) {
			return nil, fmt.Errorf("embedding index out of range: %d", emb.Index)
		}
		out[idxMap[i]] = e.normalize(emb.Embedding)
	}
	for i := range out {
		if out[i] == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}

	e.logger.Debug("embeddings generated",
		"inputs", len(nonEmpty),
		"tokens_used", resp.Usage.TotalTokens)
	return out, nil
}

// EmbedOne embeds a single text
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("unexpected embedding result size: got %d want 1", len(vecs))
	}
	return vecs[0], nil
}

// normalize truncates or zero-pads a raw vector to the configured length.
// Models that emit a different native dimensionality still produce rows
// the vector indexes accept.
func (e *Embedder) normalize(raw []float64) []float32 {
	vec := make([]float32, 0, e.dimensions)
	for _, v := range raw {
		if len(vec) >= e.dimensions {
			break
		}
		vec = append(vec, float32(v))
	}
	for len(vec) < e.dimensions {
		vec = append(vec, 0)
	}
	return vec
}
