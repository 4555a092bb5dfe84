package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestIsRateLimitErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"api error 429", &openai.APIError{HTTPStatusCode: 429}, true},
		{"api error 500", &openai.APIError{HTTPStatusCode: 500}, false},
		{"wrapped api error", fmt.Errorf("chat completion failed: %w", &openai.APIError{HTTPStatusCode: 429}), true},
		{"message mentions rate limit", errors.New("Rate limit reached for gpt-4o"), true},
		{"message mentions 429", errors.New("unexpected status 429"), true},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRateLimitErr(tt.err))
		})
	}
}

func TestIsBudgetErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"api error 400", &openai.APIError{HTTPStatusCode: 400}, true},
		{"api error 402", &openai.APIError{HTTPStatusCode: 402}, true},
		{"api error 429", &openai.APIError{HTTPStatusCode: 429}, false},
		{"quota message", errors.New("You exceeded your current quota"), true},
		{"budget message", errors.New("monthly budget reached"), true},
		{"unrelated", errors.New("dial tcp: timeout"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isBudgetErr(tt.err))
		})
	}
}

func TestEmbedderNormalize(t *testing.T) {
	e := &Embedder{dimensions: 4}

	t.Run("truncates long vectors", func(t *testing.T) {
		got := e.normalize([]float64{1, 2, 3, 4, 5, 6})
		assert.Equal(t, []float32{1, 2, 3, 4}, got)
	})

	t.Run("pads short vectors", func(t *testing.T) {
		got := e.normalize([]float64{1, 2})
		assert.Equal(t, []float32{1, 2, 0, 0}, got)
	})

	t.Run("exact length unchanged", func(t *testing.T) {
		got := e.normalize([]float64{1, 2, 3, 4})
		assert.Equal(t, []float32{1, 2, 3, 4}, got)
	})
}
