package services

import (
	"context"
	"fmt"
	"time"

	"modelhub-backend/internal/models"
)

// CompletionOptions are the sampling settings sent with every chat call.
type CompletionOptions struct {
	MaxTokens   int
	Temperature float64
}

// LLMProvider turns a full conversation into a single assistant reply.
type LLMProvider interface {
	Complete(ctx context.Context, messages []models.ChatMessage, opts CompletionOptions) (string, error)
}

// NewLLMProvider builds the provider named by kind ("openai" or "gemini").
// timeout bounds a single completion call.
func NewLLMProvider(ctx context.Context, kind, baseURL, apiKey, model string, timeout time.Duration) (LLMProvider, error) {
	switch kind {
	case "openai", "":
		return NewOpenAIProvider(baseURL, apiKey, model, timeout), nil
	case "gemini":
		return NewGeminiProvider(ctx, apiKey, model, timeout)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", kind)
	}
}
