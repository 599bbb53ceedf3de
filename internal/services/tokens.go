package services

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures prompt size so operators can see how close the
// system prompt is to the provider's context window.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter loads the tokenizer for model, falling back to cl100k_base.
// Loading may download the encoding on first use.
func NewTokenCounter(model string) (*TokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &TokenCounter{enc: enc}, nil
}

// Count returns the token count of text. A nil counter counts nothing.
func (c *TokenCounter) Count(text string) int {
	if c == nil || c.enc == nil {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}
