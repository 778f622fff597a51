package process

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"

	"github.com/Sriram-PR/specdoc/pkg/utils"
)

// TokenCounter counts tokens with a tiktoken codec, or estimates them
// (len/4) when no codec is available. Safe for concurrent use.
type TokenCounter struct {
	codec    tokenizer.Codec
	encoding string
}

// NewTokenCounter loads the codec for the given encoding.
// Common encodings: "cl100k_base" (GPT-4), "o200k_base" (GPT-4o), "p50k_base" (GPT-3).
// If encoding is empty, defaults to "cl100k_base". On error the returned counter
// is still usable and estimates.
func NewTokenCounter(encoding string) (*TokenCounter, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}

	var enc tokenizer.Encoding
	switch encoding {
	case "cl100k_base":
		enc = tokenizer.Cl100kBase
	case "p50k_base":
		enc = tokenizer.P50kBase
	case "p50k_edit":
		enc = tokenizer.P50kEdit
	case "r50k_base":
		enc = tokenizer.R50kBase
	case "o200k_base":
		enc = tokenizer.O200kBase
	default:
		return EstimatingCounter(), fmt.Errorf("%w: unknown tokenizer encoding '%s'", utils.ErrConfigValidation, encoding)
	}

	codec, err := tokenizer.Get(enc)
	if err != nil {
		return EstimatingCounter(), fmt.Errorf("loading tokenizer '%s': %w", encoding, err)
	}
	return &TokenCounter{codec: codec, encoding: encoding}, nil
}

// EstimatingCounter returns a counter without a codec
func EstimatingCounter() *TokenCounter {
	return &TokenCounter{encoding: "estimate"}
}

// Count returns the token count for text
func (c *TokenCounter) Count(text string) int {
	if c == nil || c.codec == nil {
		return estimateTokens(text)
	}
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return estimateTokens(text)
	}
	return len(ids)
}

// Encoding names the codec in use, or "estimate"
func (c *TokenCounter) Encoding() string {
	if c == nil {
		return "estimate"
	}
	return c.encoding
}

// Exact reports whether counts come from a real codec
func (c *TokenCounter) Exact() bool {
	return c != nil && c.codec != nil
}

func estimateTokens(text string) int {
	return len(text) / 4
}
