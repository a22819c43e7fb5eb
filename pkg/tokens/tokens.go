// Package tokens estimates the size cost of conversation text.
package tokens

import (
	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens with the cl100k encoding and falls back to the
// chars/4 heuristic when the codec is unavailable.
type Counter struct {
	codec tokenizer.Codec
}

// NewCounter builds a Counter. It never fails; a codec error only disables
// exact counting.
func NewCounter() *Counter {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return &Counter{}
	}
	return &Counter{codec: codec}
}

// Estimate is the chars/4 heuristic.
func Estimate(text string) int {
	return len(text) / 4
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if c == nil || c.codec == nil {
		return Estimate(text)
	}
	n, err := c.codec.Count(text)
	if err != nil {
		return Estimate(text)
	}
	return n
}
