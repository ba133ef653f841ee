package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"
)

// DefaultLLMMaxTokens bounds a single extraction completion.
const DefaultLLMMaxTokens = 200

// ErrLLMDisabled is returned when no LLM client was configured.
var ErrLLMDisabled = errors.New("llm: client not configured")

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// LLMCompleter adapts the go-kit LLM client to a prompt-in, continuation-out call
// with deterministic decoding.
type LLMCompleter struct {
	client    *llm.Client
	maxTokens int
}

// NewLLMCompleter wraps client. maxTokens <= 0 uses DefaultLLMMaxTokens.
func NewLLMCompleter(client *llm.Client, maxTokens int) *LLMCompleter {
	if maxTokens <= 0 {
		maxTokens = DefaultLLMMaxTokens
	}
	return &LLMCompleter{client: client, maxTokens: maxTokens}
}

// Enabled reports whether a client is configured.
func (c *LLMCompleter) Enabled() bool { return c != nil && c.client != nil }

// Complete sends prompt with temperature 0 and returns the generated text only.
func (c *LLMCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrLLMDisabled
	}
	metrics.LLMCalls.Add(1)
	resp, err := c.client.Complete(ctx, "", prompt,
		llm.WithChatTemperature(0),
		llm.WithChatMaxTokens(c.maxTokens),
	)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return stripFences(resp), nil
}
