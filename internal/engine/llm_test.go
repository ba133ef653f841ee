package engine

import (
	"context"
	"errors"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"brand": "X"}`, `{"brand": "X"}`},
		{"json fence", "```json\n{\"brand\": \"X\"}\n```", `{"brand": "X"}`},
		{"bare fence", "```\n{}\n```", `{}`},
		{"whitespace", "  \n{}\n ", `{}`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.raw); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestLLMCompleterDisabled(t *testing.T) {
	c := NewLLMCompleter(nil, 0)
	if c.maxTokens != DefaultLLMMaxTokens {
		t.Errorf("maxTokens = %d, want %d", c.maxTokens, DefaultLLMMaxTokens)
	}
	if _, err := c.Complete(context.Background(), "prompt"); !errors.Is(err, ErrLLMDisabled) {
		t.Errorf("err = %v, want ErrLLMDisabled", err)
	}

	var nilCompleter *LLMCompleter
	if _, err := nilCompleter.Complete(context.Background(), "prompt"); !errors.Is(err, ErrLLMDisabled) {
		t.Errorf("nil completer err = %v", err)
	}
}
