package promo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anatolykoptev/go_promo/internal/engine"
)

// Completer generates a continuation for a prompt with deterministic decoding.
// engine.LLMCompleter is the production implementation.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Extractor asks a language model for the sponsor, promo code and discount in
// a video description.
type Extractor struct {
	completer Completer
	maxChars  int
}

// NewExtractor creates an Extractor. maxChars <= 0 uses engine.DefaultDescriptionMax.
func NewExtractor(c Completer, maxChars int) *Extractor {
	if maxChars <= 0 {
		maxChars = engine.DefaultDescriptionMax
	}
	return &Extractor{completer: c, maxChars: maxChars}
}

// Enabled reports whether a model is configured. Completers that can be
// unconfigured, like engine.LLMCompleter, say so through an Enabled method.
func (e *Extractor) Enabled() bool {
	if e == nil || e.completer == nil {
		return false
	}
	if c, ok := e.completer.(interface{ Enabled() bool }); ok {
		return c.Enabled()
	}
	return true
}

// Detect returns the promotion found in description, or nil when there is none.
// Only the first maxChars characters are shown to the model. A failed model
// call is an error, never a nil record; engine.ErrLLMDisabled means no model is
// configured.
func (e *Extractor) Detect(ctx context.Context, description string) (*engine.PromoRecord, error) {
	if e == nil || e.completer == nil {
		return nil, engine.ErrLLMDisabled
	}
	text := engine.TruncateRunes(description, e.maxChars, "")
	out, err := e.completer.Complete(ctx, BuildPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("promo: model call: %w", err)
	}
	rec := ParseOutput(out)
	if rec != nil {
		engine.IncrPromoDetected()
	}
	slog.Debug("promo: extracted", slog.Bool("found", rec != nil), slog.Int("output_len", len(out)))
	return rec, nil
}

// Extract is Detect without the error: a failed model call is logged and
// reads as "no promotion".
func (e *Extractor) Extract(ctx context.Context, description string) *engine.PromoRecord {
	rec, err := e.Detect(ctx, description)
	if err != nil {
		slog.Warn("promo: model call failed", slog.Any("error", err))
		return nil
	}
	return rec
}
