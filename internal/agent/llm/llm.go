// Package llm adapts hosted and local language models to one small
// interface used by the analysis agents.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/real-estate-ai/internal/config"
)

// ErrEmptyResponse is returned when a backend answers with no text.
var ErrEmptyResponse = errors.New("llm: empty response")

const defaultTimeout = 20 * time.Second

// Generator turns a prompt into text. Implementations apply their own
// per-call timeout on top of ctx.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// New picks a backend from cfg: Gemini when an API key is set, else Ollama
// when a URL is set. It returns (nil, nil) when neither is configured, in
// which case the agents fall back to their rule-based output.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Generator, error) {
	switch {
	case cfg.GeminiAPIKey != "":
		g, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		logger.Info("llm backend enabled", "backend", g.Name(), "model", g.model)
		return g, nil
	case cfg.OllamaURL != "":
		o, err := NewOllama(cfg.OllamaURL, cfg.OllamaModel, cfg.Timeout, nil)
		if err != nil {
			return nil, err
		}
		logger.Info("llm backend enabled", "backend", o.Name(), "model", o.model, "url", cfg.OllamaURL)
		return o, nil
	default:
		logger.Info("no llm backend configured, using rule-based analysis only")
		return nil, nil
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

func wrap(backend string, err error) error {
	return fmt.Errorf("llm: %s generate: %w", backend, err)
}
