package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const defaultOllamaModel = "llama3.2"

// Ollama calls a local or self-hosted Ollama server.
type Ollama struct {
	api     *api.Client
	model   string
	timeout time.Duration
}

// NewOllama builds a client for baseURL. A nil httpClient gets a plain
// http.Client; per-call deadlines come from the context.
func NewOllama(baseURL, model string, timeout time.Duration, httpClient *http.Client) (*Ollama, error) {
	u, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("llm: invalid ollama url: %w", err)
	}
	if model == "" {
		model = defaultOllamaModel
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Ollama{
		api:     api.NewClient(u, httpClient),
		model:   model,
		timeout: timeout,
	}, nil
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	stream := false
	req := &api.GenerateRequest{Model: o.model, Prompt: prompt, Stream: &stream}

	var sb strings.Builder
	err := o.api.Generate(ctx, req, func(r api.GenerateResponse) error {
		sb.WriteString(r.Response)
		return nil
	})
	if err != nil {
		return "", wrap(o.Name(), err)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", wrap(o.Name(), ErrEmptyResponse)
	}
	return text, nil
}
