// ABOUTME: Ollama /api/generate client used for local models
// ABOUTME: Sends stream=false with the configured temperature
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Ollama struct {
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
}

func NewOllama(opts Options) *Ollama {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := opts.Model
	if model == "" {
		model = "llama3.2"
	}
	return &Ollama{
		baseURL:     baseURL,
		model:       model,
		temperature: opts.Temperature,
		httpClient:  httpClientOrDefault(opts.HTTPClient),
	}
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	req := ollamaRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: o.temperature},
	}

	var resp ollamaResponse
	if err := postJSON(ctx, o.httpClient, o.baseURL+"/api/generate", nil, req, &resp); err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", resp.Error)
	}
	if strings.TrimSpace(resp.Response) == "" {
		return "", errors.New("ollama returned an empty response")
	}
	return resp.Response, nil
}
