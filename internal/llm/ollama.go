// internal/llm/ollama.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// ollamaProvider speaks the Ollama generate API for local models
type ollamaProvider struct {
	cfg    Config
	client *http.Client
}

func newOllamaProvider(cfg Config, client *http.Client) (*ollamaProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama provider requires a model")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaBaseURL
	}
	return &ollamaProvider{cfg: cfg, client: client}, nil
}

func (p *ollamaProvider) Name() string { return "ollama" }

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Complete sends one non-streaming generate request
func (p *ollamaProvider) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  p.cfg.Model,
		Prompt: prompt,
		Stream: false,
	}
	if p.cfg.Temperature > 0 || p.cfg.MaxTokens > 0 {
		reqBody.Options = map[string]interface{}{}
		if p.cfg.Temperature > 0 {
			reqBody.Options["temperature"] = p.cfg.Temperature
		}
		if p.cfg.MaxTokens > 0 {
			reqBody.Options["num_predict"] = p.cfg.MaxTokens
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("generate error: %s", parsed.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("generate failed with HTTP %d", resp.StatusCode)
	}
	return parsed.Response, nil
}
