// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaEndpoint = "http://localhost:11434"
	defaultOllamaModel    = "all-minilm"
	defaultOllamaTimeout  = 30 * time.Second
)

// OllamaEngine calls the embeddings API of a local Ollama server.
type OllamaEngine struct {
	client   *http.Client
	endpoint string
	model    string
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewOllamaEngine creates an engine for the given endpoint and model.
// Empty values fall back to a local server and the all-minilm model.
func NewOllamaEngine(endpoint, model string, timeout time.Duration) *OllamaEngine {
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	if model == "" {
		model = defaultOllamaModel
	}
	if timeout <= 0 {
		timeout = defaultOllamaTimeout
	}
	return &OllamaEngine{
		client:   &http.Client{Timeout: timeout},
		endpoint: strings.TrimSuffix(endpoint, "/"),
		model:    model,
	}
}

// Embed returns the embedding of text.
func (e *OllamaEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ollama: failed to decode response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama: %w", ErrEmptyEmbedding)
	}

	return result.Embedding, nil
}
