// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package embedding

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const defaultGenAIModel = "gemini-embedding-001"

// GenAIEngine produces embeddings through the Gemini API.
type GenAIEngine struct {
	client *genai.Client
	model  string
}

// NewGenAIEngine creates a Gemini backed engine.
func NewGenAIEngine(ctx context.Context, apiKey, model string) (*GenAIEngine, error) {
	if apiKey == "" {
		return nil, errors.New("genai: API key is required")
	}
	if model == "" {
		model = defaultGenAIModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai: failed to create client: %w", err)
	}

	return &GenAIEngine{client: client, model: model}, nil
}

// Embed returns the semantic-similarity embedding of text.
func (e *GenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, fmt.Errorf("genai: embed failed: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("genai: %w", ErrEmptyEmbedding)
	}

	return result.Embeddings[0].Values, nil
}
