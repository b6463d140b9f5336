// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package embedding turns text into vectors and compares them.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrEmptyEmbedding is returned when a backend answers without a vector.
var ErrEmptyEmbedding = errors.New("empty embedding")

// Embedder produces a fixed-length vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config selects and configures an embedding backend.
type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Provider       string // ollama, genai
	OllamaEndpoint string
	OllamaModel    string
	GenAIAPIKey    string
	GenAIModel     string
	Timeout        time.Duration
}

// NewEngine creates the embedder named by cfg.Provider.
func NewEngine(ctx context.Context, cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "ollama", "":
		slog.Info("embedding engine", "provider", "ollama", "endpoint", cfg.OllamaEndpoint, "model", cfg.OllamaModel)
		return NewOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel, cfg.Timeout), nil
	case "genai":
		slog.Info("embedding engine", "provider", "genai", "model", cfg.GenAIModel)
		return NewGenAIEngine(ctx, cfg.GenAIAPIKey, cfg.GenAIModel)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
