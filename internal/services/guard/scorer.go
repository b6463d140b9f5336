// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package guard

import (
	"context"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/guard/internal/embedding"
	"codeberg.org/oliverandrich/guard/internal/models"
	"codeberg.org/oliverandrich/guard/internal/textnorm"
)

// Scorer rates an input phrase against a user's reference phrases.
type Scorer struct {
	embedder embedding.Embedder
}

func NewScorer(embedder embedding.Embedder) *Scorer {
	return &Scorer{embedder: embedder}
}

// Score returns the best cosine similarity between input and any usable
// reference vector. Without usable references the score is 0 and the
// embedder is not called.
func (s *Scorer) Score(ctx context.Context, input string, refs []models.ReferencePhrase) (float64, error) {
	vectors := make([][]float32, 0, len(refs))
	for _, ref := range refs {
		vec, err := embedding.DecodeVector(ref.Vector)
		if err != nil {
			slog.Warn("reference_vector_skipped", "user_id", ref.UserID, "phrase_id", ref.ID, "error", err)
			continue
		}
		vectors = append(vectors, vec)
	}
	if len(vectors) == 0 {
		return 0, nil
	}

	text := textnorm.Normalize(input)
	if text == "" {
		return 0, nil
	}

	query, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("failed to embed input: %w", err)
	}

	var best float64
	found := false
	for i, vec := range vectors {
		sim, err := embedding.CosineSimilarity(query, vec)
		if err != nil {
			slog.Warn("reference_vector_skipped", "index", i, "error", err)
			continue
		}
		if !found || sim > best {
			best, found = sim, true
		}
	}
	return best, nil
}
