// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package embedding_test

import (
	"testing"

	"codeberg.org/oliverandrich/guard/internal/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 0}, []float32{5, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"partial", []float32{1, 0}, []float32{0.6, 0.8}, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := embedding.CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-6)
		})
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := embedding.CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})

	require.Error(t, err)
	assert.ErrorIs(t, err, embedding.ErrDimensionMismatch)
}
