// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package embedding

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when two vectors differ in length.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. Zero-magnitude vectors score 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
