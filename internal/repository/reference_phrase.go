// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/oliverandrich/guard/internal/models"
	"github.com/vinovest/sqlx"
)

// AddReferencePhrases stores encoded phrase vectors for a user.
func (r *Repository) AddReferencePhrases(ctx context.Context, userID string, vectors [][]byte) error {
	for _, vec := range vectors {
		_, err := r.q.ExecContext(ctx,
			`INSERT INTO reference_phrases (user_id, vector) VALUES (?, ?)`,
			userID, vec)
		if err != nil {
			return wrapError(err)
		}
	}
	return nil
}

// ListReferencePhrases returns all phrase vectors of a user in enrollment order.
func (r *Repository) ListReferencePhrases(ctx context.Context, userID string) ([]models.ReferencePhrase, error) {
	var phrases []models.ReferencePhrase
	err := sqlx.SelectContext(ctx, r.q, &phrases,
		`SELECT * FROM reference_phrases WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	return phrases, nil
}

