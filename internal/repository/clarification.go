// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/oliverandrich/guard/internal/models"
	"github.com/vinovest/sqlx"
)

// GetClarification returns the stored clarification context of a user.
func (r *Repository) GetClarification(ctx context.Context, userID string) (*models.ClarificationContext, error) {
	var c models.ClarificationContext
	err := sqlx.GetContext(ctx, r.q, &c,
		`SELECT user_id, partial_phrase, created_at FROM clarification_contexts WHERE user_id = ?`, userID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &c, nil
}

// UpsertClarification stores a clarification context, replacing any
// previous one for the same user.
func (r *Repository) UpsertClarification(ctx context.Context, c *models.ClarificationContext) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO clarification_contexts (user_id, partial_phrase, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET partial_phrase = excluded.partial_phrase, created_at = excluded.created_at`,
		c.UserID, c.PartialPhrase, c.CreatedAt)
	return wrapError(err)
}

// DeleteClarification removes the clarification context of a user.
// Deleting a missing context is not an error.
func (r *Repository) DeleteClarification(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM clarification_contexts WHERE user_id = ?`, userID)
	return err
}
