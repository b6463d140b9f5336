// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package guard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/guard/internal/models"
	"codeberg.org/oliverandrich/guard/internal/repository"
)

const DefaultClarificationWindow = 300 * time.Second

// ClarificationStore persists at most one pending clarification per user.
type ClarificationStore interface {
	GetClarification(ctx context.Context, userID string) (*models.ClarificationContext, error)
	UpsertClarification(ctx context.Context, c *models.ClarificationContext) error
	DeleteClarification(ctx context.Context, userID string) error
}

// Clarifications manages the partial phrase kept between an ambiguous
// verification and its follow-up.
type Clarifications struct {
	Window time.Duration
}

// Peek returns the pending phrase if one exists and is younger than Window.
// It never writes.
func (c Clarifications) Peek(ctx context.Context, store ClarificationStore, userID string, now time.Time) (string, bool, error) {
	pending, fresh, err := c.lookup(ctx, store, userID, now)
	if err != nil || pending == nil || !fresh {
		return "", false, err
	}
	return pending.PartialPhrase, true, nil
}

// PeekAndConsume is Peek that also deletes an expired context. A fresh
// context is left in place.
func (c Clarifications) PeekAndConsume(ctx context.Context, store ClarificationStore, userID string, now time.Time) (string, bool, error) {
	pending, fresh, err := c.lookup(ctx, store, userID, now)
	if err != nil || pending == nil {
		return "", false, err
	}
	if !fresh {
		slog.Debug("clarification_expired", "user_id", userID, "age", pending.Age(now))
		return "", false, store.DeleteClarification(ctx, userID)
	}
	return pending.PartialPhrase, true, nil
}

// Store saves phrase as the pending context, replacing any previous one.
func (c Clarifications) Store(ctx context.Context, store ClarificationStore, userID, phrase string, now time.Time) error {
	return store.UpsertClarification(ctx, &models.ClarificationContext{
		UserID:        userID,
		PartialPhrase: phrase,
		CreatedAt:     now.UnixNano(),
	})
}

// Clear removes the pending context. Clearing a missing context is a no-op.
func (c Clarifications) Clear(ctx context.Context, store ClarificationStore, userID string) error {
	return store.DeleteClarification(ctx, userID)
}

func (c Clarifications) lookup(ctx context.Context, store ClarificationStore, userID string, now time.Time) (*models.ClarificationContext, bool, error) {
	pending, err := store.GetClarification(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return pending, pending.Age(now) < c.Window, nil
}
