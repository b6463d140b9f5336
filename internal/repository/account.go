// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/oliverandrich/guard/internal/models"
	"github.com/vinovest/sqlx"
)

// CreateAccount inserts a new account. Returns ErrConflict if the user id
// is taken.
func (r *Repository) CreateAccount(ctx context.Context, userID, credentialDigest string) (*models.Account, error) {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO accounts (user_id, credential_digest) VALUES (?, ?)`,
		userID, credentialDigest)
	if err != nil {
		return nil, wrapError(err)
	}
	return r.GetAccount(ctx, userID)
}

// GetAccount retrieves an account by user id.
func (r *Repository) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	var account models.Account
	err := sqlx.GetContext(ctx, r.q, &account, `SELECT * FROM accounts WHERE user_id = ?`, userID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// AccountExists checks if an account with the given user id exists.
func (r *Repository) AccountExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.q, &exists, `SELECT EXISTS(SELECT 1 FROM accounts WHERE user_id = ?)`, userID)
	return exists, err
}

// UpdateLockout stores the failed attempt counter and lock expiry.
func (r *Repository) UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil int64) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET failed_attempts = ?, locked_until = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ?`,
		failedAttempts, lockedUntil, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateCredential replaces the credential digest of an account.
func (r *Repository) UpdateCredential(ctx context.Context, userID, credentialDigest string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET credential_digest = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ?`,
		credentialDigest, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
