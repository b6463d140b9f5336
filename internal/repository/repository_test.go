// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"errors"
	"testing"

	"codeberg.org/oliverandrich/guard/internal/models"
	"codeberg.org/oliverandrich/guard/internal/repository"
	"codeberg.org/oliverandrich/guard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	db, repo := testutil.NewTestDB(t)

	assert.NotNil(t, repo)
	assert.Same(t, db, repo.DB())
}

func TestCreateAccount(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account, err := repo.CreateAccount(ctx, "alice", "digest")
	require.NoError(t, err)

	assert.Equal(t, "alice", account.UserID)
	assert.Equal(t, "digest", account.CredentialDigest)
	assert.Zero(t, account.FailedAttempts)
	assert.Zero(t, account.LockedUntil)
	assert.False(t, account.CreatedAt.IsZero())
}

func TestCreateAccount_Duplicate(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestAccount(t, repo, "alice", "digest")

	_, err := repo.CreateAccount(ctx, "alice", "other")
	assert.ErrorIs(t, err, repository.ErrConflict)

	account, err := repo.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "digest", account.CredentialDigest)
}

func TestGetAccount_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetAccount(context.Background(), "nobody")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAccountExists(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	exists, err := repo.AccountExists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists)

	testutil.NewTestAccount(t, repo, "alice", "digest")

	exists, err = repo.AccountExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUpdateLockout(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.NewTestAccount(t, repo, "alice", "digest")

	require.NoError(t, repo.UpdateLockout(ctx, "alice", 2, int64(1750000000250000000)))

	account, err := repo.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, account.FailedAttempts)
	assert.Equal(t, int64(1750000000250000000), account.LockedUntil)

	err = repo.UpdateLockout(ctx, "nobody", 1, 0)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateCredential(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.NewTestAccount(t, repo, "alice", "old")

	require.NoError(t, repo.UpdateCredential(ctx, "alice", "new"))

	account, err := repo.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "new", account.CredentialDigest)

	err = repo.UpdateCredential(ctx, "nobody", "new")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReferencePhrases(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.NewTestAccount(t, repo, "alice", "digest")
	testutil.NewTestAccount(t, repo, "bob", "digest")

	require.NoError(t, repo.AddReferencePhrases(ctx, "alice", [][]byte{{1}, {2}, {3}}))
	require.NoError(t, repo.AddReferencePhrases(ctx, "bob", [][]byte{{9}}))

	phrases, err := repo.ListReferencePhrases(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, phrases, 3)
	for i, p := range phrases {
		assert.Equal(t, "alice", p.UserID)
		assert.Equal(t, []byte{byte(i + 1)}, p.Vector)
	}

	assert.Equal(t, int64(3), testutil.CountReferencePhrases(t, repo, "alice"))
}

func TestReferencePhrases_Empty(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.NewTestAccount(t, repo, "alice", "digest")

	phrases, err := repo.ListReferencePhrases(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, phrases)

	assert.Zero(t, testutil.CountReferencePhrases(t, repo, "alice"))
}

func TestReferencePhrases_UnknownUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.AddReferencePhrases(context.Background(), "nobody", [][]byte{{1}})
	assert.Error(t, err)
}

func TestClarification(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.NewTestAccount(t, repo, "alice", "digest")

	_, err := repo.GetClarification(ctx, "alice")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.UpsertClarification(ctx, &models.ClarificationContext{
		UserID: "alice", PartialPhrase: "blue house", CreatedAt: 100,
	}))
	require.NoError(t, repo.UpsertClarification(ctx, &models.ClarificationContext{
		UserID: "alice", PartialPhrase: "red barn", CreatedAt: 200500000001,
	}))

	c, err := repo.GetClarification(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "red barn", c.PartialPhrase)
	assert.Equal(t, int64(200500000001), c.CreatedAt)

	require.NoError(t, repo.DeleteClarification(ctx, "alice"))
	require.NoError(t, repo.DeleteClarification(ctx, "alice"))

	_, err = repo.GetClarification(ctx, "alice")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWithTx_Commit(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	err := repo.WithTx(ctx, func(tx *repository.Repository) error {
		if _, err := tx.CreateAccount(ctx, "alice", "digest"); err != nil {
			return err
		}
		return tx.AddReferencePhrases(ctx, "alice", [][]byte{{1}})
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), testutil.CountReferencePhrases(t, repo, "alice"))
}

func TestWithTx_Rollback(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := repo.WithTx(ctx, func(tx *repository.Repository) error {
		if _, err := tx.CreateAccount(ctx, "alice", "digest"); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	exists, err := repo.AccountExists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWithTx_Panic(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = repo.WithTx(ctx, func(tx *repository.Repository) error {
			_, _ = tx.CreateAccount(ctx, "alice", "digest")
			panic("boom")
		})
	})

	exists, err := repo.AccountExists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWithTx_Nested(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	err := repo.WithTx(ctx, func(tx *repository.Repository) error {
		return tx.WithTx(ctx, func(*repository.Repository) error { return nil })
	})
	assert.Error(t, err)
}
