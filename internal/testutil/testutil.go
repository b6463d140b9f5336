// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"math"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/guard/internal/database"
	"codeberg.org/oliverandrich/guard/internal/models"
	"codeberg.org/oliverandrich/guard/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, repository.New(db)
}

// NewTestAccount creates an account with the given digest.
func NewTestAccount(t *testing.T, repo *repository.Repository, userID, digest string) *models.Account {
	t.Helper()
	account, err := repo.CreateAccount(context.Background(), userID, digest)
	require.NoError(t, err)
	return account
}

// CountReferencePhrases returns how many phrase vectors are stored for a user.
func CountReferencePhrases(t *testing.T, repo *repository.Repository, userID string) int64 {
	t.Helper()
	var count int64
	err := repo.DB().Get(&count, `SELECT COUNT(*) FROM reference_phrases WHERE user_id = ?`, userID)
	require.NoError(t, err)
	return count
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Embedder is a deterministic embedder backed by a lookup table.
// Unknown texts embed to a vector orthogonal to every unit axis used by
// Axis, so they score 0 against references built from Axis.
type Embedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   []string
	Err     error
}

// Dimensions of the vectors produced by Embedder.
const Dimensions = 8

// NewEmbedder creates an empty fake embedder.
func NewEmbedder() *Embedder {
	return &Embedder{vectors: make(map[string][]float32)}
}

// Set maps an already normalized text to a vector.
func (e *Embedder) Set(text string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[text] = vec
}

// Embed implements embedding.Embedder.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, text)
	if e.Err != nil {
		return nil, e.Err
	}
	if vec, ok := e.vectors[text]; ok {
		return vec, nil
	}
	vec := make([]float32, Dimensions)
	vec[Dimensions-1] = 1
	return vec, nil
}

// Calls returns the texts passed to Embed so far.
func (e *Embedder) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Axis returns the unit vector along axis i.
func Axis(i int) []float32 {
	vec := make([]float32, Dimensions)
	vec[i] = 1
	return vec
}

// Toward returns a unit vector whose cosine similarity with Axis(i) is score.
// It leans into axis Dimensions-2 so it stays orthogonal to other axes.
func Toward(i int, score float64) []float32 {
	vec := make([]float32, Dimensions)
	vec[i] = float32(score)
	vec[Dimensions-2] = float32(math.Sqrt(1 - score*score))
	return vec
}
