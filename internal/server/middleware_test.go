// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/oliverandrich/guard/internal/config"
	"codeberg.org/oliverandrich/guard/internal/i18n"
	"codeberg.org/oliverandrich/guard/internal/services/guard"
	"codeberg.org/oliverandrich/guard/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 8080, MaxBodySize: 1},
		TLS:    config.TLSConfig{Mode: "off"},
	}
}

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	require.NoError(t, i18n.Init())
	_, repo := testutil.NewTestDB(t)
	svc := guard.NewService(repo, testutil.NewEmbedder(), guard.BcryptHasher{Cost: bcrypt.MinCost}, guard.DefaultConfig())
	return newEcho(testConfig(), svc)
}

func TestI18nMiddleware(t *testing.T) {
	require.NoError(t, i18n.Init())

	e := echo.New()
	e.Use(i18nMiddleware())

	var locale string
	e.GET("/", func(c echo.Context) error {
		locale = i18n.GetLocale(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	for header, expected := range map[string]string{"en-US": "en", "de-DE": "de", "fr": "en"} {
		t.Run(header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept-Language", header)
			e.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, expected, locale)
		})
	}
}

func TestNewEcho_Health(t *testing.T) {
	e := newTestEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	_, err := uuid.Parse(rec.Header().Get(echo.HeaderXRequestID))
	assert.NoError(t, err, "request id should be a UUID")
}

func TestNewEcho_LocalizedErrors(t *testing.T) {
	e := newTestEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/user/nobody", nil)
	req.Header.Set("Accept-Language", "de")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Benutzer nicht gefunden."}`, rec.Body.String())
}

func TestNewEcho_BodyLimit(t *testing.T) {
	e := newTestEcho(t)

	body := `{"user_id":"alice","password":"` + strings.Repeat("x", 2048) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/enroll", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestNewLogHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newLogHandler(&buf, "warn", "json"))

	logger.Info("hidden")
	logger.Warn("shown", "user_id", "alice")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "alice", entry["user_id"])
}

func TestNewLogHandler_TextAndUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	h := newLogHandler(&buf, "verbose", "text")

	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestGuardConfig(t *testing.T) {
	got := guardConfig(config.GuardConfig{
		MaxAttempts:         5,
		Cooldown:            time.Minute,
		ClarificationWindow: 30 * time.Second,
		AcceptThreshold:     0.9,
		AmbiguousThreshold:  0.7,
		EnrollConcurrency:   2,
	})

	assert.Equal(t, guard.Config{
		AcceptThreshold:     0.9,
		AmbiguousThreshold:  0.7,
		ClarificationWindow: 30 * time.Second,
		MaxAttempts:         5,
		Cooldown:            time.Minute,
		EnrollConcurrency:   2,
	}, got)
}

func TestSetupTLS(t *testing.T) {
	result, err := SetupTLS(testConfig())
	require.NoError(t, err)
	assert.Equal(t, TLSModeOff, result.Mode)

	_, err = SetupTLS(&config.Config{TLS: config.TLSConfig{Mode: "manual"}})
	assert.Error(t, err)

	_, err = SetupTLS(&config.Config{
		Server: config.ServerConfig{Host: "example.com", Port: 443},
		TLS:    config.TLSConfig{Mode: "acme"},
	})
	assert.Error(t, err)
}
