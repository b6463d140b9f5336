// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/oliverandrich/guard/internal/i18n"
	"codeberg.org/oliverandrich/guard/internal/models"
	"codeberg.org/oliverandrich/guard/internal/services/guard"
	"github.com/labstack/echo/v4"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func jsonError(c echo.Context, code int, messageID string) error {
	return c.JSON(code, errorBody{Error: i18n.T(c.Request().Context(), messageID)})
}

// errorResponse maps service errors to status codes.
func errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, guard.ErrNotFound):
		return jsonError(c, http.StatusNotFound, "user_not_found")
	case errors.Is(err, guard.ErrConflict):
		return jsonError(c, http.StatusConflict, "user_exists")
	case errors.Is(err, guard.ErrInvalidAuthType):
		return jsonError(c, http.StatusBadRequest, "invalid_auth_type")
	case errors.Is(err, guard.ErrEmptyPhrase):
		return jsonError(c, http.StatusBadRequest, "empty_phrase")
	default:
		slog.Error("request_failed", "path", c.Path(), "error", err)
		return jsonError(c, http.StatusInternalServerError, "internal_error")
	}
}

// lockedResponse is the 429 body for a locked account.
type lockedResponse struct {
	Status      string  `json:"status"`
	Error       string  `json:"error"`
	RetryAfter  int     `json:"retry_after"`
	LockedUntil float64 `json:"locked_until"`
}

func tooManyAttempts(c echo.Context, locked guard.Locked) error {
	seconds := retryAfterSeconds(locked.Remaining)
	c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
	return c.JSON(http.StatusTooManyRequests, lockedResponse{
		Status:      "locked",
		Error:       i18n.TData(c.Request().Context(), "account_locked", map[string]any{"Seconds": seconds}),
		RetryAfter:  seconds,
		LockedUntil: models.UnixSeconds(locked.Until),
	})
}

// retryAfterSeconds rounds up so clients never retry before the lock ends.
func retryAfterSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}
