// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/guard/internal/i18n"
	"codeberg.org/oliverandrich/guard/internal/models"
	"codeberg.org/oliverandrich/guard/internal/services/guard"
	"github.com/labstack/echo/v4"
)

// cleanUserID trims surrounding whitespace so every route sees the same id.
func cleanUserID(id string) string {
	return strings.TrimSpace(id)
}

// StatusResponse is returned by GET /user/:user_id.
type StatusResponse struct {
	Exists      bool    `json:"exists"`
	IsLocked    bool    `json:"is_locked"`
	LockedUntil float64 `json:"locked_until"`
}

// Status reports whether a user exists and is locked.
func (h *Handlers) Status(c echo.Context) error {
	userID := cleanUserID(c.Param("user_id"))
	if userID == "" {
		return jsonError(c, http.StatusBadRequest, "missing_user_id")
	}

	status, err := h.guard.Status(c.Request().Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}

	resp := StatusResponse{Exists: status.Exists, IsLocked: status.IsLocked}
	if !status.LockedUntil.IsZero() {
		resp.LockedUntil = models.UnixSeconds(status.LockedUntil)
	}
	return c.JSON(http.StatusOK, resp)
}

// EnrollRequest is the request body for POST /enroll.
type EnrollRequest struct {
	UserID   string   `json:"user_id"`
	Password string   `json:"password"`
	Phrases  []string `json:"phrases"`
}

// Enroll creates an account with its password and recovery phrases.
func (h *Handlers) Enroll(c echo.Context) error {
	var req EnrollRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "bad_request")
	}
	req.UserID = cleanUserID(req.UserID)
	if req.UserID == "" {
		return jsonError(c, http.StatusBadRequest, "missing_user_id")
	}
	if req.Password == "" {
		return jsonError(c, http.StatusBadRequest, "bad_request")
	}

	if err := h.guard.Enroll(c.Request().Context(), req.UserID, req.Password, req.Phrases); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "enrolled",
		"message": i18n.T(c.Request().Context(), "enrolled"),
	})
}

// VerifyRequest is the request body for POST /verify.
type VerifyRequest struct {
	UserID    string `json:"user_id"`
	InputText string `json:"input_text"`
	AuthType  string `json:"auth_type"`
}

// VerifyResponse is returned for every non-locked verification outcome.
type VerifyResponse struct {
	Status            string   `json:"status"`
	Message           string   `json:"message,omitempty"`
	Score             *float64 `json:"score,omitempty"`
	AttemptsRemaining *int     `json:"attempts_remaining,omitempty"`
}

// Verify checks a password or recovery phrase.
func (h *Handlers) Verify(c echo.Context) error {
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "bad_request")
	}
	req.UserID = cleanUserID(req.UserID)
	if req.UserID == "" {
		return jsonError(c, http.StatusBadRequest, "missing_user_id")
	}
	authType, err := guard.ParseAuthType(req.AuthType)
	if err != nil {
		return errorResponse(c, err)
	}

	ctx := c.Request().Context()
	outcome, err := h.guard.Verify(ctx, req.UserID, req.InputText, authType)
	if err != nil {
		return errorResponse(c, err)
	}

	switch o := outcome.(type) {
	case guard.Authorized:
		return c.JSON(http.StatusOK, VerifyResponse{
			Status:  "authorized",
			Message: i18n.T(ctx, "verify_authorized"),
			Score:   &o.Score,
		})
	case guard.Ambiguous:
		return c.JSON(http.StatusOK, VerifyResponse{
			Status:  "ambiguous",
			Message: i18n.T(ctx, "verify_ambiguous"),
			Score:   &o.Score,
		})
	case guard.Denied:
		return c.JSON(http.StatusOK, VerifyResponse{
			Status:            "denied",
			Message:           i18n.TPlural(ctx, "verify_denied", o.AttemptsRemaining),
			AttemptsRemaining: &o.AttemptsRemaining,
		})
	case guard.Locked:
		return tooManyAttempts(c, o)
	default:
		slog.Error("unknown verify outcome", "outcome", outcome)
		return jsonError(c, http.StatusInternalServerError, "internal_error")
	}
}

// UpdateAccountRequest is the request body for POST /update_account.
type UpdateAccountRequest struct {
	UserID      string `json:"user_id"`
	NewPassword string `json:"new_password"`
}

// UpdateAccount replaces a user's password.
func (h *Handlers) UpdateAccount(c echo.Context) error {
	var req UpdateAccountRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "bad_request")
	}
	req.UserID = cleanUserID(req.UserID)
	if req.UserID == "" {
		return jsonError(c, http.StatusBadRequest, "missing_user_id")
	}
	if req.NewPassword == "" {
		return jsonError(c, http.StatusBadRequest, "bad_request")
	}

	if err := h.guard.UpdateAccount(c.Request().Context(), req.UserID, req.NewPassword); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": i18n.T(c.Request().Context(), "password_updated"),
	})
}
