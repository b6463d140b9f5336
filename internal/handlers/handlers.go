// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/guard/internal/services/guard"
	"github.com/labstack/echo/v4"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	guard *guard.Service
}

// New creates a new Handlers instance.
func New(svc *guard.Service) *Handlers {
	return &Handlers{guard: svc}
}

// Register mounts the API routes on e.
func (h *Handlers) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/user/:user_id", h.Status)
	e.POST("/enroll", h.Enroll)
	e.POST("/verify", h.Verify)
	e.POST("/update_account", h.UpdateAccount)
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
