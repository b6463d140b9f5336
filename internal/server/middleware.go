// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/guard/internal/config"
	"codeberg.org/oliverandrich/guard/internal/i18n"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func setupMiddleware(e *echo.Echo, cfg *config.Config) {
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dK", cfg.Server.MaxBodySize)))
	e.Use(i18nMiddleware())
}

// requestLogger returns middleware that logs requests using slog.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}

			level := slog.LevelInfo
			switch {
			case v.Error != nil:
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				level = slog.LevelError
			case v.Status >= 500:
				level = slog.LevelError
			case v.Status == 429:
				level = slog.LevelWarn
			}
			slog.LogAttrs(c.Request().Context(), level, "request", attrs...)

			return nil
		},
	})
}

// i18nMiddleware sets the locale based on Accept-Language header.
func i18nMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lang := i18n.MatchLanguage(c.Request().Header.Get("Accept-Language"))
			ctx := i18n.WithLocale(c.Request().Context(), lang)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
