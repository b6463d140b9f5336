// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/guard/internal/config"
	"codeberg.org/oliverandrich/guard/internal/database"
	"codeberg.org/oliverandrich/guard/internal/embedding"
	"codeberg.org/oliverandrich/guard/internal/handlers"
	"codeberg.org/oliverandrich/guard/internal/i18n"
	"codeberg.org/oliverandrich/guard/internal/repository"
	"codeberg.org/oliverandrich/guard/internal/services/guard"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	embedder, err := embedding.NewEngine(ctx, embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		Timeout:        cfg.Embedding.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	svc := guard.NewService(repository.New(db), embedder,
		guard.BcryptHasher{Cost: cfg.Guard.BcryptCost}, guardConfig(cfg.Guard))

	return startWithGracefulShutdown(ctx, newEcho(cfg, svc), cfg)
}

func guardConfig(g config.GuardConfig) guard.Config {
	return guard.Config{
		AcceptThreshold:     g.AcceptThreshold,
		AmbiguousThreshold:  g.AmbiguousThreshold,
		ClarificationWindow: g.ClarificationWindow,
		MaxAttempts:         g.MaxAttempts,
		Cooldown:            g.Cooldown,
		EnrollConcurrency:   g.EnrollConcurrency,
	}
}

// newEcho builds the router with middleware and API routes.
func newEcho(cfg *config.Config, svc *guard.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	handlers.New(svc).Register(e)

	return e
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)
	serve := func(name string, fn func() error) {
		go func() {
			if err := fn(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	// HTTP-01 challenge and redirect server for ACME mode
	var httpServer *http.Server

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	switch tlsResult.Mode {
	case TLSModeOff:
		serve("http", func() error { return e.Start(addr) })

	case TLSModeACME:
		serve("https", func() error { return startTLSServer(e, ":443", tlsResult.TLSConfig) })
		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		serve("redirect", httpServer.ListenAndServe)
		slog.Info("HTTP redirect active", "addr", ":80")

	case TLSModeManual:
		serve("https", func() error { return startTLSServer(e, addr, tlsResult.TLSConfig) })
	}
	slog.Info("server running", "url", cfg.Server.BaseURL, "tls", tlsResult.Mode)

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.TLSServer.Serve(e.TLSListener)
}
