// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"codeberg.org/oliverandrich/guard/internal/config"
	"golang.org/x/crypto/acme/autocert"
)

// TLSMode represents the resolved TLS mode.
type TLSMode string

const (
	TLSModeOff    TLSMode = "off"
	TLSModeACME   TLSMode = "acme"
	TLSModeManual TLSMode = "manual"
)

// TLSResult contains the resolved TLS configuration.
type TLSResult struct {
	TLSConfig   *tls.Config
	HTTPHandler http.Handler // ACME challenge handler and HTTPS redirect
	Mode        TLSMode
}

// SetupTLS configures TLS based on the configuration.
func SetupTLS(cfg *config.Config) (*TLSResult, error) {
	switch mode := TLSMode(config.ResolveTLSMode(cfg)); mode {
	case TLSModeOff:
		return &TLSResult{Mode: TLSModeOff}, nil
	case TLSModeACME:
		return setupACME(cfg)
	case TLSModeManual:
		return setupManual(cfg)
	default:
		return nil, fmt.Errorf("unknown TLS mode: %s", mode)
	}
}

// setupACME configures Let's Encrypt with autocert.
func setupACME(cfg *config.Config) (*TLSResult, error) {
	if cfg.TLS.Email == "" {
		return nil, errors.New("ACME mode requires TLS_EMAIL to be set")
	}
	if cfg.Server.Port != 443 {
		slog.Warn("ACME mode uses port 443, configured port will be ignored", "configured_port", cfg.Server.Port)
	}

	certDir := filepath.Join(cfg.TLS.CertDir, "acme")
	if err := os.MkdirAll(certDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create ACME cert directory: %w", err)
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Email:      cfg.TLS.Email,
		Cache:      autocert.DirCache(certDir),
		HostPolicy: autocert.HostWhitelist(cfg.Server.Host),
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	slog.Info("TLS mode: acme", "host", cfg.Server.Host, "email", cfg.TLS.Email)
	return &TLSResult{
		Mode:        TLSModeACME,
		TLSConfig:   tlsConfig,
		HTTPHandler: manager.HTTPHandler(nil),
	}, nil
}

// setupManual loads user-provided certificate files.
func setupManual(cfg *config.Config) (*TLSResult, error) {
	certFile, keyFile := cfg.TLS.CertFile, cfg.TLS.KeyFile
	if certFile == "" || keyFile == "" {
		return nil, errors.New("manual TLS mode requires both cert-file and key-file")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	slog.Info("TLS mode: manual", "cert", certFile, "key", keyFile)
	return &TLSResult{
		Mode: TLSModeManual,
		TLSConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		},
	}, nil
}
