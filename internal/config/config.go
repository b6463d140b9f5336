// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	TLS       TLSConfig
	Embedding EmbeddingConfig
	Guard     GuardConfig
}

type TLSConfig struct {
	Mode     string // auto, acme, manual, off
	CertDir  string // ACME certificate cache
	Email    string // ACME email for Let's Encrypt
	CertFile string // manual mode
	KeyFile  string // manual mode
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in KB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

// EmbeddingConfig selects the model that turns phrases into vectors.
type EmbeddingConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Provider       string // ollama, genai
	OllamaEndpoint string
	OllamaModel    string
	GenAIAPIKey    string
	GenAIModel     string
	Timeout        time.Duration
}

// GuardConfig holds the verification policy.
type GuardConfig struct { //nolint:govet // fieldalignment not critical for config structs
	MaxAttempts         int
	Cooldown            time.Duration
	ClarificationWindow time.Duration
	AcceptThreshold     float64
	AmbiguousThreshold  float64
	BcryptCost          int
	EnrollConcurrency   int
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		TLS: TLSConfig{
			Mode:     cmd.String("tls-mode"),
			CertDir:  cmd.String("tls-cert-dir"),
			Email:    cmd.String("tls-email"),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
		Embedding: EmbeddingConfig{
			Provider:       cmd.String("embedding-provider"),
			OllamaEndpoint: cmd.String("ollama-endpoint"),
			OllamaModel:    cmd.String("ollama-model"),
			GenAIAPIKey:    cmd.String("genai-api-key"),
			GenAIModel:     cmd.String("genai-model"),
			Timeout:        cmd.Duration("embedding-timeout"),
		},
		Guard: GuardConfig{
			MaxAttempts:         int(cmd.Int("max-attempts")),
			Cooldown:            cmd.Duration("cooldown"),
			ClarificationWindow: cmd.Duration("clarification-window"),
			AcceptThreshold:     cmd.Float("accept-threshold"),
			AmbiguousThreshold:  cmd.Float("ambiguous-threshold"),
			BcryptCost:          int(cmd.Int("bcrypt-cost")),
			EnrollConcurrency:   int(cmd.Int("enroll-concurrency")),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	return cfg
}

// Validate reports configuration that would make the guard misbehave.
func (c *Config) Validate() error {
	g := c.Guard
	if g.MaxAttempts < 1 {
		return fmt.Errorf("max-attempts must be at least 1, got %d", g.MaxAttempts)
	}
	if g.Cooldown <= 0 {
		return fmt.Errorf("cooldown must be positive, got %s", g.Cooldown)
	}
	if g.ClarificationWindow <= 0 {
		return fmt.Errorf("clarification-window must be positive, got %s", g.ClarificationWindow)
	}
	if g.AmbiguousThreshold > g.AcceptThreshold {
		return fmt.Errorf("ambiguous-threshold %.2f exceeds accept-threshold %.2f", g.AmbiguousThreshold, g.AcceptThreshold)
	}
	switch c.Embedding.Provider {
	case "ollama", "":
	case "genai":
		if c.Embedding.GenAIAPIKey == "" {
			return fmt.Errorf("embedding provider genai requires GENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.Embedding.Provider)
	}
	return nil
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	mode := ResolveTLSMode(cfg)
	if mode == "acme" {
		return fmt.Sprintf("https://%s", host)
	}

	scheme := "http"
	if mode == "manual" {
		scheme = "https"
	}

	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// ResolveTLSMode turns the configured mode into one of off, acme or manual.
// In auto mode localhost stays plain HTTP, certificate files select manual,
// an ACME email on a DNS name selects acme, and everything else is off.
func ResolveTLSMode(cfg *Config) string {
	mode := strings.ToLower(cfg.TLS.Mode)
	switch mode {
	case "off", "acme", "manual":
		return mode
	}

	host := cfg.Server.Host
	switch {
	case IsLocalhost(host):
		return "off"
	case cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "":
		return "manual"
	case cfg.TLS.Email != "" && net.ParseIP(host) == nil:
		return "acme"
	default:
		return "off"
	}
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	return strings.HasSuffix(host, ".localhost")
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Public base URL",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   64,
			Usage:   "Maximum request body size in KB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/guard.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "auto",
			Usage:   "TLS mode (auto, acme, manual, off)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_MODE"), toml.TOML("tls.mode", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-dir",
			Value:   "./data/certs",
			Usage:   "Directory for ACME certificates",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_DIR"), toml.TOML("tls.cert_dir", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-email",
			Usage:   "Email for ACME/Let's Encrypt registration",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_EMAIL"), toml.TOML("tls.email", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_FILE"), toml.TOML("tls.cert_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_KEY_FILE"), toml.TOML("tls.key_file", configFile)),
		},
		// Embedding flags
		&cli.StringFlag{
			Name:    "embedding-provider",
			Value:   "ollama",
			Usage:   "Embedding provider (ollama, genai)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMBEDDING_PROVIDER"), toml.TOML("embedding.provider", configFile)),
		},
		&cli.StringFlag{
			Name:    "ollama-endpoint",
			Value:   "http://localhost:11434",
			Usage:   "Ollama base URL",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OLLAMA_ENDPOINT"), toml.TOML("embedding.ollama_endpoint", configFile)),
		},
		&cli.StringFlag{
			Name:    "ollama-model",
			Value:   "all-minilm",
			Usage:   "Ollama embedding model",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OLLAMA_MODEL"), toml.TOML("embedding.ollama_model", configFile)),
		},
		&cli.StringFlag{
			Name:    "genai-api-key",
			Usage:   "Google GenAI API key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GENAI_API_KEY"), toml.TOML("embedding.genai_api_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "genai-model",
			Value:   "gemini-embedding-001",
			Usage:   "Google GenAI embedding model",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GENAI_MODEL"), toml.TOML("embedding.genai_model", configFile)),
		},
		&cli.DurationFlag{
			Name:    "embedding-timeout",
			Value:   30 * time.Second,
			Usage:   "Timeout for a single embedding request",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMBEDDING_TIMEOUT"), toml.TOML("embedding.timeout", configFile)),
		},
		// Guard flags
		&cli.IntFlag{
			Name:    "max-attempts",
			Value:   3,
			Usage:   "Failed verifications before the account locks",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GUARD_MAX_ATTEMPTS"), toml.TOML("guard.max_attempts", configFile)),
		},
		&cli.DurationFlag{
			Name:    "cooldown",
			Value:   10 * time.Minute,
			Usage:   "How long a tripped lock lasts",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GUARD_COOLDOWN"), toml.TOML("guard.cooldown", configFile)),
		},
		&cli.DurationFlag{
			Name:    "clarification-window",
			Value:   300 * time.Second,
			Usage:   "How long an ambiguous phrase waits for its follow-up",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GUARD_CLARIFICATION_WINDOW"), toml.TOML("guard.clarification_window", configFile)),
		},
		&cli.FloatFlag{
			Name:    "accept-threshold",
			Value:   0.80,
			Usage:   "Phrase similarity that authorizes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GUARD_ACCEPT_THRESHOLD"), toml.TOML("guard.accept_threshold", configFile)),
		},
		&cli.FloatFlag{
			Name:    "ambiguous-threshold",
			Value:   0.60,
			Usage:   "Phrase similarity that asks for clarification",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GUARD_AMBIGUOUS_THRESHOLD"), toml.TOML("guard.ambiguous_threshold", configFile)),
		},
		&cli.IntFlag{
			Name:    "bcrypt-cost",
			Value:   12,
			Usage:   "bcrypt cost for password digests",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GUARD_BCRYPT_COST"), toml.TOML("guard.bcrypt_cost", configFile)),
		},
		&cli.IntFlag{
			Name:    "enroll-concurrency",
			Value:   4,
			Usage:   "Parallel embedding requests during enrollment",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GUARD_ENROLL_CONCURRENCY"), toml.TOML("guard.enroll_concurrency", configFile)),
		},
	}
}
