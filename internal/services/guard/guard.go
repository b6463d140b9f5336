// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package guard decides whether a recovery request may proceed, based on
// a password or a semantic passphrase match, with lockout after repeated
// failures and a short clarification window for borderline phrases.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/guard/internal/embedding"
	"codeberg.org/oliverandrich/guard/internal/models"
	"codeberg.org/oliverandrich/guard/internal/repository"
	"codeberg.org/oliverandrich/guard/internal/textnorm"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultAcceptThreshold is the lowest phrase score that authorizes.
	DefaultAcceptThreshold = 0.80
	// DefaultAmbiguousThreshold is the lowest phrase score that asks for
	// clarification instead of counting as a failure.
	DefaultAmbiguousThreshold = 0.60

	// maxReplans bounds how often a verification is re-planned after the
	// committed state moved underneath it.
	maxReplans = 3
)

// Config holds the decision policy.
type Config struct {
	AcceptThreshold     float64
	AmbiguousThreshold  float64
	ClarificationWindow time.Duration
	MaxAttempts         int
	Cooldown            time.Duration
	EnrollConcurrency   int
}

// DefaultConfig returns the stock policy.
func DefaultConfig() Config {
	return Config{
		AcceptThreshold:     DefaultAcceptThreshold,
		AmbiguousThreshold:  DefaultAmbiguousThreshold,
		ClarificationWindow: DefaultClarificationWindow,
		MaxAttempts:         DefaultMaxAttempts,
		Cooldown:            DefaultCooldown,
		EnrollConcurrency:   4,
	}
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service handles enrollment, verification and password updates. It is
// safe for concurrent use; calls for the same user are serialized.
type Service struct {
	repo     *repository.Repository
	embedder embedding.Embedder
	hasher   Hasher
	scorer   *Scorer
	lockout  LockoutPolicy
	clarify  Clarifications
	config   Config
	locks    *keyedMutex
	now      func() time.Time
}

// NewService creates a new guard service. A zero EnrollConcurrency is
// raised to 1.
func NewService(repo *repository.Repository, embedder embedding.Embedder, hasher Hasher, cfg Config, opts ...Option) *Service {
	if cfg.EnrollConcurrency < 1 {
		cfg.EnrollConcurrency = 1
	}
	s := &Service{
		repo:     repo,
		embedder: embedder,
		hasher:   hasher,
		scorer:   NewScorer(embedder),
		lockout:  LockoutPolicy{MaxAttempts: cfg.MaxAttempts, Cooldown: cfg.Cooldown},
		clarify:  Clarifications{Window: cfg.ClarificationWindow},
		config:   cfg,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status describes the lock state of an account.
type Status struct {
	Exists      bool
	IsLocked    bool
	LockedUntil time.Time
}

// Status returns the current lock state of a user.
func (s *Service) Status(ctx context.Context, userID string) (*Status, error) {
	account, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return &Status{
		Exists:      true,
		IsLocked:    s.lockout.IsLocked(account, s.now()),
		LockedUntil: account.LockExpiry(),
	}, nil
}

// Enroll creates an account with a password and a set of recovery phrases.
// Phrases are normalized and embedded before anything is written.
func (s *Service) Enroll(ctx context.Context, userID, password string, phrases []string) error {
	normalized := make([]string, len(phrases))
	for i, phrase := range phrases {
		normalized[i] = textnorm.Normalize(phrase)
		if normalized[i] == "" {
			return fmt.Errorf("%w: phrase %d", ErrEmptyPhrase, i)
		}
	}

	exists, err := s.repo.AccountExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check existing account: %w", err)
	}
	if exists {
		return ErrConflict
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	vectors, err := s.embedPhrases(ctx, normalized)
	if err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if _, err := tx.CreateAccount(ctx, userID, digest); err != nil {
			return err
		}
		return tx.AddReferencePhrases(ctx, userID, vectors)
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("enroll_success", "user_id", userID, "phrases", len(phrases))
	return nil
}

func (s *Service) embedPhrases(ctx context.Context, phrases []string) ([][]byte, error) {
	vectors := make([][]byte, len(phrases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.EnrollConcurrency)
	for i, phrase := range phrases {
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, phrase)
			if err != nil {
				return fmt.Errorf("failed to embed phrase %d: %w", i, err)
			}
			encoded, err := embedding.EncodeVector(vec)
			if err != nil {
				return fmt.Errorf("failed to encode phrase %d: %w", i, err)
			}
			vectors[i] = encoded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// UpdateAccount replaces the password of an existing user.
func (s *Service) UpdateAccount(ctx context.Context, userID, newPassword string) error {
	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.repo.UpdateCredential(ctx, userID, digest); err != nil {
		return mapRepoError(err)
	}

	slog.Info("account_updated", "user_id", userID)
	return nil
}

type verdict int

const (
	verdictFail verdict = iota
	verdictAuthorize
	verdictAmbiguous
)

// verifyPlan is a decision computed outside the per-user lock together with the
// state it was based on.
type verifyPlan struct {
	authType      AuthType
	digest        string
	contextPhrase string
	usedContext   bool
	effective     string
	score         float64
	verdict       verdict
}

// Verify runs one verification attempt. A Locked outcome is returned both
// for accounts already in cooldown and for the attempt that trips the lock.
func (s *Service) Verify(ctx context.Context, userID, input string, authType AuthType) (Outcome, error) {
	if _, err := ParseAuthType(string(authType)); err != nil {
		return nil, err
	}

	for range maxReplans {
		p, locked, err := s.plan(ctx, userID, input, authType)
		if err != nil {
			return nil, err
		}
		if locked != nil {
			slog.Info("verify_outcome", "user_id", userID, "auth_type", authType, "outcome", "locked",
				"reason", "cooldown", "until", locked.Until)
			return *locked, nil
		}

		outcome, err := s.commit(ctx, userID, p)
		if errors.Is(err, errStale) {
			slog.Debug("verify_replan", "user_id", userID)
			continue
		}
		if err != nil {
			return nil, err
		}

		slog.Info("verify_outcome", "user_id", userID, "auth_type", authType, "outcome", OutcomeName(outcome),
			"score", p.score, "with_context", p.usedContext)
		return outcome, nil
	}

	return nil, fmt.Errorf("%w: verification for %s did not settle", ErrInternal, userID)
}

// plan does the slow work (hash comparison, embedding) against a snapshot.
func (s *Service) plan(ctx context.Context, userID, input string, authType AuthType) (*verifyPlan, *Locked, error) {
	account, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		return nil, nil, mapRepoError(err)
	}

	now := s.now()
	if s.lockout.IsLocked(account, now) {
		return nil, s.lockedFor(account, now), nil
	}

	p := &verifyPlan{authType: authType}
	switch authType {
	case AuthPassword:
		p.digest = account.CredentialDigest
		if s.hasher.Verify(account.CredentialDigest, input) {
			p.verdict = verdictAuthorize
		}
	case AuthPhrase:
		p.contextPhrase, p.usedContext, err = s.clarify.Peek(ctx, s.repo, userID, now)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read clarification: %w", err)
		}
		p.effective = input
		if p.usedContext {
			p.effective = p.contextPhrase + " " + input
		}

		refs, err := s.repo.ListReferencePhrases(ctx, userID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load reference phrases: %w", err)
		}
		p.score, err = s.scorer.Score(ctx, p.effective, refs)
		if err != nil {
			return nil, nil, err
		}
		p.verdict = s.decide(p.score, p.usedContext)
	}
	return p, nil, nil
}

// decide applies the thresholds. A second borderline score after a
// clarification counts as a failure.
func (s *Service) decide(score float64, usedContext bool) verdict {
	switch {
	case score >= s.config.AcceptThreshold:
		return verdictAuthorize
	case score >= s.config.AmbiguousThreshold && !usedContext:
		return verdictAmbiguous
	default:
		return verdictFail
	}
}

// commit re-reads the user's state under the per-user lock inside one
// transaction and applies the plan. It returns errStale if the plan no
// longer matches the stored state.
func (s *Service) commit(ctx context.Context, userID string, p *verifyPlan) (Outcome, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var outcome Outcome
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		now := s.now()

		account, err := tx.GetAccount(ctx, userID)
		if err != nil {
			return mapRepoError(err)
		}
		if s.lockout.IsLocked(account, now) {
			return errStale
		}

		switch p.authType {
		case AuthPassword:
			if account.CredentialDigest != p.digest {
				return errStale
			}
		case AuthPhrase:
			phrase, ok, err := s.clarify.PeekAndConsume(ctx, tx, userID, now)
			if err != nil {
				return fmt.Errorf("failed to read clarification: %w", err)
			}
			if ok != p.usedContext || phrase != p.contextPhrase {
				return errStale
			}
		}

		switch p.verdict {
		case verdictAuthorize:
			s.lockout.RecordSuccess(account)
			if err := tx.UpdateLockout(ctx, userID, account.FailedAttempts, account.LockedUntil); err != nil {
				return err
			}
			outcome = Authorized{Score: p.score}
			return s.clarify.Clear(ctx, tx, userID)

		case verdictAmbiguous:
			outcome = Ambiguous{Score: p.score}
			return s.clarify.Store(ctx, tx, userID, p.effective, now)

		default:
			tripped := s.lockout.RecordFailure(account, now)
			if err := tx.UpdateLockout(ctx, userID, account.FailedAttempts, account.LockedUntil); err != nil {
				return err
			}
			if tripped {
				slog.Warn("lockout_tripped", "user_id", userID, "until", account.LockExpiry())
				outcome = *s.lockedFor(account, now)
			} else {
				outcome = Denied{AttemptsRemaining: s.lockout.AttemptsRemaining(account)}
			}
			return s.clarify.Clear(ctx, tx, userID)
		}
	})
	if err != nil {
		if errors.Is(err, errStale) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return outcome, nil
}

func (s *Service) lockedFor(account *models.Account, now time.Time) *Locked {
	until := account.LockExpiry()
	return &Locked{Until: until, Remaining: until.Sub(now)}
}

func mapRepoError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
