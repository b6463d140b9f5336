// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package guard

import (
	"fmt"
	"time"
)

// AuthType selects which factor a verification checks.
type AuthType string

const (
	AuthPassword AuthType = "password"
	AuthPhrase   AuthType = "phrase"
)

// ParseAuthType validates a raw auth type.
func ParseAuthType(s string) (AuthType, error) {
	switch t := AuthType(s); t {
	case AuthPassword, AuthPhrase:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAuthType, s)
	}
}

// Outcome is the result of a verification. It is one of Authorized,
// Ambiguous, Denied or Locked.
type Outcome interface {
	outcome() string
}

// Authorized grants access. Score is 0 for password checks.
type Authorized struct {
	Score float64
}

// Ambiguous asks the caller for a clarifying follow-up phrase.
type Ambiguous struct {
	Score float64
}

// Denied rejects the attempt without locking the account.
type Denied struct {
	AttemptsRemaining int
}

// Locked rejects the attempt because the account is in cooldown.
type Locked struct {
	Until     time.Time
	Remaining time.Duration
}

func (Authorized) outcome() string { return "authorized" }
func (Ambiguous) outcome() string  { return "ambiguous" }
func (Denied) outcome() string     { return "denied" }
func (Locked) outcome() string     { return "locked" }

// OutcomeName returns the status name of an outcome.
func OutcomeName(o Outcome) string {
	return o.outcome()
}
