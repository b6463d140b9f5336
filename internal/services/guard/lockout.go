// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package guard

import (
	"time"

	"codeberg.org/oliverandrich/guard/internal/models"
)

const (
	DefaultMaxAttempts = 3
	DefaultCooldown    = 10 * time.Minute
)

// LockoutPolicy counts consecutive failures and locks an account once
// MaxAttempts is reached. FailedAttempts stays in [0, MaxAttempts).
type LockoutPolicy struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// IsLocked reports whether the account is in cooldown at now.
func (p LockoutPolicy) IsLocked(a *models.Account, now time.Time) bool {
	return a.IsLocked(now)
}

// RecordFailure counts a failed attempt and reports whether it tripped
// the lock.
func (p LockoutPolicy) RecordFailure(a *models.Account, now time.Time) bool {
	a.FailedAttempts++
	if a.FailedAttempts >= p.MaxAttempts {
		a.FailedAttempts = 0
		a.LockedUntil = now.Add(p.Cooldown).UnixNano()
		return true
	}
	a.LockedUntil = 0
	return false
}

// RecordSuccess resets the failure counter. The lock expiry is left as is.
func (p LockoutPolicy) RecordSuccess(a *models.Account) {
	a.FailedAttempts = 0
}

// AttemptsRemaining returns how many failures are left before lockout.
func (p LockoutPolicy) AttemptsRemaining(a *models.Account) int {
	return p.MaxAttempts - a.FailedAttempts
}
