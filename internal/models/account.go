// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Account is the per-user row holding the credential digest and the
// lockout counters. LockedUntil is unix nanoseconds, 0 means unlocked.
type Account struct { //nolint:govet // fieldalignment: readability over optimization
	UserID           string    `db:"user_id" json:"user_id"`
	CredentialDigest string    `db:"credential_digest" json:"-"`
	LockedUntil      int64     `db:"locked_until" json:"locked_until"`
	FailedAttempts   int       `db:"failed_attempts" json:"failed_attempts"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// IsLocked reports whether the account is locked at now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil > now.UnixNano()
}

// LockExpiry returns LockedUntil as a time, zero if unlocked.
func (a *Account) LockExpiry() time.Time {
	if a.LockedUntil <= 0 {
		return time.Time{}
	}
	return time.Unix(0, a.LockedUntil)
}

// UnixSeconds converts t to fractional seconds since the epoch, the form
// timestamps take in API responses.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
