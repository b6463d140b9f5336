// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// ClarificationContext holds the effective input of the last ambiguous
// phrase verification for a user. CreatedAt is unix nanoseconds.
type ClarificationContext struct {
	UserID        string `db:"user_id" json:"user_id"`
	PartialPhrase string `db:"partial_phrase" json:"-"`
	CreatedAt     int64  `db:"created_at" json:"created_at"`
}

// Age returns how long ago the context was stored.
func (c *ClarificationContext) Age(now time.Time) time.Duration {
	return time.Duration(now.UnixNano() - c.CreatedAt)
}
