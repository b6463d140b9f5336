// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// ReferencePhrase stores one encoded embedding of an enrolled recovery phrase.
// The phrase text itself is never persisted.
type ReferencePhrase struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Vector    []byte    `db:"vector" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
