// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package guard

import "errors"

var (
	ErrNotFound        = errors.New("user not found")
	ErrConflict        = errors.New("user already exists")
	ErrInvalidAuthType = errors.New("invalid auth type")
	// ErrEmptyPhrase rejects an enrollment phrase with no content left
	// after normalization.
	ErrEmptyPhrase = errors.New("phrase is empty after normalization")
	ErrInternal        = errors.New("internal failure")

	// errStale signals that the state a verification plan was built on
	// changed before it could be committed.
	errStale = errors.New("verification state changed")
)
