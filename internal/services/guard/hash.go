// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package guard

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns passwords into digests and checks them.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(digest, password string) bool
}

// BcryptHasher hashes with bcrypt at the given cost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

func (h BcryptHasher) Verify(digest, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
