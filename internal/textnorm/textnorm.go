// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package textnorm cleans free text before it is embedded.
package textnorm

import "strings"

// noise holds the characters that are replaced by a space.
const noise = `[]{}()<>"':;#@-_`

var replacer = buildReplacer()

func buildReplacer() *strings.Replacer {
	pairs := []string{"&", " and "}
	for _, r := range noise {
		pairs = append(pairs, string(r), " ")
	}
	return strings.NewReplacer(pairs...)
}

// Normalize replaces "&" with "and", turns bracket, quote and separator
// characters into spaces, collapses whitespace runs and trims the result.
// Enrollment and verification must both go through Normalize so stored and
// query embeddings are comparable.
func Normalize(text string) string {
	return strings.Join(strings.Fields(replacer.Replace(text)), " ")
}
