// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package auth

import (
	"strings"
)

// IdentifierKind tells which account attribute a login identifier refers to.
type IdentifierKind int

// Identifier kinds.
const (
	IdentifierEmail IdentifierKind = iota + 1
	IdentifierShortID
)

// Identifier is a login identifier classified once at the boundary.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

// ClassifyIdentifier decides whether raw is a short id or an email. Inputs made
// only of digits and no longer than width are short ids and get zero-padded.
// Everything else is treated as an email and lower-cased.
func ClassifyIdentifier(raw string, width int) Identifier {
	raw = strings.TrimSpace(raw)
	if raw != "" && len(raw) <= width && isDigits(raw) {
		return Identifier{Kind: IdentifierShortID, Value: strings.Repeat("0", width-len(raw)) + raw}
	}
	return Identifier{Kind: IdentifierEmail, Value: strings.ToLower(raw)}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
