// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned by repositories when a unique constraint is violated.
var ErrConflict = errors.New("already exists")

// Error codes attached to the errors returned by Service. Any other code, or an
// error without a code, is an internal failure.
const (
	CodeValidation        = "AUTH_VALIDATION"
	CodeConflict          = "AUTH_CONFLICT"
	CodeAuthRequired      = "AUTH_REQUIRED"
	CodeInvalidToken      = "AUTH_INVALID_TOKEN"
	CodeInvalidCredential = "AUTH_INVALID_CREDENTIALS"
	CodeInactiveAccount   = "AUTH_ACCOUNT_INACTIVE"
	CodeForbidden         = "AUTH_FORBIDDEN"
	CodeAccountNotFound   = "AUTH_ACCOUNT_NOT_FOUND"
	CodeRateLimited       = "AUTH_RATE_LIMITED"
	CodeNameCooldown      = "AUTH_NAME_COOLDOWN"
)

// Context keys carried by coded errors.
const (
	ContextRemainingAttempts = "remaining_attempts"
	ContextRemainingMinutes  = "remaining_minutes"
)

// Kind classifies an error for presentation to a caller.
type Kind int

// Error kinds, in the order of the taxonomy exposed to clients.
const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthRequired
	KindInvalidToken
	KindInvalidCredential
	KindInactiveAccount
	KindForbidden
	KindNotFound
	KindRateLimited
	KindCooldown
)

// String returns a stable name for the kind, used as a metrics label.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthRequired:
		return "auth_required"
	case KindInvalidToken:
		return "invalid_token"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindInactiveAccount:
		return "inactive_account"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindCooldown:
		return "cooldown"
	default:
		return "internal"
	}
}

// KindOf maps an error returned by this package to its Kind.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return KindInternal
	}
	switch oopsErr.Code() {
	case CodeValidation:
		return KindValidation
	case CodeConflict:
		return KindConflict
	case CodeAuthRequired:
		return KindAuthRequired
	case CodeInvalidToken:
		return KindInvalidToken
	case CodeInvalidCredential:
		return KindInvalidCredential
	case CodeInactiveAccount:
		return KindInactiveAccount
	case CodeForbidden:
		return KindForbidden
	case CodeAccountNotFound:
		return KindNotFound
	case CodeRateLimited:
		return KindRateLimited
	case CodeNameCooldown:
		return KindCooldown
	default:
		return KindInternal
	}
}

// ContextInt returns an integer stored in the error context under key.
func ContextInt(err error, key string) (int, bool) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return 0, false
	}
	v, ok := oopsErr.Context()[key]
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}

func validationError(format string, args ...any) error {
	return oops.Code(CodeValidation).Errorf(format, args...)
}
