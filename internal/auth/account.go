// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package auth

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Field constraints applied at registration and profile update.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MaxEmailLength    = 254
	MaxFullNameLength = 200
	MaxProfileField   = 100

	// DefaultShortIDWidth is the zero-padded width of an account short id.
	DefaultShortIDWidth = 5
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Role is an account's authorization level.
type Role string

// Known roles.
const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.TrimSpace(strings.ToLower(s))); r {
	case RoleUser, RoleModerator, RoleAdmin, RoleManager:
		return r, nil
	default:
		return "", validationError("invalid role %q: allowed user, moderator, admin, manager", s)
	}
}

// IsPrivileged reports whether the role is exempt from the name-change cooldown.
func (r Role) IsPrivileged() bool {
	return r == RoleModerator || r == RoleAdmin || r == RoleManager
}

// CanManageAccounts reports whether the role may administer other accounts.
func (r Role) CanManageAccounts() bool {
	return r == RoleAdmin || r == RoleManager
}

// Account is a stored identity record including its credential hash.
type Account struct {
	ID             int64
	ShortID        string
	Email          string
	FullName       string
	CredentialHash string
	Role           Role
	IsActive       bool
	Rank           *string
	BadgeNumber    *string
	Department     *string
	LastNameChange *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Identity is the public view of an Account. It never carries the credential hash.
type Identity struct {
	ID             int64      `json:"id"`
	ShortID        string     `json:"user_id"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name"`
	Role           Role       `json:"role"`
	IsActive       bool       `json:"is_active"`
	Rank           *string    `json:"rank,omitempty"`
	BadgeNumber    *string    `json:"badge_number,omitempty"`
	Department     *string    `json:"department,omitempty"`
	LastNameChange *time.Time `json:"last_name_change,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Identity returns the public view of the account.
func (a *Account) Identity() Identity {
	return Identity{
		ID:             a.ID,
		ShortID:        a.ShortID,
		Email:          a.Email,
		FullName:       a.FullName,
		Role:           a.Role,
		IsActive:       a.IsActive,
		Rank:           a.Rank,
		BadgeNumber:    a.BadgeNumber,
		Department:     a.Department,
		LastNameChange: a.LastNameChange,
		CreatedAt:      a.CreatedAt,
	}
}

// FormatShortID zero-pads a sequence id to width digits. Ids wider than width are
// returned unpadded.
func FormatShortID(id int64, width int) string {
	return fmt.Sprintf("%0*d", width, id)
}

// NormalizeEmail trims and lower-cases an email and checks its format.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", validationError("email is required")
	}
	if len(email) > MaxEmailLength {
		return "", validationError("email is too long")
	}
	if !emailRegex.MatchString(email) {
		return "", validationError("invalid email format")
	}
	return email, nil
}

// ValidatePassword enforces the password length bounds.
func ValidatePassword(password string) error {
	if password == "" {
		return validationError("password is required")
	}
	if len(password) < MinPasswordLength {
		return oops.Code(CodeValidation).
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return oops.Code(CodeValidation).
			With("max", MaxPasswordLength).
			Errorf("password is too long")
	}
	return nil
}

// NormalizeFullName trims a display name and checks it is present and bounded.
func NormalizeFullName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationError("full name is required")
	}
	if len(name) > MaxFullNameLength {
		return "", validationError("full name is too long")
	}
	return name, nil
}

// normalizeOptional trims an optional profile field. Blank values become nil.
func normalizeOptional(field string, value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil, nil
	}
	if len(v) > MaxProfileField {
		return nil, validationError("%s is too long", field)
	}
	return &v, nil
}

// StatusFilter selects accounts by activation state.
type StatusFilter string

// Status filters accepted by AccountRepository.List.
const (
	StatusAll     StatusFilter = "all"
	StatusPending StatusFilter = "pending"
	StatusActive  StatusFilter = "active"
)

// ParseStatusFilter maps a query value to a StatusFilter, defaulting to StatusAll.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return StatusAll, nil
	case StatusAll, StatusPending, StatusActive:
		return f, nil
	default:
		return "", validationError("invalid status filter %q", s)
	}
}

// ShortIDFunc derives a short id from a freshly assigned sequence id.
type ShortIDFunc func(id int64) string

// ProfileChange holds the columns a profile update writes.
type ProfileChange struct {
	FullName       string
	Rank           *string
	BadgeNumber    *string
	Department     *string
	LastNameChange *time.Time
	// CredentialHash replaces the stored hash when non-empty.
	CredentialHash string
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create inserts the account, assigns ID, ShortID and CreatedAt, and commits
	// both the row and its short id atomically. Returns ErrConflict when the
	// email is taken.
	Create(ctx context.Context, account *Account, shortID ShortIDFunc) error

	// GetByID retrieves an account by its sequence id.
	GetByID(ctx context.Context, id int64) (*Account, error)

	// GetByEmail retrieves an account by normalized email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByShortID retrieves an account by its zero-padded short id.
	GetByShortID(ctx context.Context, shortID string) (*Account, error)

	// ExistsByEmail reports whether an account uses the email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// UpdateProfile writes the self-service profile columns in one statement.
	// Role and active flag are left untouched.
	UpdateProfile(ctx context.Context, id int64, change ProfileChange) error

	// SetFullName replaces the display name without touching the cooldown.
	SetFullName(ctx context.Context, id int64, fullName string) error

	// SetRole replaces the account role.
	SetRole(ctx context.Context, id int64, role Role) error

	// UpdatePassword replaces the credential hash.
	UpdatePassword(ctx context.Context, id int64, credentialHash string) error

	// SetActive toggles the active flag.
	SetActive(ctx context.Context, id int64, active bool) error

	// List returns accounts matching the filter.
	List(ctx context.Context, filter StatusFilter) ([]*Account, error)

	// Delete removes the account and all of its sessions in one transaction.
	Delete(ctx context.Context, id int64) error
}
