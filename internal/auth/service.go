// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// DefaultNameChangeCooldown is the minimum time between display name changes
// for unprivileged accounts.
const DefaultNameChangeCooldown = 6 * time.Hour

// Service provides registration, login, session verification and profile
// updates.
type Service struct {
	accounts AccountRepository
	sessions SessionRepository
	hasher   PasswordHasher
	limiter  AttemptLimiter

	logger             *slog.Logger
	now                func() time.Time
	sessionTTL         time.Duration
	nameChangeCooldown time.Duration
	autoActivate       bool
	shortIDWidth       int

	// dummyHash is verified when a login identifier matches no account so
	// that unknown and known identifiers cost the same.
	dummyHash string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for security events.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionTTL sets the lifetime of issued sessions.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithNameChangeCooldown sets the minimum interval between name changes.
func WithNameChangeCooldown(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d >= 0 {
			s.nameChangeCooldown = d
		}
	}
}

// WithAutoActivate makes new registrations active immediately.
func WithAutoActivate(on bool) ServiceOption {
	return func(s *Service) { s.autoActivate = on }
}

// WithShortIDWidth sets the zero-padded width of short ids.
func WithShortIDWidth(width int) ServiceOption {
	return func(s *Service) {
		if width > 0 {
			s.shortIDWidth = width
		}
	}
}

// NewService creates a Service.
func NewService(accounts AccountRepository, sessions SessionRepository, hasher PasswordHasher, limiter AttemptLimiter, opts ...ServiceOption) (*Service, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if limiter == nil {
		return nil, oops.Errorf("attempt limiter is required")
	}

	s := &Service{
		accounts:           accounts,
		sessions:           sessions,
		hasher:             hasher,
		limiter:            limiter,
		logger:             slog.Default(),
		now:                time.Now,
		sessionTTL:         DefaultSessionTTL,
		nameChangeCooldown: DefaultNameChangeCooldown,
		shortIDWidth:       DefaultShortIDWidth,
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := newDummyHash(hasher)
	if err != nil {
		return nil, err
	}
	s.dummyHash = dummy

	return s, nil
}

// newDummyHash hashes a random secret with the configured hasher so that the
// dummy verification has the same cost as a real one.
func newDummyHash(hasher PasswordHasher) (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", oops.With("operation", "generate dummy secret").Wrap(err)
	}
	hash, err := hasher.Hash(base64.RawURLEncoding.EncodeToString(b))
	if err != nil {
		return "", oops.With("operation", "hash dummy secret").Wrap(err)
	}
	return hash, nil
}

// RegisterInput holds the fields accepted at registration.
type RegisterInput struct {
	Email       string
	Password    string
	FullName    string
	Rank        *string
	BadgeNumber *string
	Department  *string
}

// Register creates an account and an initial session. New accounts are
// inactive unless auto activation is enabled.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Identity, string, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return Identity{}, "", err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return Identity{}, "", err
	}
	fullName, err := NormalizeFullName(in.FullName)
	if err != nil {
		return Identity{}, "", err
	}
	rank, err := normalizeOptional("rank", in.Rank)
	if err != nil {
		return Identity{}, "", err
	}
	badge, err := normalizeOptional("badge number", in.BadgeNumber)
	if err != nil {
		return Identity{}, "", err
	}
	department, err := normalizeOptional("department", in.Department)
	if err != nil {
		return Identity{}, "", err
	}

	exists, err := s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return Identity{}, "", oops.With("operation", "check email").Wrap(err)
	}
	if exists {
		return Identity{}, "", conflictError()
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Identity{}, "", oops.With("operation", "hash password").Wrap(err)
	}

	account := &Account{
		Email:          email,
		FullName:       fullName,
		CredentialHash: hash,
		Role:           RoleUser,
		IsActive:       s.autoActivate,
		Rank:           rank,
		BadgeNumber:    badge,
		Department:     department,
	}
	width := s.shortIDWidth
	err = s.accounts.Create(ctx, account, func(id int64) string { return FormatShortID(id, width) })
	if errors.Is(err, ErrConflict) {
		return Identity{}, "", conflictError()
	}
	if err != nil {
		return Identity{}, "", oops.With("operation", "create account").Wrap(err)
	}

	token, err := s.issueSession(ctx, account.ID)
	if err != nil {
		return Identity{}, "", err
	}

	s.logger.InfoContext(ctx, "account registered",
		"account_id", account.ID,
		"short_id", account.ShortID,
		"active", account.IsActive)

	return account.Identity(), token, nil
}

// Login authenticates identifier and password from clientAddr and issues a
// session. identifier is either an email or a short id.
func (s *Service) Login(ctx context.Context, identifier, password, clientAddr string) (Identity, string, error) {
	if s.limiter.IsBlocked(clientAddr) {
		return Identity{}, "", rateLimitedError()
	}
	if identifier == "" || password == "" {
		return Identity{}, "", validationError("email or user id and password are required")
	}

	id := ClassifyIdentifier(identifier, s.shortIDWidth)
	account, err := s.lookup(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Identity{}, "", oops.With("operation", "look up account").Wrap(err)
	}

	target := s.dummyHash
	if account != nil {
		target = account.CredentialHash
	}
	valid := s.hasher.Verify(password, target) && account != nil

	if s.limiter.RecordAttempt(clientAddr, valid) {
		s.logger.WarnContext(ctx, "client address blocked after repeated login failures",
			"client_addr", clientAddr)
		return Identity{}, "", rateLimitedError()
	}
	if !valid {
		return Identity{}, "", oops.Code(CodeInvalidCredential).
			With(ContextRemainingAttempts, s.limiter.RemainingAttempts(clientAddr)).
			Errorf("invalid email or password")
	}
	if !account.IsActive {
		return Identity{}, "", oops.Code(CodeInactiveAccount).
			Errorf("account is not activated, contact an administrator")
	}

	if s.hasher.NeedsUpgrade(account.CredentialHash) {
		s.upgradeHash(ctx, account, password)
	}

	token, err := s.issueSession(ctx, account.ID)
	if err != nil {
		return Identity{}, "", err
	}
	return account.Identity(), token, nil
}

// Verify resolves a token to the identity of its session.
func (s *Service) Verify(ctx context.Context, token string) (Identity, error) {
	account, err := s.authenticate(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	return account.Identity(), nil
}

// ProfileUpdate holds the optional fields of a profile update. Nil fields are
// left unchanged.
type ProfileUpdate struct {
	FullName        *string
	NewPassword     *string
	CurrentPassword string
	Rank            *string
	BadgeNumber     *string
	Department      *string
}

func (u ProfileUpdate) empty() bool {
	return u.FullName == nil && u.NewPassword == nil &&
		u.Rank == nil && u.BadgeNumber == nil && u.Department == nil
}

// UpdateProfile applies a profile update for the session's account.
func (s *Service) UpdateProfile(ctx context.Context, token string, upd ProfileUpdate) (Identity, error) {
	account, err := s.authenticate(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if upd.empty() {
		return Identity{}, validationError("nothing to update")
	}

	changed := false
	now := s.now()

	if upd.FullName != nil {
		name, err := NormalizeFullName(*upd.FullName)
		if err != nil {
			return Identity{}, err
		}
		if name != account.FullName {
			if err := s.checkNameCooldown(account, now); err != nil {
				return Identity{}, err
			}
			account.FullName = name
			account.LastNameChange = &now
			changed = true
		}
	}

	for _, f := range []struct {
		name string
		in   *string
		dst  **string
	}{
		{"rank", upd.Rank, &account.Rank},
		{"badge number", upd.BadgeNumber, &account.BadgeNumber},
		{"department", upd.Department, &account.Department},
	} {
		if f.in == nil {
			continue
		}
		v, err := normalizeOptional(f.name, f.in)
		if err != nil {
			return Identity{}, err
		}
		if !equalOptional(v, *f.dst) {
			*f.dst = v
			changed = true
		}
	}

	var newHash string
	if upd.NewPassword != nil {
		if upd.CurrentPassword == "" || !s.hasher.Verify(upd.CurrentPassword, account.CredentialHash) {
			return Identity{}, oops.Code(CodeInvalidCredential).Errorf("current password is incorrect")
		}
		if err := ValidatePassword(*upd.NewPassword); err != nil {
			return Identity{}, err
		}
		newHash, err = s.hasher.Hash(*upd.NewPassword)
		if err != nil {
			return Identity{}, oops.With("operation", "hash password").Wrap(err)
		}
	}

	change := ProfileChange{
		FullName:       account.FullName,
		Rank:           account.Rank,
		BadgeNumber:    account.BadgeNumber,
		Department:     account.Department,
		LastNameChange: account.LastNameChange,
		CredentialHash: newHash,
	}
	if changed || newHash != "" {
		if err := s.accounts.UpdateProfile(ctx, account.ID, change); err != nil {
			return Identity{}, oops.With("operation", "update profile").
				With("account_id", account.ID).
				Wrap(err)
		}
	}

	stored, err := s.accounts.GetByID(ctx, account.ID)
	if err != nil {
		return Identity{}, oops.With("operation", "reload account").
			With("account_id", account.ID).
			Wrap(err)
	}
	return stored.Identity(), nil
}

// Logout revokes the session identified by token. Revoking an unknown or
// expired token succeeds.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return authRequiredError()
	}
	if err := s.sessions.Revoke(ctx, Fingerprint(token)); err != nil {
		return oops.With("operation", "revoke session").Wrap(err)
	}
	return nil
}

// authenticate resolves token to its account.
func (s *Service) authenticate(ctx context.Context, token string) (*Account, error) {
	if token == "" {
		return nil, authRequiredError()
	}
	account, err := s.sessions.FindValid(ctx, Fingerprint(token))
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code(CodeInvalidToken).Errorf("invalid or expired session")
	}
	if err != nil {
		return nil, oops.With("operation", "find session").Wrap(err)
	}
	return account, nil
}

func (s *Service) lookup(ctx context.Context, id Identifier) (*Account, error) {
	if id.Kind == IdentifierShortID {
		return s.accounts.GetByShortID(ctx, id.Value)
	}
	return s.accounts.GetByEmail(ctx, id.Value)
}

func (s *Service) issueSession(ctx context.Context, accountID int64) (string, error) {
	token, err := IssueToken()
	if err != nil {
		return "", oops.With("operation", "issue token").Wrap(err)
	}
	if _, err := s.sessions.Create(ctx, accountID, Fingerprint(token), s.sessionTTL); err != nil {
		return "", oops.With("operation", "create session").
			With("account_id", accountID).
			Wrap(err)
	}
	return token, nil
}

// upgradeHash rehashes the password with the current parameters. Failures
// are logged and do not fail the login.
func (s *Service) upgradeHash(ctx context.Context, account *Account, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.accounts.UpdatePassword(ctx, account.ID, hash)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "credential rehash failed",
			"account_id", account.ID,
			"error", err)
		return
	}
	account.CredentialHash = hash
}

func (s *Service) checkNameCooldown(account *Account, now time.Time) error {
	if account.Role.IsPrivileged() || account.LastNameChange == nil {
		return nil
	}
	remaining := account.LastNameChange.Add(s.nameChangeCooldown).Sub(now)
	if remaining <= 0 {
		return nil
	}
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	return oops.Code(CodeNameCooldown).
		With(ContextRemainingMinutes, minutes).
		Errorf("full name can be changed again in %d minutes", minutes)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func conflictError() error {
	return oops.Code(CodeConflict).Errorf("an account with this email already exists")
}

func authRequiredError() error {
	return oops.Code(CodeAuthRequired).Errorf("authentication required")
}

func rateLimitedError() error {
	return oops.Code(CodeRateLimited).
		With(ContextRemainingAttempts, 0).
		Errorf("too many failed login attempts, try again later")
}
