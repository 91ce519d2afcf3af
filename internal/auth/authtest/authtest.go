// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

// Package authtest provides in-memory auth repositories and a controllable
// clock for tests.
package authtest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/patrolhub/patrolhub/internal/auth"
)

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock set to start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Store holds accounts and sessions in memory. Accounts() and Sessions()
// share state so session lookups see account changes and account deletion
// cascades to sessions.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	nextID   int64
	accounts map[int64]*auth.Account
	sessions map[string]*auth.Session
}

// NewStore creates an empty Store evaluating session expiry with now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:      now,
		accounts: make(map[int64]*auth.Account),
		sessions: make(map[string]*auth.Session),
	}
}

// Accounts returns the store's AccountRepository.
func (s *Store) Accounts() auth.AccountRepository { return (*accountRepo)(s) }

// Sessions returns the store's SessionRepository.
func (s *Store) Sessions() auth.SessionRepository { return (*sessionRepo)(s) }

// Account returns a copy of the stored account, or nil.
func (s *Store) Account(id int64) *auth.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

// Put stores an account as is, assigning an id when it has none.
func (s *Store) Put(a *auth.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		s.nextID++
		a.ID = s.nextID
	} else if a.ID > s.nextID {
		s.nextID = a.ID
	}
	cp := *a
	s.accounts[a.ID] = &cp
}

type accountRepo Store

func (r *accountRepo) Create(_ context.Context, account *auth.Account, shortID auth.ShortIDFunc) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == account.Email {
			return auth.ErrConflict
		}
	}
	s.nextID++
	account.ID = s.nextID
	account.ShortID = shortID(account.ID)
	account.CreatedAt = s.now()
	account.UpdatedAt = account.CreatedAt
	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

func (r *accountRepo) GetByID(_ context.Context, id int64) (*auth.Account, error) {
	return (*Store)(r).find(func(a *auth.Account) bool { return a.ID == id })
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	return (*Store)(r).find(func(a *auth.Account) bool { return a.Email == email })
}

func (r *accountRepo) GetByShortID(_ context.Context, shortID string) (*auth.Account, error) {
	return (*Store)(r).find(func(a *auth.Account) bool { return a.ShortID == shortID })
}

func (r *accountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if errors.Is(err, auth.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *accountRepo) UpdateProfile(_ context.Context, id int64, change auth.ProfileChange) error {
	return (*Store)(r).mutate(id, func(a *auth.Account) {
		a.FullName = change.FullName
		a.Rank = change.Rank
		a.BadgeNumber = change.BadgeNumber
		a.Department = change.Department
		a.LastNameChange = change.LastNameChange
		if change.CredentialHash != "" {
			a.CredentialHash = change.CredentialHash
		}
	})
}

func (r *accountRepo) SetFullName(_ context.Context, id int64, fullName string) error {
	return (*Store)(r).mutate(id, func(a *auth.Account) { a.FullName = fullName })
}

func (r *accountRepo) SetRole(_ context.Context, id int64, role auth.Role) error {
	return (*Store)(r).mutate(id, func(a *auth.Account) { a.Role = role })
}

func (r *accountRepo) UpdatePassword(_ context.Context, id int64, credentialHash string) error {
	return (*Store)(r).mutate(id, func(a *auth.Account) { a.CredentialHash = credentialHash })
}

func (r *accountRepo) SetActive(_ context.Context, id int64, active bool) error {
	return (*Store)(r).mutate(id, func(a *auth.Account) { a.IsActive = active })
}

func (r *accountRepo) List(_ context.Context, filter auth.StatusFilter) ([]*auth.Account, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*auth.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if (filter == auth.StatusPending && a.IsActive) || (filter == auth.StatusActive && !a.IsActive) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *accountRepo) Delete(_ context.Context, id int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return auth.ErrNotFound
	}
	for fp, sess := range s.sessions {
		if sess.AccountID == id {
			delete(s.sessions, fp)
		}
	}
	delete(s.accounts, id)
	return nil
}

type sessionRepo Store

func (r *sessionRepo) Create(_ context.Context, accountID int64, fingerprint string, ttl time.Duration) (*auth.Session, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return nil, auth.ErrNotFound
	}
	if _, ok := s.sessions[fingerprint]; ok {
		return nil, auth.ErrConflict
	}
	now := s.now()
	sess := &auth.Session{
		ID:               ulid.Make(),
		AccountID:        accountID,
		TokenFingerprint: fingerprint,
		ExpiresAt:        now.Add(ttl),
		CreatedAt:        now,
	}
	s.sessions[fingerprint] = sess
	cp := *sess
	return &cp, nil
}

func (r *sessionRepo) FindValid(_ context.Context, fingerprint string) (*auth.Account, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[fingerprint]
	if !ok || !sess.IsValidAt(s.now()) {
		return nil, auth.ErrNotFound
	}
	a, ok := s.accounts[sess.AccountID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *sessionRepo) Revoke(_ context.Context, fingerprint string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, fingerprint)
	return nil
}

func (r *sessionRepo) RevokeAll(_ context.Context, accountID int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for fp, sess := range s.sessions {
		if sess.AccountID == accountID {
			delete(s.sessions, fp)
		}
	}
	return nil
}

func (r *sessionRepo) CountByAccount(_ context.Context, accountID int64) (int, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.sessions {
		if sess.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (r *sessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var n int64
	for fp, sess := range s.sessions {
		if !sess.IsValidAt(now) {
			delete(s.sessions, fp)
			n++
		}
	}
	return n, nil
}

func (s *Store) find(match func(*auth.Account) bool) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *Store) mutate(id int64, fn func(*auth.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return auth.ErrNotFound
	}
	fn(a)
	a.UpdatedAt = s.now()
	return nil
}

// FastHasher returns an argon2id hasher with minimal cost for tests.
func FastHasher() *auth.Argon2idHasher {
	return auth.NewArgon2idHasherWithParams(auth.Argon2Params{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
}
