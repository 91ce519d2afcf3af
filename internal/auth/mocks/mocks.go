// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/patrolhub/patrolhub/internal/auth"
)

// MockAccountRepository is a mock auth.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

// NewMockAccountRepository creates a mock that asserts its expectations on cleanup.
func NewMockAccountRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountRepository) Create(ctx context.Context, account *auth.Account, shortID auth.ShortIDFunc) error {
	args := m.Called(ctx, account, shortID)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*auth.Account, error) {
	args := m.Called(ctx, id)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	args := m.Called(ctx, email)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccountRepository) GetByShortID(ctx context.Context, shortID string) (*auth.Account, error) {
	args := m.Called(ctx, shortID)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) UpdateProfile(ctx context.Context, id int64, change auth.ProfileChange) error {
	args := m.Called(ctx, id, change)
	return args.Error(0)
}

func (m *MockAccountRepository) SetFullName(ctx context.Context, id int64, fullName string) error {
	args := m.Called(ctx, id, fullName)
	return args.Error(0)
}

func (m *MockAccountRepository) SetRole(ctx context.Context, id int64, role auth.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id int64, credentialHash string) error {
	args := m.Called(ctx, id, credentialHash)
	return args.Error(0)
}

func (m *MockAccountRepository) SetActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockAccountRepository) List(ctx context.Context, filter auth.StatusFilter) ([]*auth.Account, error) {
	args := m.Called(ctx, filter)
	var out []*auth.Account
	if v := args.Get(0); v != nil {
		out = v.([]*auth.Account)
	}
	return out, args.Error(1)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSessionRepository is a mock auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a mock that asserts its expectations on cleanup.
func NewMockSessionRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionRepository) Create(ctx context.Context, accountID int64, fingerprint string, ttl time.Duration) (*auth.Session, error) {
	args := m.Called(ctx, accountID, fingerprint, ttl)
	var s *auth.Session
	if v := args.Get(0); v != nil {
		s = v.(*auth.Session)
	}
	return s, args.Error(1)
}

func (m *MockSessionRepository) FindValid(ctx context.Context, fingerprint string) (*auth.Account, error) {
	args := m.Called(ctx, fingerprint)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockSessionRepository) Revoke(ctx context.Context, fingerprint string) error {
	args := m.Called(ctx, fingerprint)
	return args.Error(0)
}

func (m *MockSessionRepository) RevokeAll(ctx context.Context, accountID int64) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockSessionRepository) CountByAccount(ctx context.Context, accountID int64) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockPasswordHasher is a mock auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) bool {
	args := m.Called(password, hash)
	return args.Bool(0)
}

func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	args := m.Called(hash)
	return args.Bool(0)
}

// MockAttemptLimiter is a mock auth.AttemptLimiter.
type MockAttemptLimiter struct {
	mock.Mock
}

// NewMockAttemptLimiter creates a mock that asserts its expectations on cleanup.
func NewMockAttemptLimiter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAttemptLimiter {
	m := &MockAttemptLimiter{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAttemptLimiter) IsBlocked(addr string) bool {
	return m.Called(addr).Bool(0)
}

func (m *MockAttemptLimiter) RecordAttempt(addr string, success bool) bool {
	return m.Called(addr, success).Bool(0)
}

func (m *MockAttemptLimiter) RemainingAttempts(addr string) int {
	return m.Called(addr).Int(0)
}

func accountArg(args mock.Arguments, i int) *auth.Account {
	if v := args.Get(i); v != nil {
		return v.(*auth.Account)
	}
	return nil
}

var (
	_ auth.AccountRepository = (*MockAccountRepository)(nil)
	_ auth.SessionRepository = (*MockSessionRepository)(nil)
	_ auth.PasswordHasher    = (*MockPasswordHasher)(nil)
	_ auth.AttemptLimiter    = (*MockAttemptLimiter)(nil)
)
