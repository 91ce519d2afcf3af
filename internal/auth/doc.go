// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

// Package auth provides account registration, login, session verification
// and account administration for PatrolHub.
//
// # Components
//
//   - PasswordHasher - argon2id (default) or bcrypt credential hashes
//   - IssueToken and Fingerprint - bearer tokens and their stored lookup keys
//   - AccountRepository, SessionRepository - persistence, see package postgres
//   - AttemptLimiter - login failure tracking per client address
//   - Service - the operations exposed to the HTTP layer
//
// Errors returned by Service carry an oops code. KindOf maps them to the
// categories a transport reports to clients. Errors without a known code are
// internal failures and their text must not reach clients.
//
// Tokens are never stored. Sessions are looked up by the SHA-256 fingerprint
// of the token and validity is evaluated by the store at query time.
package auth
