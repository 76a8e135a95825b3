// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

// Package auth provides the authentication and session core of Contactbook.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates an unconfirmed User with a validated email and username
//   - NewTokenCodec - creates a TokenCodec bound to a signing secret and algorithm
//
// Users are identified by email. Email is the only subject claim embedded in
// tokens and the only key used by the session cache.
//
// # Tokens
//
// Access tokens (scope "access_token") authorize requests for 15 minutes by
// default. Refresh tokens (scope "refresh_token") are exchanged for a new pair
// and live 7 days. Exactly one refresh token is valid per user: it is stored on
// the user row and rotated with a conditional update. Presenting a superseded
// refresh token clears the stored one, revoking the whole family.
//
// # Services
//
// Service coordinates registration, login, refresh rotation, email
// confirmation and bearer resolution. It is created with NewService, which
// validates its dependencies. The signing secret and cache are injected; the
// package holds no global state.
package auth
