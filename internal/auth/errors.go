// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned by a UserDirectory when inserting a duplicate email.
var ErrEmailTaken = errors.New("email already registered")

// Error codes surfaced by Service. The HTTP layer maps these to statuses.
const (
	CodeConflict          = "AUTH_CONFLICT"
	CodeInvalidEmail      = "AUTH_INVALID_EMAIL"
	CodeEmailNotConfirmed = "AUTH_EMAIL_NOT_CONFIRMED"
	CodeInvalidPassword   = "AUTH_INVALID_PASSWORD"
	CodeUnauthorized      = "AUTH_UNAUTHORIZED"
	CodeVerification      = "AUTH_VERIFICATION_FAILED"
	CodeInvalidEmailToken = "AUTH_INVALID_EMAIL_TOKEN"
	CodeInvalidInput      = "AUTH_INVALID_INPUT"
)
