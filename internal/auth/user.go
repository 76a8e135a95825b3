// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Field constraints for user records.
const (
	MaxUsernameLength = 50
	MaxEmailLength    = 150
)

// Role is a user's authorization level.
type Role string

// Supported roles.
const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	default:
		return false
	}
}

// ParseRole converts a stored role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", oops.Code("AUTH_INVALID_ROLE").With("role", s).Errorf("unknown role %q", s)
	}
	return r, nil
}

// User is a registered account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Avatar       *string
	RefreshToken *string
	Confirmed    bool
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates an unconfirmed regular user with no refresh token.
func NewUser(email, username, passwordHash string) (*User, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeInvalidInput).Errorf("password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &User{
		Username:     strings.TrimSpace(username),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Identity returns the non-secret projection of the user.
func (u *User) Identity() Identity {
	return Identity{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		Confirmed: u.Confirmed,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Identity is the caller identity resolved from a bearer token. It never
// carries the password hash or refresh token, and is the shape stored in the
// session cache.
type Identity struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar"`
	Confirmed bool      `json:"confirmed"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// HasRole reports whether the identity holds any of the given roles.
func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a bare, well-formed address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code(CodeInvalidInput).Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code(CodeInvalidInput).
			With("max", MaxEmailLength).
			Errorf("email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return oops.Code(CodeInvalidInput).With("email", email).Errorf("email is not a valid address")
	}
	return nil
}

// ValidateUsername checks the display name length.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return oops.Code(CodeInvalidInput).Errorf("username cannot be empty")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return oops.Code(CodeInvalidInput).
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	return nil
}

// UserDirectory is the persistent store of user records, keyed by email.
// Implementations normalise emails and return ErrNotFound for unknown users.
type UserDirectory interface {
	// FindByEmail retrieves a user by email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Insert stores a new user and fills in its ID and timestamps.
	// Returns ErrEmailTaken if the email is already registered.
	Insert(ctx context.Context, user *User) error

	// SetRefreshToken overwrites the stored refresh token. A nil token clears it.
	SetRefreshToken(ctx context.Context, email string, token *string) error

	// RotateRefreshToken replaces the stored refresh token with next only if it
	// currently equals current. Reports whether the swap happened.
	RotateRefreshToken(ctx context.Context, email, current, next string) (bool, error)

	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, email, hash string) error

	// MarkConfirmed sets the confirmed flag.
	MarkConfirmed(ctx context.Context, email string) error

	// UpdateAvatar stores a new avatar URL and returns the updated user.
	UpdateAvatar(ctx context.Context, email, url string) (*User, error)
}
