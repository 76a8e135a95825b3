// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

// Package postgres implements auth.UserDirectory on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/contactbook/contactbook/internal/auth"
	"github.com/contactbook/contactbook/internal/store"
)

const userColumns = `id, username, email, password_hash, avatar, refresh_token,
		       role, confirmed, created_at, updated_at`

// UserRepository implements auth.UserDirectory using PostgreSQL.
type UserRepository struct {
	db store.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db store.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail loads the user with the given email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	email = auth.NormalizeEmail(email)
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by email").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// Insert stores a new user and sets its ID. A duplicate email yields
// auth.ErrEmailTaken.
func (r *UserRepository) Insert(ctx context.Context, user *auth.User) error {
	user.Email = auth.NormalizeEmail(user.Email)
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, avatar, refresh_token,
		                   role, confirmed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Avatar,
		user.RefreshToken,
		string(user.Role),
		user.Confirmed,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("USER_EMAIL_TAKEN").With("email", user.Email).Wrap(auth.ErrEmailTaken)
		}
		return oops.Code("USER_INSERT_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// SetRefreshToken stores token, or clears it when token is nil.
func (r *UserRepository) SetRefreshToken(ctx context.Context, email string, token *string) error {
	return r.update(ctx, "set refresh token", email, `
		UPDATE users SET refresh_token = $2, updated_at = NOW()
		WHERE email = $1
	`, token)
}

// RotateRefreshToken replaces current with next in one conditional UPDATE.
// It reports false when current is not the stored token.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, email, current, next string) (bool, error) {
	email = auth.NormalizeEmail(email)
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET refresh_token = $3, updated_at = NOW()
		WHERE email = $1 AND refresh_token = $2
	`, email, current, next)
	if err != nil {
		return false, oops.Code("USER_UPDATE_FAILED").
			With("operation", "rotate refresh token").
			With("email", email).
			Wrap(err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdatePasswordHash replaces the stored password hash.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	return r.update(ctx, "update password hash", email, `
		UPDATE users SET password_hash = $2, updated_at = NOW()
		WHERE email = $1
	`, hash)
}

// MarkConfirmed sets the confirmed flag.
func (r *UserRepository) MarkConfirmed(ctx context.Context, email string) error {
	return r.update(ctx, "mark confirmed", email, `
		UPDATE users SET confirmed = TRUE, updated_at = NOW()
		WHERE email = $1
	`)
}

// UpdateAvatar stores the avatar URL and returns the updated user.
func (r *UserRepository) UpdateAvatar(ctx context.Context, email, url string) (*auth.User, error) {
	email = auth.NormalizeEmail(email)
	row := r.db.QueryRow(ctx, `
		UPDATE users SET avatar = $2, updated_at = NOW()
		WHERE email = $1
		RETURNING `+userColumns,
		email, url)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_UPDATE_FAILED").
			With("operation", "update avatar").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

func (r *UserRepository) update(ctx context.Context, op, email, sql string, args ...any) error {
	email = auth.NormalizeEmail(email)
	tag, err := r.db.Exec(ctx, sql, append([]any{email}, args...)...)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", op).
			With("email", email).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		u    auth.User
		role string
	)
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Avatar,
		&u.RefreshToken,
		&role,
		&u.Confirmed,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role, err = auth.ParseRole(role)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

var _ auth.UserDirectory = (*UserRepository)(nil)
