// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

// Package authtest provides in-memory collaborators for exercising auth.Service
// without a database or mail provider.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/contactbook/contactbook/internal/auth"
)

// Directory is an in-memory auth.UserDirectory. Each method holds a single
// lock, so RotateRefreshToken has the same compare-and-swap semantics as the
// conditional UPDATE of the SQL implementation.
type Directory struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*auth.User
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{users: make(map[string]*auth.User)}
}

func (d *Directory) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[auth.NormalizeEmail(email)]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return clone(u), nil
}

func (d *Directory) Insert(_ context.Context, user *auth.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	email := auth.NormalizeEmail(user.Email)
	if _, ok := d.users[email]; ok {
		return auth.ErrEmailTaken
	}
	d.nextID++
	user.ID = d.nextID
	user.Email = email
	now := time.Now().UTC().Truncate(time.Microsecond)
	user.CreatedAt = now
	user.UpdatedAt = now
	d.users[email] = clone(user)
	return nil
}

func (d *Directory) SetRefreshToken(_ context.Context, email string, token *string) error {
	return d.mutate(email, func(u *auth.User) {
		u.RefreshToken = cloneString(token)
	})
}

func (d *Directory) RotateRefreshToken(_ context.Context, email, current, next string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[auth.NormalizeEmail(email)]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != current {
		return false, nil
	}
	u.RefreshToken = &next
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (d *Directory) UpdatePasswordHash(_ context.Context, email, hash string) error {
	return d.mutate(email, func(u *auth.User) {
		u.PasswordHash = hash
	})
}

func (d *Directory) MarkConfirmed(_ context.Context, email string) error {
	return d.mutate(email, func(u *auth.User) {
		u.Confirmed = true
	})
}

func (d *Directory) UpdateAvatar(_ context.Context, email, url string) (*auth.User, error) {
	var updated *auth.User
	err := d.mutate(email, func(u *auth.User) {
		u.Avatar = &url
		updated = clone(u)
	})
	return updated, err
}

// SetRole changes a user's role. Tests use it to create administrators.
func (d *Directory) SetRole(email string, role auth.Role) error {
	return d.mutate(email, func(u *auth.User) {
		u.Role = role
	})
}

// Len returns the number of stored users.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.users)
}

func (d *Directory) mutate(email string, fn func(*auth.User)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[auth.NormalizeEmail(email)]
	if !ok {
		return auth.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func clone(u *auth.User) *auth.User {
	c := *u
	c.Avatar = cloneString(u.Avatar)
	c.RefreshToken = cloneString(u.RefreshToken)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

var _ auth.UserDirectory = (*Directory)(nil)
