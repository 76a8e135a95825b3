// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

// Package contactstest provides an in-memory contacts.Repository.
package contactstest

import (
	"context"
	"slices"
	"sync"

	"github.com/contactbook/contactbook/internal/contacts"
)

// Repository is an in-memory contacts.Repository. If Err is set every call
// fails with it.
type Repository struct {
	mu       sync.Mutex
	nextID   int64
	contacts map[int64]contacts.Contact
	Err      error
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{contacts: make(map[int64]contacts.Contact)}
}

func (r *Repository) List(_ context.Context, userID int64, page contacts.Page) ([]contacts.Contact, error) {
	return r.list(func(c contacts.Contact) bool { return c.UserID == userID }, page)
}

func (r *Repository) ListAll(_ context.Context, page contacts.Page) ([]contacts.Contact, error) {
	return r.list(func(contacts.Contact) bool { return true }, page)
}

func (r *Repository) ListWithBirthday(_ context.Context, userID int64) ([]contacts.Contact, error) {
	return r.list(func(c contacts.Contact) bool {
		return c.UserID == userID && c.Birthday != nil
	}, contacts.Page{Limit: -1})
}

func (r *Repository) list(keep func(contacts.Contact) bool, page contacts.Page) ([]contacts.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	var out []contacts.Contact
	for _, c := range r.contacts {
		if keep(c) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b contacts.Contact) int { return int(a.ID - b.ID) })

	if page.Offset >= len(out) {
		return []contacts.Contact{}, nil
	}
	out = out[page.Offset:]
	if page.Limit >= 0 && page.Limit < len(out) {
		out = out[:page.Limit]
	}
	return out, nil
}

func (r *Repository) Get(_ context.Context, userID, id int64) (*contacts.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	c, ok := r.contacts[id]
	if !ok || c.UserID != userID {
		return nil, contacts.ErrNotFound
	}
	return &c, nil
}

func (r *Repository) Create(_ context.Context, c *contacts.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if r.emailTaken(c) {
		return contacts.ErrDuplicateEmail
	}

	r.nextID++
	c.ID = r.nextID
	r.contacts[c.ID] = *c
	return nil
}

func (r *Repository) Update(_ context.Context, c *contacts.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}

	existing, ok := r.contacts[c.ID]
	if !ok || existing.UserID != c.UserID {
		return contacts.ErrNotFound
	}
	if r.emailTaken(c) {
		return contacts.ErrDuplicateEmail
	}
	r.contacts[c.ID] = *c
	return nil
}

func (r *Repository) Delete(_ context.Context, userID, id int64) (*contacts.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	c, ok := r.contacts[id]
	if !ok || c.UserID != userID {
		return nil, contacts.ErrNotFound
	}
	delete(r.contacts, id)
	return &c, nil
}

func (r *Repository) emailTaken(c *contacts.Contact) bool {
	for _, other := range r.contacts {
		if other.ID != c.ID && other.UserID == c.UserID && other.Email == c.Email {
			return true
		}
	}
	return false
}

var _ contacts.Repository = (*Repository)(nil)
