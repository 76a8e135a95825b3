// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/contactbook/contactbook/internal/auth"
)

// MockUserDirectory is a mock of auth.UserDirectory.
type MockUserDirectory struct {
	mock.Mock
}

// NewMockUserDirectory creates a MockUserDirectory whose expectations are
// asserted when the test finishes.
func NewMockUserDirectory(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUserDirectory {
	m := &MockUserDirectory{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserDirectory) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserDirectory) Insert(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserDirectory) SetRefreshToken(ctx context.Context, email string, token *string) error {
	return m.Called(ctx, email, token).Error(0)
}

func (m *MockUserDirectory) RotateRefreshToken(ctx context.Context, email, current, next string) (bool, error) {
	args := m.Called(ctx, email, current, next)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserDirectory) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	return m.Called(ctx, email, hash).Error(0)
}

func (m *MockUserDirectory) MarkConfirmed(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockUserDirectory) UpdateAvatar(ctx context.Context, email, url string) (*auth.User, error) {
	args := m.Called(ctx, email, url)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// MockPasswordHasher is a mock of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a MockPasswordHasher.
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

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	return m.Called(hash).Bool(0)
}

// MockMailer is a mock of auth.Mailer.
type MockMailer struct {
	mock.Mock
}

// NewMockMailer creates a MockMailer.
func NewMockMailer(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockMailer {
	m := &MockMailer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockMailer) SendConfirmation(ctx context.Context, msg auth.ConfirmationEmail) error {
	return m.Called(ctx, msg).Error(0)
}

// MockSessionCache is a mock of auth.SessionCache.
type MockSessionCache struct {
	mock.Mock
}

// NewMockSessionCache creates a MockSessionCache.
func NewMockSessionCache(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSessionCache {
	m := &MockSessionCache{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionCache) Get(ctx context.Context, email string) (*auth.Identity, bool, error) {
	args := m.Called(ctx, email)
	identity, _ := args.Get(0).(*auth.Identity)
	return identity, args.Bool(1), args.Error(2)
}

func (m *MockSessionCache) Put(ctx context.Context, email string, identity auth.Identity, ttl time.Duration) error {
	return m.Called(ctx, email, identity, ttl).Error(0)
}

func (m *MockSessionCache) Invalidate(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

var (
	_ auth.UserDirectory  = (*MockUserDirectory)(nil)
	_ auth.PasswordHasher = (*MockPasswordHasher)(nil)
	_ auth.Mailer         = (*MockMailer)(nil)
	_ auth.SessionCache   = (*MockSessionCache)(nil)
)
