// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/contactbook/contactbook/internal/auth"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process auth.SessionCache. Entries are stored in their
// encoded form so that reads go through the same decoding as Redis.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get implements auth.SessionCache.
func (m *Memory) Get(_ context.Context, email string) (*auth.Identity, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[email]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(entry.expires) {
		m.mu.Lock()
		if cur, ok := m.entries[email]; ok && !m.now().Before(cur.expires) {
			delete(m.entries, email)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return decodeSnapshot(entry.data)
}

// Put implements auth.SessionCache.
func (m *Memory) Put(_ context.Context, email string, identity auth.Identity, ttl time.Duration) error {
	data, err := encodeSnapshot(identity)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.entries[email] = memoryEntry{data: data, expires: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Invalidate implements auth.SessionCache.
func (m *Memory) Invalidate(_ context.Context, email string) error {
	m.mu.Lock()
	delete(m.entries, email)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ auth.SessionCache = (*Memory)(nil)
