// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package auth

import (
	"context"
	"time"
)

// SessionTTL is how long a resolved identity stays in the session cache.
const SessionTTL = 300 * time.Second

// SnapshotVersion is the version of the cached identity encoding.
// Entries written with another version are treated as misses.
const SnapshotVersion = 1

// SessionCache maps a user email to a cached Identity. It never reads the
// directory; read-through is the caller's job. Errors are advisory: callers
// treat them as misses.
type SessionCache interface {
	// Get returns the cached identity and whether it was present.
	Get(ctx context.Context, email string) (*Identity, bool, error)

	// Put stores the identity for ttl, overwriting any existing entry.
	Put(ctx context.Context, email string, identity Identity, ttl time.Duration) error

	// Invalidate removes the entry for email.
	Invalidate(ctx context.Context, email string) error
}

// noopCache is used when no cache is configured.
type noopCache struct{}

func (noopCache) Get(context.Context, string) (*Identity, bool, error) { return nil, false, nil }

func (noopCache) Put(context.Context, string, Identity, time.Duration) error { return nil }

func (noopCache) Invalidate(context.Context, string) error { return nil }
