// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

//go:build integration

package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/contactbook/contactbook/internal/auth"
	"github.com/contactbook/contactbook/internal/cache"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestRedis_Integration(t *testing.T) {
	ctx := context.Background()
	addr := startRedis(t)

	r := cache.NewRedis(ctx, cache.RedisConfig{Addr: addr}, nil)
	t.Cleanup(func() { _ = r.Close() })
	require.True(t, r.Enabled())

	identity := auth.Identity{
		ID:        7,
		Username:  "alice",
		Email:     "alice@example.com",
		Confirmed: true,
		Role:      auth.RoleUser,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	_, ok, err := r.Get(ctx, identity.Email)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Put(ctx, identity.Email, identity, time.Second))
	got, ok, err := r.Get(ctx, identity.Email)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, identity, *got)

	require.NoError(t, r.Invalidate(ctx, identity.Email))
	_, ok, err = r.Get(ctx, identity.Email)
	require.NoError(t, err)
	assert.False(t, ok)

	t.Run("entries expire", func(t *testing.T) {
		require.NoError(t, r.Put(ctx, identity.Email, identity, time.Second))
		assert.Eventually(t, func() bool {
			_, ok, err := r.Get(ctx, identity.Email)
			return err == nil && !ok
		}, 5*time.Second, 100*time.Millisecond)
	})
}
