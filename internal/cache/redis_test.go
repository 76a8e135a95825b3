// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactbook/contactbook/pkg/errutil"
)

func TestNewRedis_NotConfiguredIsDegraded(t *testing.T) {
	r := NewRedis(context.Background(), RedisConfig{}, nil)
	assert.False(t, r.Enabled())
}

func TestNewRedis_InvalidURLIsDegraded(t *testing.T) {
	r := NewRedis(context.Background(), RedisConfig{URL: "http://not-redis"}, nil)
	assert.False(t, r.Enabled())
}

func TestNewRedis_UnreachableIsDegraded(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	r := NewRedis(ctx, RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond}, nil)
	assert.False(t, r.Enabled())
}

func TestRedis_DegradedOperationsAreNoops(t *testing.T) {
	ctx := context.Background()
	r := NewRedisWithClient(nil, "")

	require.NoError(t, r.Put(ctx, "alice@example.com", testIdentity(), time.Minute))

	got, ok, err := r.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)

	require.NoError(t, r.Invalidate(ctx, "alice@example.com"))
	require.NoError(t, r.Close())
}

func TestRedis_ConnectionErrorsAreReported(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	r := NewRedisWithClient(client, "test:")
	t.Cleanup(func() { _ = r.Close() })

	_, _, err := r.Get(ctx, "alice@example.com")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CACHE_GET_FAILED")

	err = r.Put(ctx, "alice@example.com", testIdentity(), time.Minute)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CACHE_PUT_FAILED")

	err = r.Invalidate(ctx, "alice@example.com")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CACHE_INVALIDATE_FAILED")
}

func TestRedis_Key(t *testing.T) {
	assert.Equal(t, "contactbook:identity:alice@example.com", NewRedisWithClient(nil, "").key("alice@example.com"))
	assert.Equal(t, "x:alice@example.com", NewRedisWithClient(nil, "x:").key("alice@example.com"))
}
