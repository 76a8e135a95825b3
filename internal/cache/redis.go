// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/samber/oops"

	"github.com/contactbook/contactbook/internal/auth"
)

// RedisConfig configures the Redis session cache. URL takes precedence over
// the individual address fields.
type RedisConfig struct {
	URL         string
	Addr        string
	Password    string
	DB          int
	Prefix      string
	DialTimeout time.Duration
}

// Redis is an auth.SessionCache backed by Redis.
//
// A Redis with a nil client is in degraded mode: reads miss and writes are
// dropped. NewRedis falls back to degraded mode when Redis is unreachable at
// startup, so authentication keeps working from the directory alone.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to Redis and pings it once.
func NewRedis(ctx context.Context, cfg RedisConfig, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			logger.Warn("invalid redis url, session cache disabled", "error", err)
			return &Redis{prefix: prefix}
		}
		opts = parsed
	} else if cfg.Addr != "" {
		opts = &redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	} else {
		logger.Info("redis not configured, session cache disabled")
		return &Redis{prefix: prefix}
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, session cache disabled", "addr", opts.Addr, "error", err)
		_ = client.Close() //nolint:errcheck // client was never usable
		return &Redis{prefix: prefix}
	}

	logger.Info("connected to redis", "addr", opts.Addr, "db", opts.DB)
	return &Redis{client: client, prefix: prefix}
}

// NewRedisWithClient wraps an existing client. A nil client yields a degraded cache.
func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// Enabled reports whether the cache talks to Redis.
func (r *Redis) Enabled() bool {
	return r.client != nil
}

func (r *Redis) key(email string) string {
	return r.prefix + email
}

// Get implements auth.SessionCache.
func (r *Redis) Get(ctx context.Context, email string) (*auth.Identity, bool, error) {
	if r.client == nil {
		return nil, false, nil
	}

	data, err := r.client.Get(ctx, r.key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, oops.Code("CACHE_GET_FAILED").With("email", email).Wrap(err)
	}
	return decodeSnapshot(data)
}

// Put implements auth.SessionCache.
func (r *Redis) Put(ctx context.Context, email string, identity auth.Identity, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	data, err := encodeSnapshot(identity)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(email), data, ttl).Err(); err != nil {
		return oops.Code("CACHE_PUT_FAILED").With("email", email).Wrap(err)
	}
	return nil
}

// Invalidate implements auth.SessionCache.
func (r *Redis) Invalidate(ctx context.Context, email string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, r.key(email)).Err(); err != nil {
		return oops.Code("CACHE_INVALIDATE_FAILED").With("email", email).Wrap(err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

var _ auth.SessionCache = (*Redis)(nil)
