// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/contactbook/contactbook/internal/avatar"
	"github.com/contactbook/contactbook/internal/observability"
	"github.com/contactbook/contactbook/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, url string, opts store.ConnectOptions) (DBPool, error)

	// MigratorFactory creates the schema migrator used by --auto-migrate.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// AvatarStoreFactory creates the avatar object store.
	// Default: avatar.NewS3Store
	AvatarStoreFactory func(ctx context.Context, cfg avatar.S3Config) (avatar.Store, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// OnReady is called with the bound API address once every server is up.
	OnReady func(apiAddr string)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.PoolFactory == nil {
		out.PoolFactory = func(ctx context.Context, url string, opts store.ConnectOptions) (DBPool, error) {
			pool, err := store.Connect(ctx, url, opts)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			m, err := store.NewMigrator(url)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if out.AvatarStoreFactory == nil {
		out.AvatarStoreFactory = func(ctx context.Context, cfg avatar.S3Config) (avatar.Store, error) {
			s3Store, err := avatar.NewS3Store(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return s3Store, nil
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, observability.WithServerLogger(logger))
		}
	}
	return &out
}

// DBPool wraps the methods used from *pgxpool.Pool.
type DBPool interface {
	store.DB
	store.Pinger
	Close()
}

// Migrator wraps the methods serve uses from store.Migrator.
type Migrator interface {
	Up() error
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}
