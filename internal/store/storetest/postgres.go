// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

//go:build integration

// Package storetest starts a migrated PostgreSQL container for integration tests.
package storetest

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/contactbook/contactbook/internal/store"
)

// Postgres is a running container with the schema applied.
type Postgres struct {
	URL       string
	Pool      *pgxpool.Pool
	container *postgres.PostgresContainer
}

// StartPostgres runs postgres:16-alpine, applies all migrations and opens a pool.
func StartPostgres(ctx context.Context) (*Postgres, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("contactbook"),
		postgres.WithUsername("contactbook"),
		postgres.WithPassword("contactbook"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		return nil, oops.With("operation", "start postgres container").Wrap(err)
	}
	pg := &Postgres{container: container}

	pg.URL, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		pg.Terminate(ctx)
		return nil, oops.With("operation", "connection string").Wrap(err)
	}

	migrator, err := store.NewMigrator(pg.URL)
	if err != nil {
		pg.Terminate(ctx)
		return nil, err
	}
	defer migrator.Close() //nolint:errcheck // test helper
	if err := migrator.Up(); err != nil {
		pg.Terminate(ctx)
		return nil, err
	}

	pg.Pool, err = store.Connect(ctx, pg.URL, store.DefaultConnectOptions)
	if err != nil {
		pg.Terminate(ctx)
		return nil, err
	}
	return pg, nil
}

// Truncate empties every application table.
func (p *Postgres) Truncate(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, `TRUNCATE contacts, users RESTART IDENTITY CASCADE`)
	return err
}

// Terminate closes the pool and removes the container.
func (p *Postgres) Terminate(ctx context.Context) {
	if p.Pool != nil {
		p.Pool.Close()
	}
	_ = p.container.Terminate(ctx) //nolint:errcheck // test cleanup
}
