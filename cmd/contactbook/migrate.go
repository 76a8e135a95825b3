// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/contactbook/contactbook/internal/config"
	"github.com/contactbook/contactbook/internal/store"
)

// SchemaMigrator wraps the methods used from store.Migrator.
type SchemaMigrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// MigratorFactory opens a SchemaMigrator for a database url.
type MigratorFactory func(databaseURL string) (SchemaMigrator, error)

func defaultMigratorFactory(databaseURL string) (SchemaMigrator, error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func newMigrateCmd(opts *rootOptions, factory MigratorFactory) *cobra.Command {
	if factory == nil {
		factory = defaultMigratorFactory
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
		Long: `Manage the PostgreSQL schema. The database url comes from --database-url,
CONTACTBOOK_DATABASE__URL or database.url in the config file.`,
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection url")

	var yes bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("migrate down drops all tables; pass --yes to confirm")
			}
			return withMigrator(cmd, opts, factory, func(m SchemaMigrator) error {
				cmd.Println("Rolling back all migrations...")
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("All migrations rolled back")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&yes, "yes", false, "confirm dropping all tables")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, opts, factory, func(m SchemaMigrator) error {
					cmd.Println("Running migrations...")
					if err := m.Up(); err != nil {
						return err
					}
					cmd.Println("Migrations completed successfully")
					return nil
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "steps N",
			Short: "Apply N migrations, or roll back N when negative",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(strings.TrimSpace(args[0]))
				if err != nil || n == 0 {
					return oops.Code("INVALID_STEPS").With("input", args[0]).Errorf("steps must be a non-zero integer")
				}
				return withMigrator(cmd, opts, factory, func(m SchemaMigrator) error {
					if err := m.Steps(n); err != nil {
						return err
					}
					cmd.Printf("Migrated %d step(s)\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied schema version and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, opts, factory, func(m SchemaMigrator) error {
					st, err := m.Status()
					if err != nil {
						return err
					}
					cmd.Print(formatMigrationStatus(st))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "force N",
			Short: "Mark version N as applied without running it (dirty schema recovery)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := parseForceVersion(args[0])
				if err != nil {
					return err
				}
				return withMigrator(cmd, opts, factory, func(m SchemaMigrator) error {
					if err := m.Force(version); err != nil {
						return err
					}
					cmd.Printf("Forced schema version to %d\n", version)
					return nil
				})
			},
		},
	)

	return cmd
}

// withMigrator resolves the database url, opens a migrator and runs fn.
func withMigrator(cmd *cobra.Command, opts *rootOptions, factory MigratorFactory, fn func(SchemaMigrator) error) error {
	cfg, err := config.Load(cmd.Flags(), opts.sources())
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			With("field", "database.url").
			Errorf("database url is required (--database-url or CONTACTBOOK_DATABASE__URL)")
	}

	m, err := factory(cfg.Database.URL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			cmd.PrintErrf("warning: failed to close migrator: %v\n", closeErr)
		}
	}()

	return fn(m)
}

// parseForceVersion parses the version argument of migrate force.
func parseForceVersion(s string) (int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, oops.Code("INVALID_VERSION").Errorf("version is required")
	}
	version, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer")
	}
	if version < 0 {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be non-negative")
	}
	return version, nil
}

func formatMigrationStatus(st store.Status) string {
	var b strings.Builder
	if st.Version == 0 {
		b.WriteString("Schema version: none\n")
	} else {
		fmt.Fprintf(&b, "Schema version: %d (%s)\n", st.Version, st.Name)
	}
	if st.Dirty {
		b.WriteString("State: DIRTY - fix the schema, then run 'contactbook migrate force N'\n")
	}
	if len(st.Pending) == 0 {
		b.WriteString("Pending: none\n")
		return b.String()
	}
	pending := make([]string, len(st.Pending))
	for i, v := range st.Pending {
		pending[i] = strconv.FormatUint(uint64(v), 10)
	}
	fmt.Fprintf(&b, "Pending: %s\n", strings.Join(pending, ", "))
	return b.String()
}
