// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

//go:build integration

package store_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/contactbook/contactbook/internal/store"
	"github.com/contactbook/contactbook/internal/store/storetest"
)

var _ = Describe("Migrator", Ordered, func() {
	var (
		ctx      context.Context
		pg       *storetest.Postgres
		migrator *store.Migrator
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		pg, err = storetest.StartPostgres(ctx)
		Expect(err).NotTo(HaveOccurred())

		migrator, err = store.NewMigrator(pg.URL)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if migrator != nil {
			Expect(migrator.Close()).To(Succeed())
		}
		if pg != nil {
			pg.Terminate(ctx)
		}
	})

	It("reports the latest version after startup", func() {
		st, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Version).To(Equal(uint(2)))
		Expect(st.Name).To(Equal("000002_contacts"))
		Expect(st.Dirty).To(BeFalse())
		Expect(st.Pending).To(BeEmpty())
	})

	It("rolls back and reapplies one step", func() {
		Expect(migrator.Steps(-1)).To(Succeed())
		v, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint(1)))

		Expect(migrator.Steps(1)).To(Succeed())
		v, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint(2)))
	})

	It("rolls everything back and forward again", func() {
		Expect(migrator.Down()).To(Succeed())
		v, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeZero())

		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Up()).To(Succeed(), "Up at latest is a no-op")
	})

	It("enforces one contact email per owner", func() {
		Expect(pg.Truncate(ctx)).To(Succeed())
		var userID int64
		Expect(pg.Pool.QueryRow(ctx,
			`INSERT INTO users (username, email, password_hash) VALUES ('a', 'a@example.com', 'h') RETURNING id`,
		).Scan(&userID)).To(Succeed())

		insert := `INSERT INTO contacts (user_id, first_name, last_name, email) VALUES ($1, 'F', 'L', 'x@example.com')`
		_, err := pg.Pool.Exec(ctx, insert, userID)
		Expect(err).NotTo(HaveOccurred())
		_, err = pg.Pool.Exec(ctx, insert, userID)
		Expect(err).To(HaveOccurred())
	})

	It("answers pings through Connect", func() {
		pool, err := store.Connect(ctx, pg.URL, store.DefaultConnectOptions)
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()
		Expect(pool.Ping(ctx)).To(Succeed())
	})
})
