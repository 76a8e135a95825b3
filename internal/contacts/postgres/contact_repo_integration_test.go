// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/contactbook/contactbook/internal/contacts"
	"github.com/contactbook/contactbook/internal/contacts/postgres"
)

var _ = Describe("ContactRepository", func() {
	var (
		ctx        context.Context
		repo       *postgres.ContactRepository
		alice, bob int64
	)

	newUser := func(email string) int64 {
		var id int64
		Expect(testDB.Pool.QueryRow(ctx,
			`INSERT INTO users (username, email, password_hash) VALUES ('u', $1, 'h') RETURNING id`, email,
		).Scan(&id)).To(Succeed())
		return id
	}

	newContact := func(owner int64, email string, birthday *contacts.Date) *contacts.Contact {
		now := time.Now().UTC().Truncate(time.Microsecond)
		c := &contacts.Contact{
			UserID: owner, FirstName: "Ada", LastName: "Lovelace", Email: email,
			Birthday: birthday, CreatedAt: now, UpdatedAt: now,
		}
		Expect(repo.Create(ctx, c)).To(Succeed())
		return c
	}

	BeforeEach(func() {
		ctx = context.Background()
		Expect(testDB.Truncate(ctx)).To(Succeed())
		repo = postgres.NewContactRepository(testDB.Pool)
		alice = newUser("alice@example.com")
		bob = newUser("bob@example.com")
	})

	It("scopes reads and writes to the owner", func() {
		c := newContact(alice, "ada@example.com", nil)

		_, err := repo.Get(ctx, bob, c.ID)
		Expect(err).To(MatchError(contacts.ErrNotFound))

		c.UserID = bob
		Expect(repo.Update(ctx, c)).To(MatchError(contacts.ErrNotFound))

		_, err = repo.Delete(ctx, bob, c.ID)
		Expect(err).To(MatchError(contacts.ErrNotFound))

		got, err := repo.Get(ctx, alice, c.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Email).To(Equal("ada@example.com"))
	})

	It("keeps emails unique per owner only", func() {
		newContact(alice, "ada@example.com", nil)
		dup := &contacts.Contact{UserID: alice, FirstName: "A", LastName: "B", Email: "ada@example.com"}
		Expect(repo.Create(ctx, dup)).To(MatchError(contacts.ErrDuplicateEmail))

		newContact(bob, "ada@example.com", nil)
	})

	It("pages and lists across owners", func() {
		for _, e := range []string{"a@example.com", "b@example.com", "c@example.com"} {
			newContact(alice, e, nil)
		}
		newContact(bob, "d@example.com", nil)

		page, err := repo.List(ctx, alice, contacts.Page{Limit: 2, Offset: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(page).To(HaveLen(2))
		Expect(page[0].Email).To(Equal("b@example.com"))

		all, err := repo.ListAll(ctx, contacts.Page{Limit: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(4))
	})

	It("round-trips birthdays as dates", func() {
		d := contacts.NewDate(1815, 12, 10)
		c := newContact(alice, "ada@example.com", &d)
		newContact(alice, "nobday@example.com", nil)

		withBirthday, err := repo.ListWithBirthday(ctx, alice)
		Expect(err).NotTo(HaveOccurred())
		Expect(withBirthday).To(HaveLen(1))
		Expect(withBirthday[0].ID).To(Equal(c.ID))
		Expect(withBirthday[0].Birthday.String()).To(Equal("1815-12-10"))
	})

	It("returns the deleted row", func() {
		c := newContact(alice, "ada@example.com", nil)
		deleted, err := repo.Delete(ctx, alice, c.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(deleted.ID).To(Equal(c.ID))

		_, err = repo.Get(ctx, alice, c.ID)
		Expect(err).To(MatchError(contacts.ErrNotFound))
	})
})
