// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/contactbook/contactbook/internal/auth"
	"github.com/contactbook/contactbook/internal/auth/postgres"
)

var _ = Describe("UserRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.UserRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		Expect(testDB.Truncate(ctx)).To(Succeed())
		repo = postgres.NewUserRepository(testDB.Pool)
	})

	insert := func(email string) *auth.User {
		u, err := auth.NewUser(email, "alice", "hash")
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.Insert(ctx, u)).To(Succeed())
		return u
	}

	It("round-trips a new user", func() {
		u := insert("alice@example.com")
		Expect(u.ID).To(BeNumerically(">", 0))

		got, err := repo.FindByEmail(ctx, "ALICE@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(u.ID))
		Expect(got.Role).To(Equal(auth.RoleUser))
		Expect(got.Confirmed).To(BeFalse())
		Expect(got.RefreshToken).To(BeNil())
	})

	It("rejects a duplicate email", func() {
		insert("alice@example.com")
		dup, err := auth.NewUser("alice@example.com", "other", "hash")
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.Insert(ctx, dup)).To(MatchError(auth.ErrEmailTaken))
	})

	It("rotates only from the stored token", func() {
		insert("alice@example.com")
		first := "first"
		Expect(repo.SetRefreshToken(ctx, "alice@example.com", &first)).To(Succeed())

		ok, err := repo.RotateRefreshToken(ctx, "alice@example.com", "first", "second")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		ok, err = repo.RotateRefreshToken(ctx, "alice@example.com", "first", "third")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		got, err := repo.FindByEmail(ctx, "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(*got.RefreshToken).To(Equal("second"))
	})

	It("lets exactly one concurrent rotation win", func() {
		insert("alice@example.com")
		current := "current"
		Expect(repo.SetRefreshToken(ctx, "alice@example.com", &current)).To(Succeed())

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for i := range 10 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				ok, err := repo.RotateRefreshToken(ctx, "alice@example.com", "current", string(rune('a'+i)))
				Expect(err).NotTo(HaveOccurred())
				if ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		Expect(wins.Load()).To(Equal(int32(1)))
	})

	It("clears the refresh token", func() {
		insert("alice@example.com")
		token := "t"
		Expect(repo.SetRefreshToken(ctx, "alice@example.com", &token)).To(Succeed())
		Expect(repo.SetRefreshToken(ctx, "alice@example.com", nil)).To(Succeed())

		got, err := repo.FindByEmail(ctx, "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.RefreshToken).To(BeNil())
	})

	It("confirms and updates the avatar", func() {
		insert("alice@example.com")
		Expect(repo.MarkConfirmed(ctx, "alice@example.com")).To(Succeed())

		got, err := repo.UpdateAvatar(ctx, "alice@example.com", "https://cdn.example.com/a.png")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Confirmed).To(BeTrue())
		Expect(*got.Avatar).To(Equal("https://cdn.example.com/a.png"))
	})

	It("reports unknown users", func() {
		_, err := repo.FindByEmail(ctx, "ghost@example.com")
		Expect(err).To(MatchError(auth.ErrNotFound))
		Expect(repo.MarkConfirmed(ctx, "ghost@example.com")).To(MatchError(auth.ErrNotFound))
	})
})
