// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

// Package postgres implements contacts.Repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/contactbook/contactbook/internal/contacts"
	"github.com/contactbook/contactbook/internal/store"
)

const contactColumns = `id, user_id, first_name, last_name, email, phone_number,
		       birthday, additional_data, completed, created_at, updated_at`

// ContactRepository implements contacts.Repository using PostgreSQL.
type ContactRepository struct {
	db store.DB
}

// NewContactRepository creates a new ContactRepository.
func NewContactRepository(db store.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// List returns a page of the owner's contacts ordered by id.
func (r *ContactRepository) List(ctx context.Context, userID int64, page contacts.Page) ([]contacts.Contact, error) {
	return r.query(ctx, "list contacts", `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`, userID, page.Limit, page.Offset)
}

// ListAll returns a page of every contact ordered by id.
func (r *ContactRepository) ListAll(ctx context.Context, page contacts.Page) ([]contacts.Contact, error) {
	return r.query(ctx, "list all contacts", `
		SELECT `+contactColumns+`
		FROM contacts
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, page.Limit, page.Offset)
}

// ListWithBirthday returns the owner's contacts that have a birthday set.
func (r *ContactRepository) ListWithBirthday(ctx context.Context, userID int64) ([]contacts.Contact, error) {
	return r.query(ctx, "list contacts with birthday", `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1 AND birthday IS NOT NULL
		ORDER BY id
	`, userID)
}

// Get returns one of the owner's contacts.
func (r *ContactRepository) Get(ctx context.Context, userID, id int64) (*contacts.Contact, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	return r.scanOne(row, "get contact", id)
}

// Create inserts c and sets its ID.
func (r *ContactRepository) Create(ctx context.Context, c *contacts.Contact) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO contacts (user_id, first_name, last_name, email, phone_number,
		                      birthday, additional_data, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		c.UserID,
		c.FirstName,
		c.LastName,
		c.Email,
		c.PhoneNumber,
		birthdayArg(c.Birthday),
		c.AdditionalData,
		c.Completed,
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return writeErr(err, "insert contact", 0)
	}
	return nil
}

// Update overwrites the writable fields of c, matching on id and owner.
func (r *ContactRepository) Update(ctx context.Context, c *contacts.Contact) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE contacts SET
			first_name = $3,
			last_name = $4,
			email = $5,
			phone_number = $6,
			birthday = $7,
			additional_data = $8,
			completed = $9,
			updated_at = $10
		WHERE id = $1 AND user_id = $2
	`,
		c.ID,
		c.UserID,
		c.FirstName,
		c.LastName,
		c.Email,
		c.PhoneNumber,
		birthdayArg(c.Birthday),
		c.AdditionalData,
		c.Completed,
		c.UpdatedAt,
	)
	if err != nil {
		return writeErr(err, "update contact", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return oops.With("contact_id", c.ID).Wrap(contacts.ErrNotFound)
	}
	return nil
}

// Delete removes one of the owner's contacts and returns the deleted row.
func (r *ContactRepository) Delete(ctx context.Context, userID, id int64) (*contacts.Contact, error) {
	row := r.db.QueryRow(ctx, `
		DELETE FROM contacts
		WHERE id = $1 AND user_id = $2
		RETURNING `+contactColumns,
		id, userID)
	return r.scanOne(row, "delete contact", id)
}

func (r *ContactRepository) query(ctx context.Context, op, sql string, args ...any) ([]contacts.Contact, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, oops.Code("CONTACT_QUERY_FAILED").With("operation", op).Wrap(err)
	}
	defer rows.Close()

	list := []contacts.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, oops.Code("CONTACT_QUERY_FAILED").With("operation", op+": scan").Wrap(err)
		}
		list = append(list, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("CONTACT_QUERY_FAILED").With("operation", op+": iterate").Wrap(err)
	}
	return list, nil
}

func (r *ContactRepository) scanOne(row pgx.Row, op string, id int64) (*contacts.Contact, error) {
	c, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("contact_id", id).Wrap(contacts.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CONTACT_QUERY_FAILED").
			With("operation", op).
			With("contact_id", id).
			Wrap(err)
	}
	return c, nil
}

func writeErr(err error, op string, id int64) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return oops.With("contact_id", id).Wrap(contacts.ErrDuplicateEmail)
	}
	return oops.Code("CONTACT_WRITE_FAILED").
		With("operation", op).
		With("contact_id", id).
		Wrap(err)
}

func birthdayArg(d *contacts.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func scanContact(row pgx.Row) (*contacts.Contact, error) {
	var (
		c        contacts.Contact
		birthday *time.Time
	)
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.PhoneNumber,
		&birthday,
		&c.AdditionalData,
		&c.Completed,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if birthday != nil {
		d := contacts.NewDate(birthday.Year(), birthday.Month(), birthday.Day())
		c.Birthday = &d
	}
	return &c, nil
}

var _ contacts.Repository = (*ContactRepository)(nil)
