// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactbook/contactbook/internal/contacts"
	"github.com/contactbook/contactbook/pkg/errutil"
)

var contactRowColumns = []string{
	"id", "user_id", "first_name", "last_name", "email", "phone_number",
	"birthday", "additional_data", "completed", "created_at", "updated_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

var stamp = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

func contactRow(rows *pgxmock.Rows, id int64, birthday *time.Time) *pgxmock.Rows {
	phone := "+380501234567"
	return rows.AddRow(
		id, int64(1), "Ada", "Lovelace", "ada@example.com", &phone,
		birthday, (*string)(nil), false, stamp, stamp,
	)
}

func TestContactRepository_List(t *testing.T) {
	bday := time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantLen   int
		wantCode  string
	}{
		{
			name: "rows",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(contactRowColumns)
				contactRow(rows, 1, &bday)
				contactRow(rows, 2, nil)
				mock.ExpectQuery(`SELECT .+ FROM contacts WHERE user_id = \$1 ORDER BY id LIMIT \$2 OFFSET \$3`).
					WithArgs(int64(1), 10, 20).
					WillReturnRows(rows)
			},
			wantLen: 2,
		},
		{
			name: "empty",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .+ FROM contacts`).
					WithArgs(int64(1), 10, 20).
					WillReturnRows(pgxmock.NewRows(contactRowColumns))
			},
			wantLen: 0,
		},
		{
			name: "query error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .+ FROM contacts`).
					WithArgs(int64(1), 10, 20).
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: "CONTACT_QUERY_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setupMock(mock)

			got, err := NewContactRepository(mock).List(context.Background(), 1, contacts.Page{Limit: 10, Offset: 20})
			if tt.wantCode != "" {
				errutil.AssertErrorCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Len(t, got, tt.wantLen)
			if tt.wantLen > 0 {
				require.NotNil(t, got[0].Birthday)
				assert.Equal(t, "1815-12-10", got[0].Birthday.String())
				assert.Nil(t, got[1].Birthday)
			}
		})
	}
}

func TestContactRepository_ListAll(t *testing.T) {
	mock := newMock(t)
	rows := pgxmock.NewRows(contactRowColumns)
	contactRow(rows, 5, nil)
	mock.ExpectQuery(`SELECT .+ FROM contacts ORDER BY id LIMIT \$1 OFFSET \$2`).
		WithArgs(50, 0).
		WillReturnRows(rows)

	got, err := NewContactRepository(mock).ListAll(context.Background(), contacts.Page{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestContactRepository_ListWithBirthday(t *testing.T) {
	mock := newMock(t)
	bday := time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(contactRowColumns)
	contactRow(rows, 3, &bday)
	mock.ExpectQuery(`WHERE user_id = \$1 AND birthday IS NOT NULL`).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	got, err := NewContactRepository(mock).ListWithBirthday(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1990-01-02", got[0].Birthday.String())
}

func TestContactRepository_Get(t *testing.T) {
	t.Run("owned", func(t *testing.T) {
		mock := newMock(t)
		rows := pgxmock.NewRows(contactRowColumns)
		contactRow(rows, 9, nil)
		mock.ExpectQuery(`WHERE id = \$1 AND user_id = \$2`).
			WithArgs(int64(9), int64(1)).
			WillReturnRows(rows)

		got, err := NewContactRepository(mock).Get(context.Background(), 1, 9)
		require.NoError(t, err)
		assert.Equal(t, int64(9), got.ID)
		require.NotNil(t, got.PhoneNumber)
	})

	t.Run("missing or foreign", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`WHERE id = \$1 AND user_id = \$2`).
			WithArgs(int64(9), int64(2)).
			WillReturnRows(pgxmock.NewRows(contactRowColumns))

		_, err := NewContactRepository(mock).Get(context.Background(), 2, 9)
		assert.ErrorIs(t, err, contacts.ErrNotFound)
	})
}

func TestContactRepository_Create(t *testing.T) {
	newContact := func() *contacts.Contact {
		d := contacts.NewDate(1815, 12, 10)
		return &contacts.Contact{
			UserID: 1, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
			Birthday: &d, CreatedAt: stamp, UpdatedAt: stamp,
		}
	}

	t.Run("returns id", func(t *testing.T) {
		mock := newMock(t)
		bday := time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(`INSERT INTO contacts`).
			WithArgs(int64(1), "Ada", "Lovelace", "ada@example.com", (*string)(nil),
				&bday, (*string)(nil), false, stamp, stamp).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(44)))

		c := newContact()
		require.NoError(t, NewContactRepository(mock).Create(context.Background(), c))
		assert.Equal(t, int64(44), c.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO contacts`).
			WithArgs(anyArgs(10)...).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "contacts_user_email_key"})

		err := NewContactRepository(mock).Create(context.Background(), newContact())
		assert.ErrorIs(t, err, contacts.ErrDuplicateEmail)
	})

	t.Run("other failure", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO contacts`).
			WithArgs(anyArgs(10)...).
			WillReturnError(errors.New("disk full"))

		err := NewContactRepository(mock).Create(context.Background(), newContact())
		errutil.AssertErrorCode(t, err, "CONTACT_WRITE_FAILED")
	})
}

func TestContactRepository_Update(t *testing.T) {
	c := &contacts.Contact{ID: 3, UserID: 1, FirstName: "A", LastName: "B", Email: "a@example.com", UpdatedAt: stamp}

	tests := []struct {
		name    string
		result  pgconn.CommandTag
		err     error
		wantErr error
	}{
		{name: "updated", result: pgxmock.NewResult("UPDATE", 1)},
		{name: "not owned", result: pgxmock.NewResult("UPDATE", 0), wantErr: contacts.ErrNotFound},
		{name: "email clash", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, wantErr: contacts.ErrDuplicateEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			exp := mock.ExpectExec(`UPDATE contacts SET .+ WHERE id = \$1 AND user_id = \$2`).
				WithArgs(int64(3), int64(1), "A", "B", "a@example.com", (*string)(nil),
					(*time.Time)(nil), (*string)(nil), false, stamp)
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := NewContactRepository(mock).Update(context.Background(), c)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestContactRepository_Delete(t *testing.T) {
	t.Run("returns deleted row", func(t *testing.T) {
		mock := newMock(t)
		rows := pgxmock.NewRows(contactRowColumns)
		contactRow(rows, 7, nil)
		mock.ExpectQuery(`DELETE FROM contacts WHERE id = \$1 AND user_id = \$2 RETURNING`).
			WithArgs(int64(7), int64(1)).
			WillReturnRows(rows)

		got, err := NewContactRepository(mock).Delete(context.Background(), 1, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.ID)
	})

	t.Run("not owned", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`DELETE FROM contacts`).
			WithArgs(int64(7), int64(2)).
			WillReturnRows(pgxmock.NewRows(contactRowColumns))

		_, err := NewContactRepository(mock).Delete(context.Background(), 2, 7)
		assert.ErrorIs(t, err, contacts.ErrNotFound)
	})
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}
