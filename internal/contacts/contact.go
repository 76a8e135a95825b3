// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

// Package contacts manages the personal contact records owned by users.
package contacts

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a contact does not exist or belongs to
// another user.
var ErrNotFound = errors.New("contact not found")

// ErrDuplicateEmail is returned when the owner already has a contact with
// the same email.
var ErrDuplicateEmail = errors.New("contact email already exists")

// Error codes surfaced by Service.
const (
	CodeNotFound = "CONTACT_NOT_FOUND"
	CodeConflict = "CONTACT_CONFLICT"
	CodeInvalid  = "CONTACT_INVALID"
)

// Field limits.
const (
	MaxNameLength       = 50
	MaxEmailLength      = 100
	MaxPhoneLength      = 15
	MaxAdditionalLength = 250
)

const dateLayout = time.DateOnly

// Date is a calendar date without time of day, encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate returns the given calendar date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, oops.Code(CodeInvalid).With("date", s).Errorf("birthday must be YYYY-MM-DD")
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON encodes the date as a JSON string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a YYYY-MM-DD JSON string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Contact is a person in a user's address book.
type Contact struct {
	ID             int64     `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	PhoneNumber    *string   `json:"phone_number"`
	Birthday       *Date     `json:"birthday"`
	AdditionalData *string   `json:"additional_data"`
	Completed      bool      `json:"completed"`
	UserID         int64     `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Input is the writable part of a contact, used by create and update.
type Input struct {
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	PhoneNumber    *string `json:"phone_number"`
	Birthday       *Date   `json:"birthday"`
	AdditionalData *string `json:"additional_data"`
	Completed      bool    `json:"completed"`
}

// Normalize trims surrounding whitespace and lower-cases the email.
func (in Input) Normalize() Input {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = trimOptional(in.PhoneNumber)
	in.AdditionalData = trimOptional(in.AdditionalData)
	return in
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Validate checks field presence and lengths.
func (in Input) Validate() error {
	if err := checkLength("first_name", in.FirstName, 1, MaxNameLength); err != nil {
		return err
	}
	if err := checkLength("last_name", in.LastName, 1, MaxNameLength); err != nil {
		return err
	}
	if err := checkLength("email", in.Email, 1, MaxEmailLength); err != nil {
		return err
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return oops.Code(CodeInvalid).With("field", "email").Errorf("email is not a valid address")
	}
	if in.PhoneNumber != nil {
		if err := checkLength("phone_number", *in.PhoneNumber, 0, MaxPhoneLength); err != nil {
			return err
		}
	}
	if in.AdditionalData != nil {
		if err := checkLength("additional_data", *in.AdditionalData, 0, MaxAdditionalLength); err != nil {
			return err
		}
	}
	return nil
}

func checkLength(field, value string, lo, hi int) error {
	n := utf8.RuneCountInString(value)
	if n < lo {
		return oops.Code(CodeInvalid).With("field", field).Errorf("%s cannot be empty", field)
	}
	if n > hi {
		return oops.Code(CodeInvalid).
			With("field", field).
			With("max", hi).
			Errorf("%s must be at most %d characters", field, hi)
	}
	return nil
}

// Apply copies the input onto c.
func (in Input) Apply(c *Contact) {
	c.FirstName = in.FirstName
	c.LastName = in.LastName
	c.Email = in.Email
	c.PhoneNumber = in.PhoneNumber
	c.Birthday = in.Birthday
	c.AdditionalData = in.AdditionalData
	c.Completed = in.Completed
}

// Page bounds a listing.
type Page struct {
	Limit  int
	Offset int
}

// Repository persists contacts. Every owner-scoped method treats a contact
// of another user as missing.
type Repository interface {
	List(ctx context.Context, userID int64, page Page) ([]Contact, error)
	ListAll(ctx context.Context, page Page) ([]Contact, error)
	ListWithBirthday(ctx context.Context, userID int64) ([]Contact, error)
	Get(ctx context.Context, userID, id int64) (*Contact, error)
	Create(ctx context.Context, c *Contact) error
	Update(ctx context.Context, c *Contact) error
	Delete(ctx context.Context, userID, id int64) (*Contact, error)
}
