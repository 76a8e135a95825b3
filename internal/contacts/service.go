// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package contacts

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/oops"
)

// Listing and birthday window bounds.
const (
	DefaultLimit        = 10
	MinLimit            = 10
	MaxLimit            = 500
	DefaultBirthdayDays = 7
	MinBirthdayDays     = 7
	MaxBirthdayDays     = 100
)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the clock used for the birthday window.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// Service validates contact input and scopes every operation to its owner.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new Service.
func NewService(repo Repository, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, oops.Code("CONTACT_SERVICE_INVALID").Errorf("repository is required")
	}
	s := &Service{repo: repo, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("CONTACT_SERVICE_INVALID").Errorf("logger cannot be nil")
	}
	return s, nil
}

// ValidatePage checks limit and offset against the listing bounds.
func ValidatePage(p Page) error {
	if p.Limit < MinLimit || p.Limit > MaxLimit {
		return oops.Code(CodeInvalid).
			With("limit", p.Limit).
			Errorf("limit must be between %d and %d", MinLimit, MaxLimit)
	}
	if p.Offset < 0 {
		return oops.Code(CodeInvalid).With("offset", p.Offset).Errorf("offset must be non-negative")
	}
	return nil
}

// List returns the owner's contacts.
func (s *Service) List(ctx context.Context, userID int64, page Page) ([]Contact, error) {
	if err := ValidatePage(page); err != nil {
		return nil, err
	}
	list, err := s.repo.List(ctx, userID, page)
	if err != nil {
		return nil, oops.With("operation", "list contacts").With("user_id", userID).Wrap(err)
	}
	return list, nil
}

// ListAll returns contacts across all owners. Callers must restrict it to
// privileged roles.
func (s *Service) ListAll(ctx context.Context, page Page) ([]Contact, error) {
	if err := ValidatePage(page); err != nil {
		return nil, err
	}
	list, err := s.repo.ListAll(ctx, page)
	if err != nil {
		return nil, oops.With("operation", "list all contacts").Wrap(err)
	}
	return list, nil
}

// Get returns one of the owner's contacts.
func (s *Service) Get(ctx context.Context, userID, id int64) (*Contact, error) {
	c, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, s.mapErr(err, "get contact", id)
	}
	return c, nil
}

// Create validates in and stores it as a new contact of userID.
func (s *Service) Create(ctx context.Context, userID int64, in Input) (*Contact, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c := &Contact{UserID: userID, CreatedAt: now, UpdatedAt: now}
	in.Apply(c)

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, s.mapErr(err, "create contact", 0)
	}
	s.logger.InfoContext(ctx, "contact created", "user_id", userID, "contact_id", c.ID)
	return c, nil
}

// Update replaces every writable field of one of the owner's contacts.
func (s *Service) Update(ctx context.Context, userID, id int64, in Input) (*Contact, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	c, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, s.mapErr(err, "get contact", id)
	}
	in.Apply(c)
	c.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, s.mapErr(err, "update contact", id)
	}
	return c, nil
}

// Delete removes one of the owner's contacts and returns it.
func (s *Service) Delete(ctx context.Context, userID, id int64) (*Contact, error) {
	c, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return nil, s.mapErr(err, "delete contact", id)
	}
	s.logger.InfoContext(ctx, "contact deleted", "user_id", userID, "contact_id", id)
	return c, nil
}

// UpcomingBirthdays returns the owner's contacts whose next birthday falls
// within days of today, inclusive, ordered by that date. The window wraps
// across the year end.
func (s *Service) UpcomingBirthdays(ctx context.Context, userID int64, days int) ([]Contact, error) {
	if days < MinBirthdayDays || days > MaxBirthdayDays {
		return nil, oops.Code(CodeInvalid).
			With("days", days).
			Errorf("days must be between %d and %d", MinBirthdayDays, MaxBirthdayDays)
	}

	all, err := s.repo.ListWithBirthday(ctx, userID)
	if err != nil {
		return nil, oops.With("operation", "list birthdays").With("user_id", userID).Wrap(err)
	}

	today := s.now()
	type upcoming struct {
		contact Contact
		in      int
	}
	var matched []upcoming
	for _, c := range all {
		if c.Birthday == nil {
			continue
		}
		if in := DaysUntilBirthday(today, *c.Birthday); in <= days {
			matched = append(matched, upcoming{contact: c, in: in})
		}
	}
	slices.SortStableFunc(matched, func(a, b upcoming) int { return a.in - b.in })

	out := make([]Contact, 0, len(matched))
	for _, m := range matched {
		out = append(out, m.contact)
	}
	return out, nil
}

// DaysUntilBirthday returns how many days after today the next anniversary
// of birthday falls; 0 means today. A February 29 birthday is celebrated on
// March 1 in common years.
func DaysUntilBirthday(today time.Time, birthday Date) int {
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	next := time.Date(start.Year(), birthday.Month(), birthday.Day(), 0, 0, 0, 0, time.UTC)
	if next.Before(start) {
		next = time.Date(start.Year()+1, birthday.Month(), birthday.Day(), 0, 0, 0, 0, time.UTC)
	}
	return int(next.Sub(start).Hours() / 24)
}

func (s *Service) mapErr(err error, op string, id int64) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return oops.Code(CodeNotFound).With("contact_id", id).Errorf("Contact not found")
	case errors.Is(err, ErrDuplicateEmail):
		return oops.Code(CodeConflict).Errorf("contact with this email already exists")
	default:
		return oops.With("operation", op).With("contact_id", id).Wrap(err)
	}
}
