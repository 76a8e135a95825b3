// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/contactbook/contactbook/pkg/errutil"
)

// DefaultMailTimeout bounds a single background confirmation email dispatch.
const DefaultMailTimeout = 30 * time.Second

// TokenTypeBearer is the token_type reported alongside issued pairs.
const TokenTypeBearer = "bearer"

// TokenPair is an access token and its matching refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// ConfirmOutcome describes the result of a confirmation operation.
type ConfirmOutcome int

// Confirmation outcomes.
const (
	ConfirmConfirmed ConfirmOutcome = iota + 1
	ConfirmAlreadyConfirmed
	ConfirmRequested
)

// Message returns the user-facing description of the outcome.
func (o ConfirmOutcome) Message() string {
	switch o {
	case ConfirmConfirmed:
		return "Email confirmed"
	case ConfirmAlreadyConfirmed:
		return "Your email is already confirmed"
	case ConfirmRequested:
		return "Check your email for confirmation."
	default:
		return ""
	}
}

// Recorder receives authentication events for metrics.
type Recorder interface {
	AuthEvent(event, outcome string)
	CacheLookup(result string)
	RefreshRevoked()
}

type nopRecorder struct{}

func (nopRecorder) AuthEvent(string, string) {}
func (nopRecorder) CacheLookup(string)       {}
func (nopRecorder) RefreshRevoked()          {}

// Deps are the collaborators of Service. Cache may be nil.
type Deps struct {
	Directory UserDirectory
	Hasher    PasswordHasher
	Tokens    *TokenCodec
	Cache     SessionCache
	Mailer    Mailer
}

// Option configures optional Service behaviour.
type Option func(*Service)

// WithLogger sets the logger used for background failures and audit events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithMailTimeout bounds each background email dispatch.
func WithMailTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.mailTimeout = d
	}
}

// Service provides authentication and session operations.
type Service struct {
	users       UserDirectory
	hasher      PasswordHasher
	tokens      *TokenCodec
	cache       SessionCache
	mailer      Mailer
	logger      *slog.Logger
	recorder    Recorder
	mailTimeout time.Duration

	timingOnce sync.Once
	timingHash string

	dispatches sync.WaitGroup
}

// NewService creates a new Service.
func NewService(deps Deps, opts ...Option) (*Service, error) {
	if deps.Directory == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("user directory is required")
	}
	if deps.Hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if deps.Tokens == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token codec is required")
	}
	if deps.Mailer == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("mailer is required")
	}

	s := &Service{
		users:       deps.Directory,
		hasher:      deps.Hasher,
		tokens:      deps.Tokens,
		cache:       deps.Cache,
		mailer:      deps.Mailer,
		logger:      slog.Default(),
		recorder:    nopRecorder{},
		mailTimeout: DefaultMailTimeout,
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("logger cannot be nil")
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	return s, nil
}

// RegisterRequest carries the fields needed to create an account.
// BaseURL is the public API root used to build the confirmation link.
type RegisterRequest struct {
	Email    string
	Username string
	Password string
	BaseURL  string
}

// Register creates an unconfirmed account and sends a confirmation email in
// the background. Email delivery failures never fail registration.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	email := NormalizeEmail(req.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateUsername(req.Username); err != nil {
		return nil, err
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		s.recorder.AuthEvent("register", "conflict")
		return nil, errConflict(email)
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, oops.With("operation", "hash password").Wrap(err)
	}

	user, err := NewUser(email, req.Username, hash)
	if err != nil {
		return nil, err
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			s.recorder.AuthEvent("register", "conflict")
			return nil, errConflict(email)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}

	s.recorder.AuthEvent("register", "success")
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "email", user.Email)

	s.dispatchConfirmation(ctx, user.Email, user.Username, req.BaseURL)
	return user, nil
}

func errConflict(email string) error {
	return oops.Code(CodeConflict).With("email", email).Errorf("account already exists")
}

// Login verifies credentials and issues a token pair. The new refresh token
// replaces any previously stored one.
//
// Checks run in order: account exists, email confirmed, password matches.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "find user by email").
				Wrap(err)
		}
		// Keep response time close to the existing-account path.
		_, _ = s.hasher.Verify(password, s.dummyHash()) //nolint:errcheck // result is discarded
		s.recorder.AuthEvent("login", "invalid_email")
		return nil, oops.Code(CodeInvalidEmail).Errorf("invalid email")
	}

	if !user.Confirmed {
		s.recorder.AuthEvent("login", "email_not_confirmed")
		return nil, oops.Code(CodeEmailNotConfirmed).Errorf("email not confirmed")
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("email", email).
			Wrap(err)
	}
	if !valid {
		s.recorder.AuthEvent("login", "invalid_password")
		return nil, oops.Code(CodeInvalidPassword).Errorf("invalid password")
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, email, password)
	}

	pair, err := s.issuePair(email)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetRefreshToken(ctx, email, &pair.RefreshToken); err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "persist refresh token").
			With("email", email).
			Wrap(err)
	}

	s.recorder.AuthEvent("login", "success")
	return pair, nil
}

// upgradeHash rehashes the password at the current cost. Failures are logged only.
func (s *Service) upgradeHash(ctx context.Context, email, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, email, hash)
	}
	if err != nil {
		errutil.LogError(s.logger, "password hash upgrade failed", oops.With("email", email).Wrap(err))
	}
}

// dummyHash returns a real hash that no password will match, computed once.
func (s *Service) dummyHash() string {
	s.timingOnce.Do(func() {
		hash, err := s.hasher.Hash("timing-" + ulid.Make().String())
		if err == nil {
			s.timingHash = hash
		}
	})
	return s.timingHash
}

// RefreshSession exchanges a refresh token for a new pair. The presented
// token must be the one currently stored for the user; the swap to the new
// token is a single conditional update. Presenting any other token clears the
// stored one, so a replayed token also kills the token that superseded it.
func (s *Service) RefreshSession(ctx context.Context, presented string) (*TokenPair, error) {
	claims, err := s.tokens.Decode(presented, ScopeRefresh)
	if err != nil {
		s.logger.DebugContext(ctx, "refresh token rejected", "error", err)
		s.recorder.AuthEvent("refresh", "rejected")
		return nil, errInvalidCredentials()
	}
	email := claims.Subject

	pair, err := s.issuePair(email)
	if err != nil {
		return nil, err
	}

	rotated, err := s.users.RotateRefreshToken(ctx, email, presented, pair.RefreshToken)
	if err != nil {
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "rotate refresh token").
			With("email", email).
			Wrap(err)
	}
	if !rotated {
		if err := s.users.SetRefreshToken(ctx, email, nil); err != nil && !errors.Is(err, ErrNotFound) {
			errutil.LogError(s.logger, "failed to revoke refresh token family",
				oops.With("email", email).Wrap(err))
		}
		s.recorder.RefreshRevoked()
		s.recorder.AuthEvent("refresh", "revoked")
		s.logger.WarnContext(ctx, "stale refresh token presented, session revoked", "email", email)
		return nil, oops.Code(CodeUnauthorized).With("email", email).Errorf("invalid refresh token")
	}

	s.recorder.AuthEvent("refresh", "success")
	return pair, nil
}

func (s *Service) issuePair(email string) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(email)
	if err != nil {
		return nil, oops.With("operation", "issue access token").Wrap(err)
	}
	refresh, err := s.tokens.IssueRefresh(email)
	if err != nil {
		return nil, oops.With("operation", "issue refresh token").Wrap(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: TokenTypeBearer}, nil
}

// errInvalidCredentials does not say which token check failed.
func errInvalidCredentials() error {
	return oops.Code(CodeUnauthorized).Errorf("could not validate credentials")
}

// ResolveBearer returns the identity behind an access token, reading the
// session cache before the directory and populating it on a miss.
func (s *Service) ResolveBearer(ctx context.Context, accessToken string) (*Identity, error) {
	claims, err := s.tokens.Decode(accessToken, ScopeAccess)
	if err != nil {
		s.logger.DebugContext(ctx, "access token rejected", "error", err)
		s.recorder.AuthEvent("resolve", "rejected")
		return nil, errInvalidCredentials()
	}
	email := claims.Subject

	if identity, ok := s.cachedIdentity(ctx, email); ok {
		return identity, nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.recorder.AuthEvent("resolve", "unknown_user")
			return nil, errInvalidCredentials()
		}
		return nil, oops.Code("AUTH_RESOLVE_FAILED").
			With("operation", "find user by email").
			With("email", email).
			Wrap(err)
	}

	identity := user.Identity()
	s.storeIdentity(ctx, identity)
	return &identity, nil
}

func (s *Service) cachedIdentity(ctx context.Context, email string) (*Identity, bool) {
	identity, ok, err := s.cache.Get(ctx, email)
	switch {
	case err != nil:
		s.logger.WarnContext(ctx, "session cache read failed", "email", email, "error", err)
		s.recorder.CacheLookup("error")
		return nil, false
	case !ok || identity == nil || identity.Email != email:
		s.recorder.CacheLookup("miss")
		return nil, false
	default:
		s.recorder.CacheLookup("hit")
		return identity, true
	}
}

func (s *Service) storeIdentity(ctx context.Context, identity Identity) {
	if err := s.cache.Put(ctx, identity.Email, identity, SessionTTL); err != nil {
		s.logger.WarnContext(ctx, "session cache write failed", "email", identity.Email, "error", err)
	}
}

func (s *Service) invalidateIdentity(ctx context.Context, email string) {
	if err := s.cache.Invalidate(ctx, email); err != nil {
		s.logger.WarnContext(ctx, "session cache invalidation failed", "email", email, "error", err)
	}
}

// ConfirmEmail marks the account named by an email confirmation token as
// confirmed. Confirming an already confirmed account changes nothing.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (ConfirmOutcome, error) {
	claims, err := s.tokens.DecodeEmail(token)
	if err != nil {
		s.logger.DebugContext(ctx, "email token rejected", "error", err)
		return 0, oops.Code(CodeInvalidEmailToken).Errorf("invalid token for email verification")
	}
	email := claims.Subject

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, oops.Code(CodeVerification).With("email", email).Errorf("verification error")
		}
		return 0, oops.Code("AUTH_CONFIRM_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}
	if user.Confirmed {
		return ConfirmAlreadyConfirmed, nil
	}

	if err := s.users.MarkConfirmed(ctx, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, oops.Code(CodeVerification).With("email", email).Errorf("verification error")
		}
		return 0, oops.Code("AUTH_CONFIRM_FAILED").
			With("operation", "mark confirmed").
			Wrap(err)
	}
	s.invalidateIdentity(ctx, email)

	s.recorder.AuthEvent("confirm_email", "success")
	s.logger.InfoContext(ctx, "email confirmed", "email", email)
	return ConfirmConfirmed, nil
}

// RequestEmailConfirmation resends the confirmation email. Unknown addresses
// get the same outcome as known ones and no email is sent.
func (s *Service) RequestEmailConfirmation(ctx context.Context, email, baseURL string) (ConfirmOutcome, error) {
	email = NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ConfirmRequested, nil
		}
		return 0, oops.Code("AUTH_CONFIRM_REQUEST_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}
	if user.Confirmed {
		return ConfirmAlreadyConfirmed, nil
	}

	s.dispatchConfirmation(ctx, user.Email, user.Username, baseURL)
	return ConfirmRequested, nil
}

// UpdateAvatar stores a new avatar URL and refreshes the cached identity.
func (s *Service) UpdateAvatar(ctx context.Context, email, url string) (*Identity, error) {
	email = NormalizeEmail(email)

	user, err := s.users.UpdateAvatar(ctx, email, url)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errInvalidCredentials()
		}
		return nil, oops.Code("AUTH_AVATAR_UPDATE_FAILED").
			With("operation", "update avatar").
			With("email", email).
			Wrap(err)
	}

	identity := user.Identity()
	s.storeIdentity(ctx, identity)
	return &identity, nil
}

// dispatchConfirmation sends the confirmation email without blocking the
// caller. The request context's values are kept but its cancellation is not.
func (s *Service) dispatchConfirmation(ctx context.Context, email, name, baseURL string) {
	ctx = context.WithoutCancel(ctx)

	s.dispatches.Add(1)
	go func() {
		defer s.dispatches.Done()

		ctx, cancel := context.WithTimeout(ctx, s.mailTimeout)
		defer cancel()

		token, err := s.tokens.IssueEmail(email)
		if err != nil {
			errutil.LogError(s.logger, "failed to issue confirmation token", err)
			s.recorder.AuthEvent("confirmation_email", "failure")
			return
		}

		err = s.mailer.SendConfirmation(ctx, ConfirmationEmail{
			To:      email,
			Name:    name,
			BaseURL: baseURL,
			Token:   token,
		})
		if err != nil {
			errutil.LogError(s.logger, "failed to send confirmation email", oops.With("email", email).Wrap(err))
			s.recorder.AuthEvent("confirmation_email", "failure")
			return
		}
		s.recorder.AuthEvent("confirmation_email", "sent")
	}()
}

// Wait blocks until all background email dispatches have finished.
func (s *Service) Wait() {
	s.dispatches.Wait()
}
