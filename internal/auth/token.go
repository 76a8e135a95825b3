// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Scope distinguishes access tokens from refresh tokens. The string values
// are part of the wire format.
type Scope string

// Token scopes. Email confirmation tokens carry no scope.
const (
	ScopeAccess  Scope = "access_token"
	ScopeRefresh Scope = "refresh_token"
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultEmailTTL   = 7 * 24 * time.Hour
)

// DefaultAlgorithm is the signing algorithm used when none is configured.
const DefaultAlgorithm = "HS256"

// Decode failure kinds. Errors returned by TokenCodec wrap exactly one of these.
var (
	ErrTokenMalformed  = errors.New("token is malformed or has an invalid signature")
	ErrTokenExpired    = errors.New("token has expired")
	ErrTokenWrongScope = errors.New("token has the wrong scope")
)

// Claims is the claim set carried by every token.
type Claims struct {
	Scope Scope `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// TokenConfig configures a TokenCodec. Zero TTLs fall back to the defaults.
type TokenConfig struct {
	Secret     []byte
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	EmailTTL   time.Duration
}

// TokenOption configures optional TokenCodec behaviour.
type TokenOption func(*TokenCodec)

// WithNowFunc overrides the clock used for issuing and validating tokens.
func WithNowFunc(now func() time.Time) TokenOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// TokenCodec issues and decodes signed, expiring tokens. It is safe for
// concurrent use.
type TokenCodec struct {
	secret     []byte
	method     *jwt.SigningMethodHMAC
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
	now        func() time.Time
}

// NewTokenCodec creates a TokenCodec. Only HMAC algorithms are accepted.
func NewTokenCodec(cfg TokenConfig, opts ...TokenOption) (*TokenCodec, error) {
	if len(cfg.Secret) == 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("signing secret is required")
	}

	alg := cfg.Algorithm
	if alg == "" {
		alg = DefaultAlgorithm
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").
			With("algorithm", alg).
			Errorf("unsupported signing algorithm %q", alg)
	}

	c := &TokenCodec{
		secret:     cfg.Secret,
		method:     method,
		accessTTL:  orDefault(cfg.AccessTTL, DefaultAccessTTL),
		refreshTTL: orDefault(cfg.RefreshTTL, DefaultRefreshTTL),
		emailTTL:   orDefault(cfg.EmailTTL, DefaultEmailTTL),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return d
}

// Issue signs claims merged with issued-at, expiry, scope and a unique token ID.
// A negative ttl yields a token that is already expired.
func (c *TokenCodec) Issue(claims Claims, scope Scope, ttl time.Duration) (string, error) {
	now := c.now()
	claims.Scope = scope
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(expiry(now, ttl))
	if claims.ID == "" {
		claims.ID = ulid.Make().String()
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("scope", string(scope)).Wrap(err)
	}
	return signed, nil
}

// IssueAccess issues an access token for subject with the configured TTL.
func (c *TokenCodec) IssueAccess(subject string) (string, error) {
	return c.Issue(subjectClaims(subject), ScopeAccess, c.accessTTL)
}

// IssueRefresh issues a refresh token for subject with the configured TTL.
func (c *TokenCodec) IssueRefresh(subject string) (string, error) {
	return c.Issue(subjectClaims(subject), ScopeRefresh, c.refreshTTL)
}

// IssueEmail issues a scope-less email confirmation token for subject.
func (c *TokenCodec) IssueEmail(subject string) (string, error) {
	return c.Issue(subjectClaims(subject), "", c.emailTTL)
}

// expiry rounds a positive lifetime up to the next whole second, since exp is
// encoded in seconds and truncation could expire a token as it is issued.
func expiry(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if ttl <= 0 {
		return exp
	}
	if rounded := exp.Truncate(time.Second); rounded.Before(exp) {
		return rounded.Add(time.Second)
	}
	return exp
}

func subjectClaims(subject string) Claims {
	return Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: subject}}
}

// Decode verifies signature and expiry, then requires the token to carry the
// expected scope.
func (c *TokenCodec) Decode(token string, expected Scope) (*Claims, error) {
	claims, err := c.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Scope != expected {
		return nil, oops.Code("TOKEN_WRONG_SCOPE").
			With("expected", string(expected)).
			With("actual", string(claims.Scope)).
			Wrap(ErrTokenWrongScope)
	}
	return claims, nil
}

// DecodeEmail verifies an email confirmation token without checking scope.
func (c *TokenCodec) DecodeEmail(token string) (*Claims, error) {
	return c.parse(token)
}

func (c *TokenCodec) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, c.key,
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code("TOKEN_EXPIRED").Wrap(ErrTokenExpired)
		}
		return nil, oops.Code("TOKEN_MALFORMED").With("reason", err.Error()).Wrap(ErrTokenMalformed)
	}
	if claims.Subject == "" {
		return nil, oops.Code("TOKEN_MALFORMED").With("reason", "missing subject").Wrap(ErrTokenMalformed)
	}
	return claims, nil
}

func (c *TokenCodec) key(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return c.secret, nil
}
