// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package web

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/contactbook/contactbook/internal/auth"
	"github.com/contactbook/contactbook/internal/logging"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

const identityKey = "identity"

var tracer = otel.Tracer("github.com/contactbook/contactbook/internal/web")

// requestContext assigns a request id and opens a server span.
func (s *Server) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		id := req.Header.Get(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = ulid.Make().String()
		}
		c.Response().Header().Set(HeaderRequestID, id)

		ctx := logging.WithRequestID(req.Context(), id)
		ctx, span := tracer.Start(ctx, req.Method+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", req.Method),
				attribute.String("http.route", c.Path()),
				attribute.String("request.id", id),
			),
		)
		defer span.End()
		c.SetRequest(req.WithContext(ctx))

		err := next(c)
		status := c.Response().Status
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		return err
	}
}

// observe commits errors, then writes the access log and request metrics.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			c.Error(err)
		}

		req := c.Request()
		status := c.Response().Status
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		if s.deps.Metrics != nil {
			s.deps.Metrics.HTTPRequest(req.Method, route, status)
		}

		level := slogLevelFor(status)
		s.logger.Log(req.Context(), level, "request handled",
			"method", req.Method,
			"route", route,
			"path", req.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_ip", c.RealIP(),
		)
		return nil
	}
}

// banUserAgents rejects clients whose User-Agent matches any pattern.
func banUserAgents(patterns []*regexp.Regexp) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ua := c.Request().UserAgent()
			for _, re := range patterns {
				if re.MatchString(ua) {
					return echo.NewHTTPError(http.StatusForbidden, "You are banned")
				}
			}
			return next(c)
		}
	}
}

// rateLimit applies the per-client, per-route limiter.
func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.limiter.Allow(c.RealIP() + " " + c.Request().Method + " " + c.Path()) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too Many Requests")
		}
		return next(c)
	}
}

// requireAuth resolves the bearer access token into an identity.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c.Request())
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
		}
		identity, err := s.deps.Auth.ResolveBearer(c.Request().Context(), token)
		if err != nil {
			return err
		}
		c.Set(identityKey, identity)
		return next(c)
	}
}

// requireRole admits identities holding one of roles. It must run after
// requireAuth.
func requireRole(roles ...auth.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !currentIdentity(c).HasRole(roles...) {
				return echo.NewHTTPError(http.StatusForbidden, "Operation forbidden")
			}
			return next(c)
		}
	}
}

func currentIdentity(c echo.Context) *auth.Identity {
	identity, _ := c.Get(identityKey).(*auth.Identity)
	if identity == nil {
		return &auth.Identity{}
	}
	return identity
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(echo.HeaderAuthorization)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
