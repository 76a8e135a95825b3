// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/contactbook/contactbook/internal/auth"
	"github.com/contactbook/contactbook/internal/avatar"
	"github.com/contactbook/contactbook/internal/contacts"
	"github.com/contactbook/contactbook/pkg/errutil"
)

// codeStatus maps domain error codes to HTTP statuses. Unlisted codes are 500.
var codeStatus = map[string]int{
	auth.CodeConflict:          http.StatusConflict,
	auth.CodeInvalidEmail:      http.StatusUnauthorized,
	auth.CodeEmailNotConfirmed: http.StatusUnauthorized,
	auth.CodeInvalidPassword:   http.StatusUnauthorized,
	auth.CodeUnauthorized:      http.StatusUnauthorized,
	auth.CodeVerification:      http.StatusBadRequest,
	auth.CodeInvalidEmailToken: http.StatusUnprocessableEntity,
	auth.CodeInvalidInput:      http.StatusUnprocessableEntity,
	"AUTH_EMPTY_PASSWORD":      http.StatusUnprocessableEntity,
	"AUTH_PASSWORD_TOO_LONG":   http.StatusUnprocessableEntity,
	contacts.CodeNotFound:      http.StatusNotFound,
	contacts.CodeConflict:      http.StatusConflict,
	contacts.CodeInvalid:       http.StatusUnprocessableEntity,
	avatar.CodeTooLarge:        http.StatusRequestEntityTooLarge,
	avatar.CodeUnsupportedType: http.StatusUnsupportedMediaType,
	avatar.CodeEmpty:           http.StatusUnprocessableEntity,
}

// errorResponse is the body of every error.
type errorResponse struct {
	Detail string `json:"detail"`
}

// StatusFor returns the HTTP status and client-visible detail for err.
func StatusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		detail := http.StatusText(he.Code)
		if he.Message != nil {
			detail = fmt.Sprint(he.Message)
		}
		return he.Code, detail
	}
	if status, ok := codeStatus[errutil.Code(err)]; ok {
		return status, err.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}

// handleError is the echo error handler.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, detail := StatusFor(err)
	ctx := c.Request().Context()
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(ctx, s.logger, "request failed", err)
	} else if status != http.StatusNotFound && status != http.StatusMethodNotAllowed {
		s.logger.DebugContext(ctx, "request rejected", append(errutil.Attrs(err), "status", status)...)
	}

	if status == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, errorResponse{Detail: detail})
	}
	if writeErr != nil {
		s.logger.WarnContext(ctx, "failed to write error response", "error", writeErr)
	}
}

func slogLevelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// unprocessable reports a malformed request body or parameter.
func unprocessable(format string, args ...any) error {
	return echo.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf(format, args...))
}
