// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package web

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const healthTimeout = 2 * time.Second

func (s *Server) me(c echo.Context) error {
	return c.JSON(http.StatusOK, currentIdentity(c))
}

func (s *Server) updateAvatar(c echo.Context) error {
	if s.deps.Avatars == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Avatar uploads are not configured")
	}
	header, err := c.FormFile("file")
	if err != nil {
		return unprocessable("multipart field 'file' is required")
	}
	file, err := header.Open()
	if err != nil {
		return unprocessable("could not read uploaded file")
	}
	defer func() { _ = file.Close() }()

	ctx := c.Request().Context()
	identity := currentIdentity(c)
	url, err := s.deps.Avatars.Upload(ctx, identity.ID, file)
	if err != nil {
		return err
	}
	updated, err := s.deps.Auth.UpdateAvatar(ctx, identity.Email, url)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) healthcheck(c echo.Context) error {
	if s.deps.Health == nil {
		return c.JSON(http.StatusOK, messageResponse{Message: "Welcome to Contactbook!"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()
	if err := s.deps.Health.Ping(ctx); err != nil {
		s.logger.ErrorContext(ctx, "database health check failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Error connecting to the database")
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Welcome to Contactbook!"})
}
