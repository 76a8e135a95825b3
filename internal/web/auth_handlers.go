// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/contactbook/contactbook/internal/auth"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type requestEmailRequest struct {
	Email string `json:"email"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) signup(c echo.Context) error {
	var body signupRequest
	if err := c.Bind(&body); err != nil {
		return unprocessable("invalid request body")
	}
	user, err := s.deps.Auth.Register(c.Request().Context(), auth.RegisterRequest{
		Email:    body.Email,
		Username: body.Username,
		Password: body.Password,
		BaseURL:  s.baseURL(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user.Identity())
}

// login takes an OAuth2 password form where username is the email.
func (s *Server) login(c echo.Context) error {
	email := c.FormValue("username")
	password := c.FormValue("password")
	if email == "" || password == "" {
		return unprocessable("username and password are required")
	}
	pair, err := s.deps.Auth.Login(c.Request().Context(), email, password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (s *Server) refreshToken(c echo.Context) error {
	token, ok := bearerToken(c.Request())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	pair, err := s.deps.Auth.RefreshSession(c.Request().Context(), token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (s *Server) confirmedEmail(c echo.Context) error {
	outcome, err := s.deps.Auth.ConfirmEmail(c.Request().Context(), c.Param("token"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: outcome.Message()})
}

func (s *Server) requestEmail(c echo.Context) error {
	var body requestEmailRequest
	if err := c.Bind(&body); err != nil {
		return unprocessable("invalid request body")
	}
	outcome, err := s.deps.Auth.RequestEmailConfirmation(c.Request().Context(), body.Email, s.baseURL(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: outcome.Message()})
}
