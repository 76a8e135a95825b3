// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package web

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/contactbook/contactbook/internal/contacts"
)

func pageParams(c echo.Context) (contacts.Page, error) {
	page := contacts.Page{Limit: contacts.DefaultLimit}
	err := echo.QueryParamsBinder(c).
		Int("limit", &page.Limit).
		Int("offset", &page.Offset).
		BindError()
	if err != nil {
		return page, unprocessable("limit and offset must be integers")
	}
	return page, nil
}

func contactID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, unprocessable("contact id must be a positive integer")
	}
	return id, nil
}

func (s *Server) listContacts(c echo.Context) error {
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	list, err := s.deps.Contacts.List(c.Request().Context(), currentIdentity(c).ID, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) listAllContacts(c echo.Context) error {
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	list, err := s.deps.Contacts.ListAll(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) upcomingBirthdays(c echo.Context) error {
	days := contacts.DefaultBirthdayDays
	if err := echo.QueryParamsBinder(c).Int("days", &days).BindError(); err != nil {
		return unprocessable("days must be an integer")
	}
	list, err := s.deps.Contacts.UpcomingBirthdays(c.Request().Context(), currentIdentity(c).ID, days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) getContact(c echo.Context) error {
	id, err := contactID(c)
	if err != nil {
		return err
	}
	contact, err := s.deps.Contacts.Get(c.Request().Context(), currentIdentity(c).ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact)
}

func (s *Server) createContact(c echo.Context) error {
	var in contacts.Input
	if err := c.Bind(&in); err != nil {
		return unprocessable("invalid request body")
	}
	contact, err := s.deps.Contacts.Create(c.Request().Context(), currentIdentity(c).ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, contact)
}

func (s *Server) updateContact(c echo.Context) error {
	id, err := contactID(c)
	if err != nil {
		return err
	}
	var in contacts.Input
	if err := c.Bind(&in); err != nil {
		return unprocessable("invalid request body")
	}
	contact, err := s.deps.Contacts.Update(c.Request().Context(), currentIdentity(c).ID, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact)
}

func (s *Server) deleteContact(c echo.Context) error {
	id, err := contactID(c)
	if err != nil {
		return err
	}
	if _, err := s.deps.Contacts.Delete(c.Request().Context(), currentIdentity(c).ID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
