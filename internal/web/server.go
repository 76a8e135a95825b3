// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

// Package web serves the Contactbook REST API.
package web

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/oops"

	"github.com/contactbook/contactbook/internal/auth"
	"github.com/contactbook/contactbook/internal/contacts"
	"github.com/contactbook/contactbook/internal/store"
)

// AuthService is the part of auth.Service the API uses.
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, email, password string) (*auth.TokenPair, error)
	RefreshSession(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	ResolveBearer(ctx context.Context, accessToken string) (*auth.Identity, error)
	ConfirmEmail(ctx context.Context, token string) (auth.ConfirmOutcome, error)
	RequestEmailConfirmation(ctx context.Context, email, baseURL string) (auth.ConfirmOutcome, error)
	UpdateAvatar(ctx context.Context, email, url string) (*auth.Identity, error)
}

// ContactService is the part of contacts.Service the API uses.
type ContactService interface {
	List(ctx context.Context, userID int64, page contacts.Page) ([]contacts.Contact, error)
	ListAll(ctx context.Context, page contacts.Page) ([]contacts.Contact, error)
	Get(ctx context.Context, userID, id int64) (*contacts.Contact, error)
	Create(ctx context.Context, userID int64, in contacts.Input) (*contacts.Contact, error)
	Update(ctx context.Context, userID, id int64, in contacts.Input) (*contacts.Contact, error)
	Delete(ctx context.Context, userID, id int64) (*contacts.Contact, error)
	UpcomingBirthdays(ctx context.Context, userID int64, days int) ([]contacts.Contact, error)
}

// AvatarUploader stores an uploaded image and returns its public URL.
type AvatarUploader interface {
	Upload(ctx context.Context, userID int64, body io.Reader) (string, error)
}

// RequestRecorder counts served requests.
type RequestRecorder interface {
	HTTPRequest(method, route string, status int)
}

// Config configures the API server.
type Config struct {
	Addr string
	// BaseURL is the public root used in confirmation links. Empty means
	// derive it from each request.
	BaseURL        string
	CORSOrigins    []string
	BannedAgents   []string
	RateLimitEvery time.Duration
	RateLimitBurst int
}

// Deps are the collaborators of Server. Avatars, Health and Metrics may be nil.
type Deps struct {
	Auth     AuthService
	Contacts ContactService
	Avatars  AvatarUploader
	Health   store.Pinger
	Metrics  RequestRecorder
	Logger   *slog.Logger
}

// Server is the HTTP API.
type Server struct {
	cfg        Config
	deps       Deps
	logger     *slog.Logger
	echo       *echo.Echo
	limiter    *KeyedLimiter
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer builds the router. It does not listen until Start.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Auth == nil {
		return nil, oops.Code("WEB_SERVER_INVALID").Errorf("auth service is required")
	}
	if deps.Contacts == nil {
		return nil, oops.Code("WEB_SERVER_INVALID").Errorf("contact service is required")
	}
	banned := make([]*regexp.Regexp, 0, len(cfg.BannedAgents))
	for _, pattern := range cfg.BannedAgents {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, oops.Code("WEB_SERVER_INVALID").With("pattern", pattern).Wrap(err)
		}
		banned = append(banned, re)
	}
	origins, err := newOriginMatcher(cfg.CORSOrigins)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		limiter: NewKeyedLimiter(cfg.RateLimitEvery, cfg.RateLimitBurst),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(s.requestContext)
	e.Use(s.observe)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.logger.ErrorContext(c.Request().Context(), "panic recovered", "error", err, "stack", string(stack))
			return err
		},
	}))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOriginFunc:  origins.Allow,
			AllowCredentials: true,
			AllowHeaders:     []string{"*"},
		}))
	}
	e.Use(banUserAgents(banned))

	s.echo = e
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	api := s.echo.Group("/api")
	limited := s.rateLimit

	api.GET("/healthchecker", s.healthcheck)

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", s.signup)
	authGroup.POST("/login", s.login)
	authGroup.GET("/refresh_token", s.refreshToken)
	authGroup.GET("/confirmed_email/:token", s.confirmedEmail)
	authGroup.POST("/request_email", s.requestEmail)

	users := api.Group("/users", s.requireAuth)
	users.GET("/me", s.me, limited)
	users.PATCH("/avatar", s.updateAvatar, limited, middleware.BodyLimit("6M"))

	cg := api.Group("/contacts", s.requireAuth)
	cg.GET("", s.listContacts, limited)
	cg.GET("/all", s.listAllContacts, requireRole(auth.RoleAdmin, auth.RoleModerator), limited)
	cg.GET("/birthdays", s.upcomingBirthdays, limited)
	cg.GET("/:id", s.getContact, limited)
	cg.POST("", s.createContact, limited)
	cg.PUT("/:id", s.updateContact)
	cg.DELETE("/:id", s.deleteContact)
}

// Handler returns the API as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins serving the API. The returned channel receives a serve error
// and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("WEB_SERVER_RUNNING").Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}
	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// baseURL is the public API root with a trailing slash.
func (s *Server) baseURL(c echo.Context) string {
	if s.cfg.BaseURL != "" {
		return s.cfg.BaseURL
	}
	return c.Scheme() + "://" + c.Request().Host + "/"
}
