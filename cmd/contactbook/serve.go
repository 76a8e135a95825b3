// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/contactbook/contactbook/internal/auth"
	authpostgres "github.com/contactbook/contactbook/internal/auth/postgres"
	"github.com/contactbook/contactbook/internal/avatar"
	"github.com/contactbook/contactbook/internal/cache"
	"github.com/contactbook/contactbook/internal/config"
	"github.com/contactbook/contactbook/internal/contacts"
	contactspostgres "github.com/contactbook/contactbook/internal/contacts/postgres"
	"github.com/contactbook/contactbook/internal/logging"
	"github.com/contactbook/contactbook/internal/mail"
	"github.com/contactbook/contactbook/internal/store"
	"github.com/contactbook/contactbook/internal/web"
	"github.com/contactbook/contactbook/pkg/errutil"
)

const serviceName = "contactbook"

// stopTimeout bounds cleanup of servers that failed mid-startup.
const stopTimeout = 5 * time.Second

func newServeCmd(opts *rootOptions, deps *ServeDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API and metrics servers",
		Long: `Start the Contactbook REST API together with the metrics and health
server. Configuration comes from flags, the environment (CONTACTBOOK_*),
an optional dotenv file and an optional YAML config file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, opts, deps)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps starts every server with injectable dependencies and
// blocks until a signal, a server error or ctx ends it.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, opts *rootOptions, deps *ServeDeps) error {
	deps = deps.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(cmd.Flags(), opts.sources())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.SetDefault(serviceName, cmd.Root().Version, cfg.Log.Format, cfg.Log.Level)
	logger.Info("starting contactbook",
		"addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"cache_driver", cfg.Cache.Driver,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(deps, cfg.Database.URL, logger); err != nil {
			return err
		}
	}

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL, store.ConnectOptions{
		Attempts: cfg.Database.ConnAttempts,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	obsServer := deps.ObservabilityServerFactory(cfg.Metrics.Addr, pool.Ping, logger)
	metrics := obsServer.Metrics()

	sessionCache, closeCache := buildSessionCache(ctx, cfg.Cache, logger)
	defer closeCache()

	mailer, err := buildMailer(cfg.Mail, logger)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenCodec(cfg.TokenCodecConfig())
	if err != nil {
		return err
	}

	authSvc, err := auth.NewService(auth.Deps{
		Directory: authpostgres.NewUserRepository(pool),
		Hasher:    auth.NewBcryptHasher(0),
		Tokens:    tokens,
		Cache:     sessionCache,
		Mailer:    mailer,
	},
		auth.WithLogger(logger),
		auth.WithRecorder(metrics),
		auth.WithMailTimeout(cfg.Mail.Timeout),
	)
	if err != nil {
		return err
	}
	defer authSvc.Wait()

	contactSvc, err := contacts.NewService(
		contactspostgres.NewContactRepository(pool),
		contacts.WithServiceLogger(logger),
	)
	if err != nil {
		return err
	}

	var avatars web.AvatarUploader
	if cfg.Avatar.Enabled() {
		objects, err := deps.AvatarStoreFactory(ctx, avatar.S3Config{
			Endpoint:      cfg.Avatar.Endpoint,
			Region:        cfg.Avatar.Region,
			Bucket:        cfg.Avatar.Bucket,
			AccessKey:     cfg.Avatar.AccessKey,
			SecretKey:     cfg.Avatar.SecretKey,
			PublicBaseURL: cfg.Avatar.PublicBaseURL,
		})
		if err != nil {
			return err
		}
		avatars = avatar.NewUploader(objects)
	} else {
		logger.Info("avatar uploads disabled, no bucket configured")
	}

	api, err := web.NewServer(web.Config{
		Addr:           cfg.HTTP.Addr,
		BaseURL:        cfg.HTTP.BaseURL,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		BannedAgents:   cfg.HTTP.BannedAgents,
		RateLimitEvery: cfg.HTTP.RateLimitEvery,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
	}, web.Deps{
		Auth:     authSvc,
		Contacts: contactSvc,
		Avatars:  avatars,
		Health:   pool,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	apiErrCh, err := api.Start()
	if err != nil {
		return oops.Code("API_START_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	// Monitor API server errors in background - cancel context on error
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	obsRunning := false
	if cfg.Metrics.Addr != "" {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
			defer stopCancel()
			if stopErr := api.Stop(stopCtx); stopErr != nil {
				errutil.LogError(logger, "failed to stop api server during cleanup", stopErr)
			}
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		obsRunning = true
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	cmd.Printf("Contactbook API listening on %s\n", api.Addr())
	if deps.OnReady != nil {
		deps.OnReady(api.Addr())
	}

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer shutdownCancel()

	if err := api.Stop(shutdownCtx); err != nil {
		errutil.LogError(logger, "error stopping api server", err)
	}
	if obsRunning {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			errutil.LogError(logger, "error stopping observability server", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.HTTP.ShutdownTimeout > 0 {
		return cfg.HTTP.ShutdownTimeout
	}
	return stopTimeout
}

func autoMigrate(deps *ServeDeps, databaseURL string, logger *slog.Logger) error {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			errutil.LogError(logger, "failed to close migrator", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "auto-migrate").Wrap(err)
	}
	logger.Info("database migrations applied")
	return nil
}

// buildSessionCache returns the configured session cache and a func that
// releases it. A nil cache disables caching.
func buildSessionCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (auth.SessionCache, func()) {
	switch cfg.Driver {
	case config.CacheDriverMemory:
		return cache.NewMemory(), func() {}
	case config.CacheDriverNone:
		logger.Info("session cache disabled")
		return nil, func() {}
	default:
		redisCache := cache.NewRedis(ctx, cache.RedisConfig{
			URL:         cfg.RedisURL,
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			Prefix:      cfg.KeyPrefix,
			DialTimeout: cfg.RedisDialTimeout,
		}, logger)
		if !redisCache.Enabled() {
			logger.Warn("session cache degraded, identities resolve from the database")
		}
		return redisCache, func() {
			if err := redisCache.Close(); err != nil {
				errutil.LogError(logger, "failed to close redis", err)
			}
		}
	}
}

func buildMailer(cfg config.MailConfig, logger *slog.Logger) (auth.Mailer, error) {
	if cfg.ResendAPIKey == "" {
		logger.Warn("no resend api key configured, confirmation links are logged instead of sent")
		return mail.NewLog(logger), nil
	}
	resendMailer, err := mail.NewResend(cfg.ResendAPIKey, cfg.From, logger)
	if err != nil {
		return nil, err
	}
	return resendMailer, nil
}

// monitorServerErrors watches a server error channel and cancels ctx when the
// server fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
