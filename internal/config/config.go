// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

// Package config loads Contactbook settings from flags, a YAML file, a .env
// file and the environment.
package config

import (
	"net"
	"net/url"
	"regexp"
	"time"

	"github.com/samber/oops"

	"github.com/contactbook/contactbook/internal/auth"
	"github.com/contactbook/contactbook/internal/logging"
)

// MinSecretBytes is the shortest accepted token signing secret.
const MinSecretBytes = 32

// Config is the complete server configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Database DatabaseConfig `koanf:"database"`
	Token    TokenConfig    `koanf:"token"`
	Cache    CacheConfig    `koanf:"cache"`
	Mail     MailConfig     `koanf:"mail"`
	Avatar   AvatarConfig   `koanf:"avatar"`
	Log      LogConfig      `koanf:"log"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	BaseURL         string        `koanf:"base_url"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	BannedAgents    []string      `koanf:"banned_agents"`
	RateLimitEvery  time.Duration `koanf:"rate_limit_every"`
	RateLimitBurst  int           `koanf:"rate_limit_burst"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the metrics and health listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig configures PostgreSQL.
type DatabaseConfig struct {
	URL          string `koanf:"url"`
	MaxConns     int32  `koanf:"max_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
	ConnAttempts uint64 `koanf:"conn_attempts"`
}

// TokenConfig configures JWT signing.
type TokenConfig struct {
	Secret     string        `koanf:"secret"`
	Algorithm  string        `koanf:"algorithm" jsonschema:"enum=HS256,enum=HS384,enum=HS512"`
	AccessTTL  time.Duration `koanf:"access_ttl"`
	RefreshTTL time.Duration `koanf:"refresh_ttl"`
	EmailTTL   time.Duration `koanf:"email_ttl"`
}

// CacheConfig selects the session cache. RedisURL takes precedence over the
// individual redis fields.
type CacheConfig struct {
	Driver           string        `koanf:"driver" jsonschema:"enum=redis,enum=memory,enum=none"`
	RedisURL         string        `koanf:"redis_url"`
	RedisAddr        string        `koanf:"redis_addr"`
	RedisPassword    string        `koanf:"redis_password"`
	RedisDB          int           `koanf:"redis_db" jsonschema:"minimum=0"`
	RedisDialTimeout time.Duration `koanf:"redis_dial_timeout"`
	KeyPrefix        string        `koanf:"key_prefix"`
}

// MailConfig configures outgoing email. Without an API key confirmation
// links are only logged.
type MailConfig struct {
	ResendAPIKey string        `koanf:"resend_api_key"`
	From         string        `koanf:"from"`
	Timeout      time.Duration `koanf:"timeout"`
}

// AvatarConfig configures the S3-compatible avatar bucket.
type AvatarConfig struct {
	Endpoint      string `koanf:"endpoint"`
	Region        string `koanf:"region"`
	Bucket        string `koanf:"bucket"`
	AccessKey     string `koanf:"access_key"`
	SecretKey     string `koanf:"secret_key"`
	PublicBaseURL string `koanf:"public_base_url"`
}

// Enabled reports whether avatar uploads are configured.
func (a AvatarConfig) Enabled() bool {
	return a.Bucket != ""
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level"`
}

// Cache drivers.
const (
	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"
	CacheDriverNone   = "none"
)

// TokenCodecConfig converts the token section for auth.NewTokenCodec.
func (c *Config) TokenCodecConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Secret:     []byte(c.Token.Secret),
		Algorithm:  c.Token.Algorithm,
		AccessTTL:  c.Token.AccessTTL,
		RefreshTTL: c.Token.RefreshTTL,
		EmailTTL:   c.Token.EmailTTL,
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return invalid("database.url", "database url is required")
	}
	if len(c.Token.Secret) < MinSecretBytes {
		return invalid("token.secret", "token secret must be at least %d bytes", MinSecretBytes)
	}
	switch c.Token.Algorithm {
	case "", "HS256", "HS384", "HS512":
	default:
		return invalid("token.algorithm", "unsupported token algorithm %q", c.Token.Algorithm)
	}
	for name, ttl := range map[string]time.Duration{
		"token.access_ttl":  c.Token.AccessTTL,
		"token.refresh_ttl": c.Token.RefreshTTL,
		"token.email_ttl":   c.Token.EmailTTL,
	} {
		if ttl < 0 {
			return invalid(name, "%s must not be negative", name)
		}
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "unknown log level %q", c.Log.Level)
	}
	if err := validateAddr("http.addr", c.HTTP.Addr, true); err != nil {
		return err
	}
	if err := validateAddr("metrics.addr", c.Metrics.Addr, false); err != nil {
		return err
	}
	if u, err := url.Parse(c.HTTP.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("http.base_url", "base url must be an absolute url, got %q", c.HTTP.BaseURL)
	}
	if c.HTTP.RateLimitEvery < 0 || c.HTTP.RateLimitBurst < 0 {
		return invalid("http.rate_limit_every", "rate limit must not be negative")
	}
	for _, pattern := range c.HTTP.BannedAgents {
		if _, err := regexp.Compile(pattern); err != nil {
			return invalid("http.banned_agents", "invalid user agent pattern %q", pattern)
		}
	}
	switch c.Cache.Driver {
	case CacheDriverRedis, CacheDriverMemory, CacheDriverNone:
	default:
		return invalid("cache.driver", "cache driver must be redis, memory or none, got %q", c.Cache.Driver)
	}
	if c.Mail.ResendAPIKey != "" && c.Mail.From == "" {
		return invalid("mail.from", "mail sender is required when resend is configured")
	}
	return nil
}

func validateAddr(field, addr string, required bool) error {
	if addr == "" {
		if required {
			return invalid(field, "%s is required", field)
		}
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return invalid(field, "%s must be host:port, got %q", field, addr)
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("field", field).Errorf(format, args...)
}
