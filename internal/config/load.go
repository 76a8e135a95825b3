// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/contactbook/contactbook/internal/auth"
	"github.com/contactbook/contactbook/internal/cache"
)

// EnvPrefix prefixes every environment variable. Sections are separated by a
// double underscore: CONTACTBOOK_DATABASE__URL sets database.url.
const EnvPrefix = "CONTACTBOOK_"

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"addr":             "http.addr",
	"base-url":         "http.base_url",
	"cors-origins":     "http.cors_origins",
	"banned-agents":    "http.banned_agents",
	"rate-limit-every": "http.rate_limit_every",
	"rate-limit-burst": "http.rate_limit_burst",
	"shutdown-timeout": "http.shutdown_timeout",
	"metrics-addr":     "metrics.addr",
	"database-url":     "database.url",
	"db-max-conns":     "database.max_conns",
	"auto-migrate":     "database.auto_migrate",
	"db-conn-attempts": "database.conn_attempts",
	"token-algorithm":  "token.algorithm",
	"access-ttl":       "token.access_ttl",
	"refresh-ttl":      "token.refresh_ttl",
	"email-ttl":        "token.email_ttl",
	"cache-driver":     "cache.driver",
	"redis-url":        "cache.redis_url",
	"redis-addr":       "cache.redis_addr",
	"redis-db":         "cache.redis_db",
	"redis-timeout":    "cache.redis_dial_timeout",
	"cache-prefix":     "cache.key_prefix",
	"mail-from":        "mail.from",
	"mail-timeout":     "mail.timeout",
	"log-format":       "log.format",
	"log-level":        "log.level",
}

// listKeys are split on commas when read from the environment.
var listKeys = map[string]struct{}{
	"http.cors_origins":  {},
	"http.banned_agents": {},
}

// RegisterFlags adds the server flags and their defaults to fs. Secrets have
// no flags and come from the file or the environment.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("addr", "0.0.0.0:8000", "API listen address")
	fs.String("base-url", "http://localhost:8000/", "public base url used in email links")
	fs.StringSlice("cors-origins", []string{"http://localhost:3000"}, "allowed CORS origins")
	fs.StringSlice("banned-agents", nil, "user agent regex patterns to reject")
	fs.Duration("rate-limit-every", 5*time.Second, "minimum interval between requests per client and route (0 disables)")
	fs.Int("rate-limit-burst", 1, "requests allowed in a burst per client and route")
	fs.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	fs.String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	fs.String("database-url", "", "PostgreSQL connection url")
	fs.Int32("db-max-conns", 0, "maximum pool connections (0 = pgx default)")
	fs.Bool("auto-migrate", false, "apply pending migrations on startup")
	fs.Uint64("db-conn-attempts", 5, "database ping attempts at startup")
	fs.String("token-algorithm", auth.DefaultAlgorithm, "JWT signing algorithm (HS256, HS384, HS512)")
	fs.Duration("access-ttl", auth.DefaultAccessTTL, "access token lifetime")
	fs.Duration("refresh-ttl", auth.DefaultRefreshTTL, "refresh token lifetime")
	fs.Duration("email-ttl", auth.DefaultEmailTTL, "email confirmation token lifetime")
	fs.String("cache-driver", CacheDriverRedis, "session cache driver (redis, memory, none)")
	fs.String("redis-url", "", "redis url for the session cache")
	fs.String("redis-addr", "", "redis host:port, used when no redis url is set")
	fs.Int("redis-db", 0, "redis database number")
	fs.Duration("redis-timeout", 5*time.Second, "redis dial timeout")
	fs.String("cache-prefix", cache.DefaultPrefix, "key prefix for cached identities")
	fs.String("mail-from", "Contactbook <no-reply@localhost>", "sender address for account email")
	fs.Duration("mail-timeout", 30*time.Second, "timeout for each outgoing email")
	fs.String("log-format", "json", "log format (json or text)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

// Sources names the optional files Load reads.
type Sources struct {
	// ConfigFile is a YAML file. Empty means none.
	ConfigFile string
	// EnvFile is a dotenv file. A missing file is ignored.
	EnvFile string
}

// Load builds the configuration. Precedence from lowest to highest is flag
// defaults, the YAML file, the environment (including the dotenv file) and
// flags set on the command line.
func Load(flags *pflag.FlagSet, src Sources) (*Config, error) {
	k := koanf.New(".")

	if src.ConfigFile != "" {
		data, err := os.ReadFile(src.ConfigFile)
		if err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", src.ConfigFile).Wrap(err)
		}
		if err := ValidateFile(data); err != nil {
			return nil, oops.With("file", src.ConfigFile).Wrap(err)
		}
		if err := k.Load(file.Provider(src.ConfigFile), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", src.ConfigFile).Wrap(err)
		}
	}

	if src.EnvFile != "" {
		if err := godotenv.Load(src.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", src.EnvFile).Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	return &cfg, nil
}

// envKey maps CONTACTBOOK_TOKEN__ACCESS_TTL to token.access_ttl.
func envKey(name, value string) (string, interface{}) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if _, ok := listKeys[key]; ok {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return key, out
	}
	return key, value
}
