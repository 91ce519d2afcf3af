// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

// Package config loads PatrolHub settings from defaults, an optional YAML file,
// command-line flags and the environment, in that order of precedence.
package config

import (
	"slices"
	"time"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/patrolhub/patrolhub/internal/auth"
	"github.com/patrolhub/patrolhub/internal/logging"
	"github.com/patrolhub/patrolhub/internal/store"
)

// Hasher names.
const (
	HasherArgon2id = "argon2id"
	HasherBcrypt   = "bcrypt"
)

// Config is the complete process configuration.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http" json:"http,omitempty" yaml:"http"`
	Metrics   MetricsConfig   `koanf:"metrics" json:"metrics,omitempty" yaml:"metrics"`
	Log       LogConfig       `koanf:"log" json:"log,omitempty" yaml:"log"`
	Database  DatabaseConfig  `koanf:"database" json:"database,omitempty" yaml:"database"`
	Auth      AuthConfig      `koanf:"auth" json:"auth,omitempty" yaml:"auth"`
	RateLimit RateLimitConfig `koanf:"ratelimit" json:"ratelimit,omitempty" yaml:"ratelimit"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr              string   `koanf:"addr" json:"addr,omitempty" yaml:"addr" jsonschema:"description=Listen address of the API"`
	TrustProxy        bool     `koanf:"trust_proxy" json:"trust_proxy,omitempty" yaml:"trust_proxy" jsonschema:"description=Take the client address from X-Forwarded-For or X-Real-IP"`
	AllowedOrigins    []string `koanf:"allowed_origins" json:"allowed_origins,omitempty" yaml:"allowed_origins" jsonschema:"description=Glob patterns of origins echoed in CORS responses"`
	DefaultOrigin     string   `koanf:"default_origin" json:"default_origin,omitempty" yaml:"default_origin"`
	ReadHeaderTimeout Duration `koanf:"read_header_timeout" json:"read_header_timeout,omitempty" yaml:"read_header_timeout"`
}

// MetricsConfig configures the observability listener.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" yaml:"addr" jsonschema:"description=Listen address for /metrics and health probes; empty disables"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" yaml:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL             string   `koanf:"url" json:"url,omitempty" yaml:"url" jsonschema:"description=Connection string; DATABASE_URL overrides it"`
	ConnectTimeout  Duration `koanf:"connect_timeout" json:"connect_timeout,omitempty" yaml:"connect_timeout"`
	ConnectAttempts int      `koanf:"connect_attempts" json:"connect_attempts,omitempty" yaml:"connect_attempts" jsonschema:"minimum=1"`
}

// AuthConfig configures the auth service.
type AuthConfig struct {
	SessionTTL         Duration `koanf:"session_ttl" json:"session_ttl,omitempty" yaml:"session_ttl"`
	NameChangeCooldown Duration `koanf:"name_change_cooldown" json:"name_change_cooldown,omitempty" yaml:"name_change_cooldown"`
	AutoActivate       bool     `koanf:"auto_activate" json:"auto_activate,omitempty" yaml:"auto_activate" jsonschema:"description=Activate accounts at registration instead of waiting for approval"`
	Hasher             string   `koanf:"hasher" json:"hasher,omitempty" yaml:"hasher" jsonschema:"enum=argon2id,enum=bcrypt"`
	BcryptCost         int      `koanf:"bcrypt_cost" json:"bcrypt_cost,omitempty" yaml:"bcrypt_cost" jsonschema:"minimum=4,maximum=31"`
	ShortIDWidth       int      `koanf:"short_id_width" json:"short_id_width,omitempty" yaml:"short_id_width" jsonschema:"minimum=1,maximum=18"`
}

// RateLimitConfig configures the login attempt limiter.
type RateLimitConfig struct {
	Window          Duration `koanf:"window" json:"window,omitempty" yaml:"window"`
	MaxFailures     int      `koanf:"max_failures" json:"max_failures,omitempty" yaml:"max_failures" jsonschema:"minimum=1"`
	BlockDuration   Duration `koanf:"block_duration" json:"block_duration,omitempty" yaml:"block_duration"`
	CleanupInterval Duration `koanf:"cleanup_interval" json:"cleanup_interval,omitempty" yaml:"cleanup_interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:              ":8080",
			AllowedOrigins:    []string{"https://*.patrolhub.dev", "http://localhost*"},
			DefaultOrigin:     "https://app.patrolhub.dev",
			ReadHeaderTimeout: Duration(10 * time.Second),
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: logging.FormatJSON, Level: "info"},
		Database: DatabaseConfig{
			ConnectTimeout:  Duration(store.DefaultConnectTimeout),
			ConnectAttempts: store.DefaultConnectAttempts,
		},
		Auth: AuthConfig{
			SessionTTL:         Duration(auth.DefaultSessionTTL),
			NameChangeCooldown: Duration(auth.DefaultNameChangeCooldown),
			Hasher:             HasherArgon2id,
			BcryptCost:         auth.DefaultBcryptCost,
			ShortIDWidth:       auth.DefaultShortIDWidth,
		},
		RateLimit: RateLimitConfig{
			Window:          Duration(auth.DefaultAttemptWindow),
			MaxFailures:     auth.DefaultMaxFailures,
			BlockDuration:   Duration(auth.DefaultBlockDuration),
			CleanupInterval: Duration(auth.DefaultLimiterCleanupInterval),
		},
	}
}

// Validate checks constraints the schema cannot express.
func (c Config) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("field", field).Errorf(format, args...)
	}

	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http.addr is required")
	}
	if c.HTTP.DefaultOrigin == "" {
		return invalid("http.default_origin", "http.default_origin is required")
	}
	for _, pattern := range c.HTTP.AllowedOrigins {
		if _, err := glob.Compile(pattern); err != nil {
			return oops.Code("CONFIG_INVALID").With("field", "http.allowed_origins").With("pattern", pattern).Wrap(err)
		}
	}
	if c.Metrics.Addr != "" && c.Metrics.Addr == c.HTTP.Addr {
		return invalid("metrics.addr", "metrics.addr must differ from http.addr")
	}
	if !slices.Contains([]string{logging.FormatJSON, logging.FormatText}, c.Log.Format) {
		return invalid("log.format", "log.format must be json or text, got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "%s", err.Error())
	}
	if c.Database.ConnectAttempts < 1 {
		return invalid("database.connect_attempts", "database.connect_attempts must be at least 1")
	}

	for _, d := range []struct {
		field string
		value Duration
	}{
		{"http.read_header_timeout", c.HTTP.ReadHeaderTimeout},
		{"database.connect_timeout", c.Database.ConnectTimeout},
		{"auth.session_ttl", c.Auth.SessionTTL},
		{"ratelimit.window", c.RateLimit.Window},
		{"ratelimit.block_duration", c.RateLimit.BlockDuration},
		{"ratelimit.cleanup_interval", c.RateLimit.CleanupInterval},
	} {
		if d.value <= 0 {
			return invalid(d.field, "%s must be positive", d.field)
		}
	}
	if c.Auth.NameChangeCooldown < 0 {
		return invalid("auth.name_change_cooldown", "auth.name_change_cooldown must not be negative")
	}

	switch c.Auth.Hasher {
	case HasherArgon2id, HasherBcrypt:
	default:
		return invalid("auth.hasher", "auth.hasher must be argon2id or bcrypt, got %q", c.Auth.Hasher)
	}
	if c.Auth.Hasher == HasherBcrypt && (c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31) {
		return invalid("auth.bcrypt_cost", "auth.bcrypt_cost must be in 4..31")
	}
	if c.Auth.ShortIDWidth < 1 || c.Auth.ShortIDWidth > 18 {
		return invalid("auth.short_id_width", "auth.short_id_width must be in 1..18")
	}
	if c.RateLimit.MaxFailures < 1 {
		return invalid("ratelimit.max_failures", "ratelimit.max_failures must be at least 1")
	}
	return nil
}

// NewHasher builds the configured password hasher.
func (c AuthConfig) NewHasher() auth.PasswordHasher {
	if c.Hasher == HasherBcrypt {
		return auth.NewBcryptHasher(c.BcryptCost)
	}
	return auth.NewArgon2idHasher()
}

// ServiceOptions translates the section into auth.Service options.
func (c AuthConfig) ServiceOptions() []auth.ServiceOption {
	return []auth.ServiceOption{
		auth.WithSessionTTL(c.SessionTTL.Std()),
		auth.WithNameChangeCooldown(c.NameChangeCooldown.Std()),
		auth.WithAutoActivate(c.AutoActivate),
		auth.WithShortIDWidth(c.ShortIDWidth),
	}
}

// LimiterConfig translates the section into an auth.LimiterConfig.
func (c RateLimitConfig) LimiterConfig() auth.LimiterConfig {
	return auth.LimiterConfig{
		Window:          c.Window.Std(),
		MaxFailures:     c.MaxFailures,
		BlockDuration:   c.BlockDuration.Std(),
		CleanupInterval: c.CleanupInterval.Std(),
	}
}

// OpenOptions translates the section into store.OpenOptions.
func (c DatabaseConfig) OpenOptions() store.OpenOptions {
	return store.OpenOptions{
		Attempts: c.ConnectAttempts,
		Timeout:  c.ConnectTimeout.Std(),
	}
}
