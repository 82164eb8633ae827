// Package config loads planner settings from an optional YAML file and PLANNER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/logging"
)

const EnvPrefix = "PLANNER"

const (
	AuthModeDev = "dev"
	AuthModeJWT = "jwt"

	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

type Config struct {
	HTTP        HTTPConfig        `mapstructure:"http"`
	Auth        AuthConfig        `mapstructure:"auth"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Planner     PlannerConfig     `mapstructure:"planner"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Log         LogConfig         `mapstructure:"log"`
}

type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AuthConfig struct {
	// Mode is "jwt" (bearer tokens verified against JWKS) or "dev" (X-Debug-Subject header).
	Mode string `mapstructure:"mode"`
	// DevSubject is used in dev mode when the request names no subject.
	DevSubject string `mapstructure:"dev_subject"`
}

type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	// AutoMigrate applies pending Postgres migrations at startup.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type CatalogConfig struct {
	// Path to a YAML place catalog. Empty means an empty catalog.
	Path string `mapstructure:"path"`
}

type PlannerConfig struct {
	AlternativesLimit int `mapstructure:"alternatives_limit"`
}

type IdempotencyConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTP:        HTTPConfig{Port: 8080, ShutdownTimeout: 10 * time.Second},
		Auth:        AuthConfig{Mode: AuthModeDev},
		JWT:         DefaultJWTConfig(),
		Storage:     StorageConfig{Backend: StorageMemory, SQLitePath: "planner.db"},
		Planner:     PlannerConfig{AlternativesLimit: 5},
		Idempotency: IdempotencyConfig{TTL: 24 * time.Hour},
		Log:         LogConfig{Level: "info", Format: "json"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("http.port", d.HTTP.Port)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)
	v.SetDefault("auth.mode", d.Auth.Mode)
	v.SetDefault("auth.dev_subject", d.Auth.DevSubject)
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.audience", "")
	v.SetDefault("jwt.jwks_url", "")
	v.SetDefault("jwt.clock_skew", d.JWT.ClockSkew)
	v.SetDefault("jwt.jwks_refresh_interval", d.JWT.JWKSRefreshInterval)
	v.SetDefault("jwt.jwks_min_refresh_interval", d.JWT.JWKSMinRefreshInterval)
	v.SetDefault("jwt.http_timeout", d.JWT.HTTPTimeout)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.auto_migrate", false)
	v.SetDefault("catalog.path", "")
	v.SetDefault("planner.alternatives_limit", d.Planner.AlternativesLimit)
	v.SetDefault("idempotency.ttl", d.Idempotency.TTL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the YAML file at path (optional; a missing file is not an error),
// then applies PLANNER_* environment overrides, e.g. PLANNER_STORAGE_BACKEND.
// The unprefixed JWT_ISSUER, JWT_AUDIENCE and JWT_JWKS_URL are honoured too.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range map[string]string{
		"jwt.issuer":   "JWT_ISSUER",
		"jwt.audience": "JWT_AUDIENCE",
		"jwt.jwks_url": "JWT_JWKS_URL",
	} {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return Config{}, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var pathErr *os.PathError
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Auth.Mode = strings.ToLower(strings.TrimSpace(cfg.Auth.Mode))
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Auth.Mode {
	case AuthModeDev:
	case AuthModeJWT:
		if err := c.JWT.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("auth.mode must be %q or %q, got %q", AuthModeDev, AuthModeJWT, c.Auth.Mode)
	}
	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres backend")
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("storage.backend must be memory, postgres or sqlite, got %q", c.Storage.Backend)
	}
	if c.Planner.AlternativesLimit < 1 || c.Planner.AlternativesLimit > 50 {
		return fmt.Errorf("planner.alternatives_limit must be between 1 and 50, got %d", c.Planner.AlternativesLimit)
	}
	if c.Idempotency.TTL <= 0 {
		return errors.New("idempotency.ttl must be positive")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// Addr is the HTTP listen address.
func (c Config) Addr() string { return fmt.Sprintf(":%d", c.HTTP.Port) }
