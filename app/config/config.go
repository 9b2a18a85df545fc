// Package config loads settings from config.yml, INKPOST_* environment
// variables and a .env file, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"inkpost/app/logger"
	"inkpost/app/repositories"
	"inkpost/app/services"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. INKPOST_SERVER_PORT.
const EnvPrefix = "INKPOST"

// DefaultSessionSecret is only suitable for development.
const DefaultSessionSecret = "change-me-in-production"

// Config is the application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Blog     BlogConfig     `mapstructure:"blog"`

	source string
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   string `mapstructure:"port"`
	Mode                   string `mapstructure:"mode"` // debug / release
	ReadTimeoutSeconds     int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `mapstructure:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	// TrustedOrigins may submit forms in addition to same-origin pages.
	TrustedOrigins []string `mapstructure:"trusted_origins"`
}

// Addr is the listen address.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// LogConfig controls log output.
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Stdout     bool   `mapstructure:"stdout"`
}

// ToLoggerOptions converts to logger.Options.
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
		Stdout:     c.Stdout,
	}
}

// DatabasePoolConfig tunes SQL connection pools.
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
}

// DatabaseConfig selects the content store.
type DatabaseConfig struct {
	Driver   string             `mapstructure:"driver"` // badger / sqlite / postgres
	Path     string             `mapstructure:"path"`   // badger data directory
	DSN      string             `mapstructure:"dsn"`    // sqlite file or postgres DSN
	InMemory bool               `mapstructure:"in_memory"`
	Pool     DatabasePoolConfig `mapstructure:"pool"`
}

// ToStoreOptions converts to repositories.Options.
func (c DatabaseConfig) ToStoreOptions() repositories.Options {
	return repositories.Options{
		Driver:          c.Driver,
		Path:            c.Path,
		DSN:             c.DSN,
		InMemory:        c.InMemory,
		MaxOpenConns:    c.Pool.MaxOpenConns,
		MaxIdleConns:    c.Pool.MaxIdleConns,
		ConnMaxLifetime: time.Duration(c.Pool.ConnMaxLifetimeSeconds) * time.Second,
	}
}

// SessionConfig controls login sessions.
type SessionConfig struct {
	Secret     string `mapstructure:"secret"`
	CookieName string `mapstructure:"cookie_name"`
	TTLHours   int    `mapstructure:"ttl_hours"`
	Secure     bool   `mapstructure:"secure"`
}

// ToServiceConfig converts to services.SessionConfig.
func (c SessionConfig) ToServiceConfig() services.SessionConfig {
	return services.SessionConfig{
		Secret: c.Secret,
		TTL:    time.Duration(c.TTLHours) * time.Hour,
	}
}

// BlogConfig holds presentation settings.
type BlogConfig struct {
	Title    string `mapstructure:"title"`
	PageSize int    `mapstructure:"page_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 15)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.trusted_origins", []string{})
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "inkpost.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.stdout", false)
	v.SetDefault("database.driver", repositories.DriverBadger)
	v.SetDefault("database.path", "./data/badger")
	v.SetDefault("database.dsn", "./data/inkpost.db")
	v.SetDefault("database.in_memory", false)
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("session.secret", DefaultSessionSecret)
	v.SetDefault("session.cookie_name", "inkpost_session")
	v.SetDefault("session.ttl_hours", 336)
	v.SetDefault("session.secure", false)
	v.SetDefault("blog.title", "Inkpost")
	v.SetDefault("blog.page_size", services.DefaultPageSize)
}

// Load reads configuration. An explicit path must exist; otherwise
// config.yml is looked up in . and ./etc and is optional.
func Load(path string) (*Config, error) {
	// .env only fills variables that are not already set.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./etc")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.source = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case repositories.DriverBadger:
		if c.Database.Path == "" && !c.Database.InMemory {
			return errors.New("database.path is required for the badger driver")
		}
	case repositories.DriverSQLite, repositories.DriverPostgres:
		if c.Database.DSN == "" && !c.Database.InMemory {
			return fmt.Errorf("database.dsn is required for the %s driver", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Session.Secret) == "" {
		return errors.New("session.secret must not be empty")
	}
	if c.Blog.PageSize < 1 {
		return errors.New("blog.page_size must be positive")
	}
	return nil
}

// Source is the config file that was read, if any.
func (c *Config) Source() string {
	return c.source
}

// InsecureSecret reports whether the development session secret is in use.
func (c *Config) InsecureSecret() bool {
	return c.Session.Secret == DefaultSessionSecret
}
