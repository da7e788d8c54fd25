// Package config loads bantay settings from a file, the environment and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lborres/bantay/core"
)

const envPrefix = "BANTAY"

type Config struct {
	Server   ServerConfig       `mapstructure:"server"`
	Database DatabaseConfig     `mapstructure:"database"`
	Redis    RedisConfig        `mapstructure:"redis"`
	Local    LocalConfig        `mapstructure:"local"`
	Bounds   core.Bounds        `mapstructure:"bounds"`
	Content  ContentConfig      `mapstructure:"content"`
	Session  core.SessionConfig `mapstructure:"session"`
	Logging  LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	BasePath        string        `mapstructure:"base_path"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Metrics         bool          `mapstructure:"metrics"`
	// SelfServiceRoles are the roles an anonymous sign-up may request.
	SelfServiceRoles []string `mapstructure:"self_service_roles"`
}

// SignUpRoles parses SelfServiceRoles.
func (s ServerConfig) SignUpRoles() ([]core.AccessRole, error) {
	roles := make([]core.AccessRole, 0, len(s.SelfServiceRoles))
	for _, name := range s.SelfServiceRoles {
		role, err := core.ParseAccessRole(name)
		if err != nil {
			return nil, fmt.Errorf("server.self_service_roles: %q: %w", name, err)
		}
		roles = append(roles, role)
	}
	return roles, nil
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// RedisConfig is optional; an empty Addr keeps the content snapshot in memory.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	SnapshotKey string        `mapstructure:"snapshot_key"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// LocalConfig selects the local authority store. An empty BoltPath keeps
// roles in memory only.
type LocalConfig struct {
	BoltPath   string `mapstructure:"bolt_path"`
	MemorySize int    `mapstructure:"memory_size"`
}

type ContentConfig struct {
	FreshnessWindow time.Duration `mapstructure:"freshness_window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from cfgFile (optional) and BANTAY_* environment
// variables, e.g. BANTAY_DATABASE_URL or BANTAY_BOUNDS_ROLE_READ=800ms.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("bantay")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/bantay")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	bounds := core.DefaultBounds()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.metrics", true)
	v.SetDefault("server.self_service_roles", []string{string(core.RoleReader), string(core.RoleEditor)})

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.snapshot_key", "bantay:content:snapshot")
	v.SetDefault("redis.snapshot_ttl", 24*time.Hour)

	v.SetDefault("local.bolt_path", "bantay-authority.db")
	v.SetDefault("local.memory_size", 10000)

	v.SetDefault("bounds.registration_write", bounds.RegistrationWrite)
	v.SetDefault("bounds.role_read", bounds.RoleRead)
	v.SetDefault("bounds.content_read", bounds.ContentRead)
	v.SetDefault("bounds.subscriber_check", bounds.SubscriberCheck)

	v.SetDefault("content.freshness_window", core.DefaultFreshnessWindow)
	v.SetDefault("session.max_age", core.DefaultSessionConfig().MaxAge)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("server.base_path must start with '/': %q", c.Server.BasePath)
	}
	if _, err := c.Server.SignUpRoles(); err != nil {
		return err
	}
	if err := c.Bounds.Validate(); err != nil {
		return err
	}
	if c.Content.FreshnessWindow <= 0 {
		return errors.New("content.freshness_window must be positive")
	}
	if c.Session.MaxAge <= 0 {
		return errors.New("session.max_age must be positive")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text: %q", c.Logging.Format)
	}
	return nil
}
