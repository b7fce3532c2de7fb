// Package config loads the single configuration document every subsystem
// reads at startup. Absent file and absent keys fall back to defaults that
// run a self-contained node: memory store, local avatar directory, no redis,
// no export exchange.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	AMQP     AMQPConfig     `mapstructure:"amqp"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	LogLevel       string        `mapstructure:"log_level"`
	MailboxSize    int           `mapstructure:"mailbox_size"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
}

type DatabaseConfig struct {
	// Type selects the store backend: "mysql" or "memory".
	Type string `mapstructure:"type"`
	URL  string `mapstructure:"url"`
}

// RedisConfig is optional. A URL switches the session registry and roster
// cache onto redis.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// AMQPConfig is optional. A URL enables the message export publisher.
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type StorageConfig struct {
	// Backend selects the object store: "s3" or "local".
	Backend       string `mapstructure:"backend"`
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Endpoint      string `mapstructure:"endpoint"`
	LocalDir      string `mapstructure:"local_dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// LoadConfig reads the file named by CONFIG_PATH, or ./config.toml when the
// variable is unset. See LoadConfigFile for the missing-file rules.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(os.Getenv("CONFIG_PATH"))
}

// LoadConfigFile loads path, or the default document when path is empty. An
// explicitly named file must exist; a missing default file just means
// defaults. SERVER_ADDRESS overrides server.address either way.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = "config.toml"
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		v.Set("server.address", addr)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.mailbox_size", 256)
	v.SetDefault("server.session_ttl", 0)
	v.SetDefault("server.metrics_enabled", true)
	v.SetDefault("database.type", "memory")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_dir", "./data/avatars")
	v.SetDefault("storage.public_base_url", "/static")
}

// SlogLevel maps the configured log level onto slog, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
