/*
Package config loads screentime settings and configures logging.

PURPOSE:
  One Config value feeds the server, the balance monitor and every CLI
  command. Settings are layered so a bare binary runs with defaults and a
  deployment can override anything through a file or the environment.

PRECEDENCE (lowest to highest):
  1. Defaults (SetDefaults)
  2. Config file: --config path, or config.{yaml,toml,json} in
     $HOME/.config/screentime or the working directory
  3. .env in the working directory (never overrides real environment)
  4. Environment: SCREENTIME_<SECTION>_<KEY>, plus the bare DATABASE_URL,
     SERVER_ADDRESS and SERVER_PORT names
  5. Command-line flags bound to the same viper instance

EXAMPLE config.yaml:
  database:
    dsn: ./data/screentime.db
  server:
    address: 127.0.0.1
    port: 8080
  logging:
    level: debug
    format: json
  monitor:
    interval: 30s

SEE ALSO:
  - cmd/screentime/main.go: Flag binding and initConfig
  - logging.go:             SetupLogging
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every screentime environment variable.
const EnvPrefix = "SCREENTIME"

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// DatabaseConfig selects the backing store.
// A postgres:// URL selects PostgreSQL, anything else is a SQLite path.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MonitorConfig configures the background balance monitor.
// A zero interval disables it.
type MonitorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", "screentime.db")

	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("monitor.interval", time.Minute)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
}

// Load reads configuration into a Config. path names an explicit config
// file; when empty the standard locations are searched and a missing file
// is not an error. A nil v uses a fresh viper instance.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "screentime"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Bare names kept for existing deployments
	_ = v.BindEnv("database.dsn", EnvPrefix+"_DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("server.address", EnvPrefix+"_SERVER_ADDRESS", "SERVER_ADDRESS")
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "SERVER_PORT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnvFile loads variables from a dotenv file into the process
// environment. Variables already set win. A missing file is ignored.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn must be set")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range 1-65535", c.Server.Port)
	}
	if c.Monitor.Interval < 0 {
		return fmt.Errorf("monitor.interval must not be negative, got %s", c.Monitor.Interval)
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	return nil
}
