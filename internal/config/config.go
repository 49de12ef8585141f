package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
	DriverFirestore = "firestore"
)

// Plan file formats.
const (
	PlanFormatYAML  = "yaml"
	PlanFormatAlpha = "alpha"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	// Path is the SQLite data directory.
	Path string `yaml:"path"`
	// ProjectID and CredentialsFile configure Firestore.
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// DefaultRestSeconds is the rest used for Alpha plans when
// session.default_rest_seconds is absent.
const DefaultRestSeconds = 90

type SessionConfig struct {
	PlanFile   string `yaml:"plan_file"`
	PlanFormat string `yaml:"plan_format"`
	// DefaultRestSeconds is nil when the key is absent; an explicit 0 means
	// no rest between sets.
	DefaultRestSeconds *int `yaml:"default_rest_seconds"`
}

// RestSeconds returns the configured default rest.
func (s SessionConfig) RestSeconds() int {
	if s.DefaultRestSeconds == nil {
		return DefaultRestSeconds
	}
	return *s.DefaultRestSeconds
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix FITARCH_ and underscore-separated paths:
//
//	FITARCH_SERVER_HOST, FITARCH_SERVER_PORT,
//	FITARCH_DB_DRIVER, FITARCH_DB_HOST, FITARCH_DB_PORT, FITARCH_DB_NAME,
//	FITARCH_DB_USER, FITARCH_DB_PASSWORD, FITARCH_DB_SSLMODE,
//	FITARCH_DB_PATH, FITARCH_DB_PROJECT_ID,
//	FITARCH_AUTH_API_KEY, FITARCH_TAILSCALE_ENABLED,
//	FITARCH_SESSION_PLAN_FILE, FITARCH_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("FITARCH_SERVER_HOST", &cfg.Server.Host)
	num("FITARCH_SERVER_PORT", &cfg.Server.Port)
	str("FITARCH_DB_DRIVER", &cfg.Database.Driver)
	str("FITARCH_DB_HOST", &cfg.Database.Host)
	num("FITARCH_DB_PORT", &cfg.Database.Port)
	str("FITARCH_DB_NAME", &cfg.Database.Name)
	str("FITARCH_DB_USER", &cfg.Database.User)
	str("FITARCH_DB_PASSWORD", &cfg.Database.Password)
	str("FITARCH_DB_SSLMODE", &cfg.Database.SSLMode)
	str("FITARCH_DB_PATH", &cfg.Database.Path)
	str("FITARCH_DB_PROJECT_ID", &cfg.Database.ProjectID)
	str("FITARCH_AUTH_API_KEY", &cfg.Auth.APIKey)
	str("FITARCH_SESSION_PLAN_FILE", &cfg.Session.PlanFile)
	str("FITARCH_LOG_LEVEL", &cfg.Logging.Level)

	if v := os.Getenv("FITARCH_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Session.PlanFormat == "" {
		c.Session.PlanFormat = PlanFormatYAML
	}
	if c.Session.DefaultRestSeconds == nil {
		rest := DefaultRestSeconds
		c.Session.DefaultRestSeconds = &rest
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "fitarch"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case DriverFirestore:
		if c.Database.ProjectID == "" {
			return fmt.Errorf("database.project_id is required for firestore")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}

	switch c.Session.PlanFormat {
	case PlanFormatYAML:
	case PlanFormatAlpha:
		if c.Session.PlanFile == "" {
			return fmt.Errorf("session.plan_file is required for plan_format alpha")
		}
	default:
		return fmt.Errorf("unknown session.plan_format %q", c.Session.PlanFormat)
	}
	if c.Session.RestSeconds() < 0 {
		return fmt.Errorf("session.default_rest_seconds must not be negative")
	}
	return nil
}
