package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultConfigPath is the YAML file read by Load when present.
const DefaultConfigPath = "config.yaml"

// Supported activity database drivers.
const (
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverSQLServer = "sqlserver"
)

// Config holds all configuration for campus-er.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, DSNs) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:5173,http://127.0.0.1:5173"`

	// Activity log database (schema-adaptive queries)
	Activity ActivityConfig `yaml:"activity"`

	// Canonical timeline database (PostgreSQL)
	Timeline TimelineConfig `yaml:"timeline"`

	MCP MCPConfig `yaml:"mcp"`
}

// ActivityConfig locates the activity-log database.
type ActivityConfig struct {
	// Driver selects the SQL dialect: sqlite, postgres or sqlserver.
	Driver string `yaml:"driver" env:"ACTIVITY_DB_DRIVER" env-default:"sqlite"`
	// Path is the SQLite database file.
	Path string `yaml:"path" env:"CAMPUS_DB_PATH" env-default:"campus_er.db"`
	// DSN takes precedence over Path when set. Required for postgres and sqlserver.
	DSN string `yaml:"-" env:"ACTIVITY_DB_DSN"` // Secret - not in YAML
}

// TimelineConfig holds PostgreSQL settings for the canonical timeline pool.
type TimelineConfig struct {
	Enabled      bool   `yaml:"enabled" env:"TIMELINE_ENABLED" env-default:"true"`
	DSN          string `yaml:"-" env:"PG_DSN"` // Secret - not in YAML
	Host         string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port         int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	Database     string `yaml:"database" env:"PGDATABASE" env-default:"postgres"`
	User         string `yaml:"user" env:"PGUSER" env-default:"postgres"`
	Password     string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	SSLMode      string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	PoolMinConns int32  `yaml:"pool_min_conns" env:"POOL_MINCONN" env-default:"1"`
	PoolMaxConns int32  `yaml:"pool_max_conns" env:"POOL_MAXCONN" env-default:"5"`
}

// MCPConfig controls the MCP tool endpoint.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
}

// Load reads configuration from config.yaml (if present) with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFrom(DefaultConfigPath, version)
}

// LoadFrom is Load with an explicit YAML path. A missing file is not an error;
// configuration then comes from environment variables and defaults only.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.Activity.Driver {
	case DriverSQLite:
		if c.Activity.Path == "" && c.Activity.DSN == "" {
			return fmt.Errorf("activity database path is required for sqlite")
		}
	case DriverPostgres, DriverSQLServer:
		if c.Activity.DSN == "" {
			return fmt.Errorf("ACTIVITY_DB_DSN is required for driver %q", c.Activity.Driver)
		}
	default:
		return fmt.Errorf("unsupported activity driver %q", c.Activity.Driver)
	}

	if c.Timeline.PoolMaxConns < 1 {
		return fmt.Errorf("pool max connections must be at least 1, got %d", c.Timeline.PoolMaxConns)
	}
	if c.Timeline.PoolMinConns < 0 || c.Timeline.PoolMinConns > c.Timeline.PoolMaxConns {
		return fmt.Errorf("pool min connections must be between 0 and %d, got %d",
			c.Timeline.PoolMaxConns, c.Timeline.PoolMinConns)
	}

	return nil
}

// ActivityDSN returns the data source name handed to the activity driver.
func (a *ActivityConfig) ActivityDSN() string {
	if a.DSN != "" {
		return a.DSN
	}
	return a.Path
}

// ConnectionString returns the PostgreSQL connection string for the timeline pool.
// PG_DSN wins over the discrete PG* settings when present.
// All user-provided fields are URL-escaped so passwords with @, / or # survive parsing.
func (t *TimelineConfig) ConnectionString() string {
	if strings.TrimSpace(t.DSN) != "" {
		return t.DSN
	}

	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(t.User, t.Password),
		Host:   fmt.Sprintf("%s:%d", resolveHostForContainer(t.Host), t.Port),
		Path:   "/" + t.Database,
	}
	q := u.Query()
	if t.SSLMode != "" {
		q.Set("sslmode", t.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return c.BindAddr + ":" + c.Port
}

var (
	inContainerOnce sync.Once
	inContainer     bool
)

// resolveHostForContainer maps loopback hosts to host.docker.internal when the
// process runs inside a Docker container (/.dockerenv present).
func resolveHostForContainer(host string) string {
	inContainerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		inContainer = err == nil
	})
	if inContainer && (host == "localhost" || host == "127.0.0.1") {
		return "host.docker.internal"
	}
	return host
}
