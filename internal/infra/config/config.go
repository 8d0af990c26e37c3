// Package config provides application-wide configuration.
// Priority: defaults -> optional config file (YAML or TOML) -> FENIX_* environment variables.
// All fields have safe defaults so the binary runs locally without any setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for FenixMCP.
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	MCP      MCPConfig      `yaml:"mcp" toml:"mcp"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host         string        `yaml:"host" toml:"host"`
	Port         int           `yaml:"port" toml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" toml:"idle_timeout"`
	EndpointPath string        `yaml:"endpoint_path" toml:"endpoint_path"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" toml:"max_body_bytes"`
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// AuthConfig holds credential settings.
type AuthConfig struct {
	JWTSecret    string `yaml:"jwt_secret" toml:"jwt_secret"`
	APIKeyHeader string `yaml:"api_key_header" toml:"api_key_header"`
	BCryptCost   int    `yaml:"bcrypt_cost" toml:"bcrypt_cost"`
}

// LoggingConfig holds logger settings. Format is "console" or "json".
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MCPConfig describes how the endpoint introduces itself to agent clients.
type MCPConfig struct {
	ServerName   string `yaml:"server_name" toml:"server_name"`
	ServerTitle  string `yaml:"server_title" toml:"server_title"`
	Instructions string `yaml:"instructions" toml:"instructions"`
}

const (
	envKeyHost         = "FENIX_HOST"
	envKeyPort         = "FENIX_PORT"
	envKeyEndpointPath = "FENIX_MCP_ENDPOINT"
	envKeyMaxBodyBytes = "FENIX_MAX_BODY_BYTES"
	envKeyDBPath       = "FENIX_DB_PATH"
	envKeyJWTSecret    = "FENIX_JWT_SECRET"
	envKeyAPIKeyHeader = "FENIX_API_KEY_HEADER"
	envKeyBCryptCost   = "FENIX_BCRYPT_COST"
	envKeyLogLevel     = "FENIX_LOG_LEVEL"
	envKeyLogFormat    = "FENIX_LOG_FORMAT"
	envKeyServerName   = "FENIX_MCP_SERVER_NAME"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
			EndpointPath: "/api/mcp",
			MaxBodyBytes: 1 << 20,
		},
		Database: DatabaseConfig{Path: "./data/fenix.db"},
		Auth: AuthConfig{
			APIKeyHeader: "X-Api-Key",
			BCryptCost:   10,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		MCP: MCPConfig{
			ServerName:   "fenix-crm",
			ServerTitle:  "Fenix CRM",
			Instructions: "Tools operate on the CRM data of the organization that owns the API key.",
		},
	}
}

// LoadFile reads path on top of the defaults, then applies environment overrides.
// The format is chosen by extension: .yaml/.yml or .toml. ${VAR} references are expanded.
// An empty path yields the defaults plus environment overrides.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		expanded := []byte(expandEnvVars(string(data)))

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(expanded, &cfg)
		case ".toml":
			err = toml.Unmarshal(expanded, &cfg)
		default:
			return Config{}, fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", filepath.Ext(path))
		}
		if err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Addr returns host:port for the HTTP listener.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.EndpointPath, "/") {
		return fmt.Errorf("server.endpoint_path must start with '/'")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.Auth.APIKeyHeader) == "" {
		return fmt.Errorf("auth.api_key_header is required")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	if c.MCP.ServerName == "" {
		return fmt.Errorf("mcp.server_name is required")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Server.Host = envOr(envKeyHost, cfg.Server.Host)
	cfg.Server.Port = envIntOr(envKeyPort, cfg.Server.Port)
	cfg.Server.EndpointPath = envOr(envKeyEndpointPath, cfg.Server.EndpointPath)
	cfg.Server.MaxBodyBytes = int64(envIntOr(envKeyMaxBodyBytes, int(cfg.Server.MaxBodyBytes)))
	cfg.Database.Path = envOr(envKeyDBPath, cfg.Database.Path)
	cfg.Auth.JWTSecret = envOr(envKeyJWTSecret, cfg.Auth.JWTSecret)
	cfg.Auth.APIKeyHeader = envOr(envKeyAPIKeyHeader, cfg.Auth.APIKeyHeader)
	cfg.Auth.BCryptCost = envIntOr(envKeyBCryptCost, cfg.Auth.BCryptCost)
	cfg.Logging.Level = envOr(envKeyLogLevel, cfg.Logging.Level)
	cfg.Logging.Format = envOr(envKeyLogFormat, cfg.Logging.Format)
	cfg.MCP.ServerName = envOr(envKeyServerName, cfg.MCP.ServerName)
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr is envOr for integers; unparseable values keep the fallback.
func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the environment value (empty when unset).
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}
