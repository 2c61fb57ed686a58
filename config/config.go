// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/artpar/adminkit/core/registry"
	"github.com/artpar/adminkit/core/resource"
)

// Auth modes.
const (
	AuthNone   = "none"
	AuthToken  = "token"
	AuthJWT    = "jwt"
	AuthRemote = "remote"
)

// Config is the root configuration structure.
type Config struct {
	Title        string              `yaml:"title"`
	Server       ServerConfig        `yaml:"server"`
	Backend      BackendConfig       `yaml:"backend"`
	Auth         AuthConfig          `yaml:"auth"`
	Logging      LoggingConfig       `yaml:"logging"`
	Modules      Modules             `yaml:"modules,omitempty"`
	Resources    []resource.Resource `yaml:"resources"`
	ResourcesDir string              `yaml:"resources_dir,omitempty"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	BasePath     string        `yaml:"base_path"` // Admin API mount point (default: /admin)
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BackendConfig configures the backend the admin talks to.
type BackendConfig struct {
	URL            string            `yaml:"url"`
	Timeout        time.Duration     `yaml:"timeout"`
	APIKey         string            `yaml:"api_key,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	ForwardHeaders []string          `yaml:"forward_headers,omitempty"` // Inbound headers copied to backend calls
}

// AuthConfig configures the admin auth gate.
// Use "none", "token" (bcrypt-hashed static token), "jwt" or "remote".
type AuthConfig struct {
	Mode       string       `yaml:"mode"`
	TokenHash  string       `yaml:"token_hash,omitempty"`
	JWTSecret  string       `yaml:"jwt_secret,omitempty"`
	JWTRole    string       `yaml:"jwt_role,omitempty"` // Required role claim (empty: any valid token)
	Remote     RemoteConfig `yaml:"remote,omitempty"`
	RedirectTo string       `yaml:"redirect_to,omitempty"` // Where denied requests are sent instead of 401
}

// RemoteConfig configures a remote session check.
type RemoteConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// resources_dir is relative to the config file
	if cfg.ResourcesDir != "" && !filepath.IsAbs(cfg.ResourcesDir) {
		cfg.ResourcesDir = filepath.Join(filepath.Dir(path), cfg.ResourcesDir)
	}
	if err := cfg.loadResourcesDir(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse builds a configuration from YAML bytes.
// Environment variables are expanded before parsing; ADMINKIT_* variables
// override file values.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// Resources then come from ADMINKIT_RESOURCES_DIR.
//
// Environment variables:
//
//	ADMINKIT_BACKEND_URL      - Backend base URL (required)
//	ADMINKIT_RESOURCES_DIR    - Directory of resource YAML files
//	ADMINKIT_TITLE            - Admin title (default: Admin)
//	ADMINKIT_SERVER_HOST      - Server host (default: 0.0.0.0)
//	ADMINKIT_SERVER_PORT      - Server port (default: 8080)
//	ADMINKIT_SERVER_BASE_PATH - Admin API mount point (default: /admin)
//	ADMINKIT_AUTH_MODE        - Auth mode: none, token, jwt, remote (default: none)
//	ADMINKIT_LOG_LEVEL        - Log level: debug, info, warn, error (default: info)
//	ADMINKIT_LOG_FORMAT       - Log format: json or console (default: json)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.loadResourcesDir(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set ADMINKIT_BACKEND_URL")
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("ADMINKIT_BACKEND_URL") != ""
}

// BuildRegistry normalizes every configured resource into a registry.
// The registry is always non-nil; the error is a *registry.SetupError
// listing each resource that was rejected.
func (c *Config) BuildRegistry() (*registry.Registry, error) {
	return registry.Build(c.Resources)
}

func (c *Config) loadResourcesDir() error {
	if c.ResourcesDir == "" {
		return nil
	}
	defs, err := resource.ParseDir(c.ResourcesDir)
	if err != nil {
		return fmt.Errorf("load resources_dir: %w", err)
	}
	c.Resources = append(c.Resources, defs...)
	return nil
}

// applyEnvOverrides applies ADMINKIT_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ADMINKIT_TITLE"); v != "" {
		cfg.Title = v
	}

	// Server configuration
	if v := os.Getenv("ADMINKIT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ADMINKIT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ADMINKIT_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("ADMINKIT_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if v := os.Getenv("ADMINKIT_SERVER_BASE_PATH"); v != "" {
		cfg.Server.BasePath = v
	}

	// Backend configuration
	if v := os.Getenv("ADMINKIT_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("ADMINKIT_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = d
		}
	}
	if v := os.Getenv("ADMINKIT_BACKEND_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}

	// Auth configuration
	if v := os.Getenv("ADMINKIT_AUTH_MODE"); v != "" {
		cfg.Auth.Mode = v
	}
	if v := os.Getenv("ADMINKIT_AUTH_TOKEN_HASH"); v != "" {
		cfg.Auth.TokenHash = v
	}
	if v := os.Getenv("ADMINKIT_AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("ADMINKIT_AUTH_REMOTE_URL"); v != "" {
		cfg.Auth.Remote.URL = v
	}
	if v := os.Getenv("ADMINKIT_AUTH_REDIRECT_TO"); v != "" {
		cfg.Auth.RedirectTo = v
	}

	// Logging configuration
	if v := os.Getenv("ADMINKIT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ADMINKIT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("ADMINKIT_RESOURCES_DIR"); v != "" {
		cfg.ResourcesDir = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Title == "" {
		cfg.Title = "Admin"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	cfg.Server.BasePath = cleanBasePath(cfg.Server.BasePath)

	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 30 * time.Second
	}
	if cfg.Backend.ForwardHeaders == nil {
		cfg.Backend.ForwardHeaders = []string{"Authorization", "Cookie"}
	}

	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = AuthNone
	}
	if cfg.Auth.Remote.Timeout == 0 {
		cfg.Auth.Remote.Timeout = 5 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// cleanBasePath returns p with one leading slash and no trailing slash.
// The root mount is the empty string.
func cleanBasePath(p string) string {
	if p == "" {
		p = "/admin"
	}
	p = "/" + strings.Trim(p, "/")
	if p == "/" {
		return ""
	}
	return p
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Backend.URL == "" {
		errs = append(errs, fmt.Errorf("backend.url is required"))
	}

	switch cfg.Auth.Mode {
	case AuthNone:
	case AuthToken:
		if cfg.Auth.TokenHash == "" {
			errs = append(errs, fmt.Errorf("auth.token_hash is required when auth.mode is 'token'"))
		}
	case AuthJWT:
		if cfg.Auth.JWTSecret == "" {
			errs = append(errs, fmt.Errorf("auth.jwt_secret is required when auth.mode is 'jwt'"))
		}
	case AuthRemote:
		if cfg.Auth.Remote.URL == "" {
			errs = append(errs, fmt.Errorf("auth.remote.url is required when auth.mode is 'remote'"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.mode must be one of: none, token, jwt, remote, got %q", cfg.Auth.Mode))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Errorf("logging.level must be one of: debug, info, warn, error, got %q", cfg.Logging.Level))
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format))
	}

	if err := cfg.Modules.validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
