// Package config provides configuration management for homescreen.
//
// Settings come from three layers, later layers winning:
//   - built-in defaults (the identity the page ships with)
//   - a YAML file found through SearchPaths
//   - HOMESCREEN_* environment variables
//
// The identity is read once at startup and stays fixed for the process
// lifetime.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"homescreen/internal/domain"
	"homescreen/internal/sink"
)

// Load finds and loads the config file, or returns defaults if none found.
// Environment overrides are applied in both cases.
func Load() (*Config, string, error) {
	path := FindConfigPath()

	cfg := DefaultConfig()
	if path != "" {
		loaded, _, err := LoadFromPath(path)
		if err != nil {
			return nil, path, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	// Unmarshal over defaults so omitted keys keep their default values
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return cfg, path, nil
}

// ApplyEnv overrides fields from HOMESCREEN_* variables. A nil environ
// reads the process environment.
func (c *Config) ApplyEnv(environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	c.applyDefaults()
	return nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the configuration the page ships with
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:         ":8501",
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
			IdleTimeout:  Duration(60 * time.Second),
		},
		Identity: IdentityConfig{
			Title:   domain.DefaultTitle,
			IconURL: domain.DefaultIconURL,
		},
		Page:     PageConfig{Layout: string(domain.LayoutCentered)},
		Injector: InjectorConfig{RetryDelay: Duration(sink.DefaultRetryDelay)},
		Browser: BrowserConfig{
			Headless: true,
			Timeout:  Duration(30 * time.Second),
		},
		Log: LogConfig{Level: "info", Formatter: "text"},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Version == 0 {
		c.Version = def.Version
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if c.Server.IdleTimeout <= 0 {
		c.Server.IdleTimeout = def.Server.IdleTimeout
	}
	if strings.TrimSpace(c.Identity.Title) == "" {
		c.Identity.Title = def.Identity.Title
	}
	if strings.TrimSpace(c.Identity.IconURL) == "" {
		c.Identity.IconURL = def.Identity.IconURL
	}
	c.Page.Layout = string(domain.ParseLayout(c.Page.Layout))
	if c.Injector.RetryDelay <= 0 {
		c.Injector.RetryDelay = def.Injector.RetryDelay
	}
	if c.Browser.Timeout <= 0 {
		c.Browser.Timeout = def.Browser.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Formatter == "" {
		c.Log.Formatter = def.Log.Formatter
	}
}

// PageIdentity builds the validated identity
func (c *Config) PageIdentity() (domain.PageIdentity, error) {
	id, err := domain.NewPageIdentity(c.Identity.Title, c.Identity.IconURL)
	if err != nil {
		return domain.PageIdentity{}, fmt.Errorf("identity: %w", err)
	}
	return id, nil
}

// PageConfig builds the host page configuration
func (c *Config) PageConfig() (domain.PageConfig, error) {
	id, err := c.PageIdentity()
	if err != nil {
		return domain.PageConfig{}, err
	}
	return domain.NewPageConfig(id, domain.ParseLayout(c.Page.Layout)), nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Identity: %s <%s>, Layout: %s\n", c.Identity.Title, c.Identity.IconURL, c.Page.Layout)
	summary += fmt.Sprintf("Listen: %s, Retry delay: %s", c.Server.Addr, c.Injector.RetryDelay.Duration())
	if c.Page.DashboardURL != "" {
		summary += fmt.Sprintf(", Dashboard: %s", c.Page.DashboardURL)
	}
	if c.Page.UpstreamURL != "" {
		summary += fmt.Sprintf(", Upstream: %s", c.Page.UpstreamURL)
	}
	return summary
}
