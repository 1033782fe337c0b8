package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Identity IdentityConfig `yaml:"identity" envPrefix:"IDENTITY_"`
	Page     PageConfig     `yaml:"page" envPrefix:"PAGE_"`
	Injector InjectorConfig `yaml:"injector" envPrefix:"INJECTOR_"`
	Browser  BrowserConfig  `yaml:"browser" envPrefix:"BROWSER_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr         string   `yaml:"addr" env:"ADDR"`
	ReadTimeout  Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout  Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
}

// IdentityConfig is the identity forced onto the host page
type IdentityConfig struct {
	Title   string `yaml:"title" env:"TITLE"`
	IconURL string `yaml:"icon_url" env:"ICON_URL"`
}

// PageConfig describes the host page
type PageConfig struct {
	Layout       string `yaml:"layout" env:"LAYOUT"`               // centered, wide
	DashboardURL string `yaml:"dashboard_url" env:"DASHBOARD_URL"` // framed hosted dashboard
	UpstreamURL  string `yaml:"upstream_url" env:"UPSTREAM_URL"`   // proxied under /app/
}

// InjectorConfig holds client-side injector settings
type InjectorConfig struct {
	RetryDelay Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
}

// BrowserConfig holds settings for pinning a live page through Chrome
type BrowserConfig struct {
	Headless bool     `yaml:"headless" env:"HEADLESS"`
	Timeout  Duration `yaml:"timeout" env:"TIMEOUT"`
	ExecPath string   `yaml:"exec_path,omitempty" env:"EXEC_PATH"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level     string `yaml:"level" env:"LEVEL"`   // debug, info, warn, error
	Formatter string `yaml:"format" env:"FORMAT"` // text, json, logfmt
}

// Duration wraps time.Duration for YAML and environment unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
